package model

import "time"

// Audit event types.
const (
	EventProjectCreated     = "project.created"
	EventProjectUpdated     = "project.updated"
	EventProjectDeleted     = "project.deleted"
	EventChecklistItemPatch = "checklist.item.updated"
	EventEvidenceUploaded   = "evidence.uploaded"
)

// AuditEntry is one append-only record of a mutating operation.
type AuditEntry struct {
	ID        string         `json:"id"`
	ProjectID string         `json:"project_id"`
	EventType string         `json:"event_type"`
	Actor     string         `json:"actor"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload"`
}
