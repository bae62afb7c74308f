// Package store persists project documents, checklists and the audit log.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/grc-cli/internal/model"
)

var (
	// ErrNotFound is returned when a project or checklist does not exist.
	ErrNotFound = eris.New("store: not found")
	// ErrConflict is returned when creating a project whose id is taken.
	ErrConflict = eris.New("store: project already exists")
)

// ProjectFilter specifies criteria for listing projects.
type ProjectFilter struct {
	IndustryID string `json:"industry_id,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for projects.
//
// A project and its checklist are always written together so that readers
// never observe a checklist generated against a different project state.
type Store interface {
	// Projects
	CreateProject(ctx context.Context, doc model.ProjectDocument, cl model.Checklist) error
	GetProject(ctx context.Context, projectID string) (*model.ProjectDocument, error)
	GetChecklist(ctx context.Context, projectID string) (*model.Checklist, error)
	ListProjects(ctx context.Context, filter ProjectFilter) ([]model.ProjectSummary, error)
	SaveProject(ctx context.Context, doc model.ProjectDocument) error
	SaveGeneration(ctx context.Context, doc model.ProjectDocument, cl model.Checklist) error
	DeleteProject(ctx context.Context, projectID string) error

	// Reporting
	StatusTotals(ctx context.Context) (map[model.Status]int, error)

	// Audit log. Entries outlive the project they describe.
	AppendAudit(ctx context.Context, entry model.AuditEntry) error
	ListAudit(ctx context.Context, projectID string) ([]model.AuditEntry, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// itemRows flattens a checklist into the per-item index used by
// StatusTotals.
func itemRows(cl model.Checklist) [][]any {
	rows := make([][]any, len(cl.Items))
	for i, it := range cl.Items {
		rows[i] = []any{cl.ProjectID, it.ItemID, it.MergeKey, string(it.Severity), string(it.Status), it.Domain}
	}
	return rows
}

var itemColumns = []string{"project_id", "item_id", "merge_key", "severity", "status", "domain"}
