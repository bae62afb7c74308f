package model

import "time"

// EvidenceRecord describes one uploaded evidence file. Records are appended
// and never rewritten.
type EvidenceRecord struct {
	EvidenceID  string    `json:"evidence_id"`
	Filename    string    `json:"file_name"`
	StorageRef  string    `json:"storage_ref"`
	SHA256      string    `json:"sha256"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
	UploadedBy  string    `json:"uploaded_by,omitempty"`
}

// ChecklistItem is one required control in a project checklist.
//
// ItemID, MergeKey, Title, Severity and the other definitional fields are
// regenerated from packs. Status, Owner, Notes and Evidence belong to the user.
type ChecklistItem struct {
	ItemID           string                `json:"item_id"`
	MergeKey         string                `json:"merge_key"`
	Title            string                `json:"title"`
	Objective        string                `json:"objective,omitempty"`
	Severity         Severity              `json:"severity"`
	Domain           string                `json:"domain"`
	Sources          []string              `json:"sources"`
	EvidenceRequired []EvidenceRequirement `json:"evidence_required,omitempty"`
	WhyApplies       string                `json:"why_applies,omitempty"`

	Status   Status           `json:"status"`
	Owner    *string          `json:"owner"`
	Notes    *string          `json:"notes"`
	Evidence []EvidenceRecord `json:"evidence"`
}

// Counts summarizes a checklist. It is always recomputed from the items.
type Counts struct {
	Total            int                         `json:"total"`
	ByStatus         map[Status]int              `json:"by_status"`
	BySeverity       map[Severity]int            `json:"by_severity"`
	ByDomain         map[string]int              `json:"by_domain"`
	ByStatusSeverity map[Status]map[Severity]int `json:"by_status_severity"`
}

// Checklist is the full set of items derived for a project.
type Checklist struct {
	ProjectID   string          `json:"project_id"`
	GeneratedAt time.Time       `json:"generated_at"`
	Items       []ChecklistItem `json:"items"`
	Counts      Counts          `json:"counts"`
}

// Item returns a pointer to the item with the given id.
func (c *Checklist) Item(itemID string) (*ChecklistItem, bool) {
	for i := range c.Items {
		if c.Items[i].ItemID == itemID {
			return &c.Items[i], true
		}
	}
	return nil, false
}
