package model

import "time"

// ProjectContext is the resolved scope a checklist is generated against.
// It is built once on project creation and reused by every regeneration.
type ProjectContext struct {
	ProjectName  string         `json:"project_name"`
	IndustryID   string         `json:"industry_id"`
	SegmentID    string         `json:"segment_id"`
	UseCase      UseCase        `json:"use_case"`
	ScopeAnswers map[string]any `json:"scope_answers"`
}

// FingerprintSet holds the hashes stamped on every generation event.
type FingerprintSet struct {
	GeneratorVersion string `json:"generator_version"`
	TaxonomyHash     string `json:"taxonomy_hash"`
	PacksHash        string `json:"packs_hash"`
	ChecklistHash    string `json:"checklist_hash"`
}

// ProjectMeta is the identity and descriptive part of a project.
type ProjectMeta struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProjectInputs records what the caller asked for on creation.
type ProjectInputs struct {
	IndustryID    string         `json:"industry_id"`
	SegmentID     string         `json:"segment_id"`
	UseCaseID     string         `json:"use_case_id"`
	SelectedPacks []SelectedPack `json:"selected_packs"`
	ScopeAnswers  map[string]any `json:"scope_answers"`
}

// ProjectDocument is the persisted project.
type ProjectDocument struct {
	Project   ProjectMeta    `json:"project"`
	Inputs    ProjectInputs  `json:"inputs"`
	Context   ProjectContext `json:"context"`
	Generated FingerprintSet `json:"generated"`
}

// ProjectSummary is the listing view of a project.
type ProjectSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	IndustryID  string    `json:"industry_id"`
	SegmentID   string    `json:"segment_id"`
	UseCaseID   string    `json:"use_case_id"`
	Packs       int       `json:"packs"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Summary returns the listing view of d.
func (d ProjectDocument) Summary() ProjectSummary {
	return ProjectSummary{
		ID:          d.Project.ID,
		Name:        d.Project.Name,
		Description: d.Project.Description,
		IndustryID:  d.Inputs.IndustryID,
		SegmentID:   d.Inputs.SegmentID,
		UseCaseID:   d.Inputs.UseCaseID,
		Packs:       len(d.Inputs.SelectedPacks),
		CreatedAt:   d.Project.CreatedAt,
		UpdatedAt:   d.Project.UpdatedAt,
	}
}
