package project

import (
	"bytes"
	"io"
	"strings"
	"time"

	"github.com/sells-group/grc-cli/internal/model"
)

// CreateRequest is the input to Create.
type CreateRequest struct {
	Name          string               `json:"name" yaml:"name"`
	Description   *string              `json:"description,omitempty" yaml:"description"`
	IndustryID    string               `json:"industry_id" yaml:"industry_id"`
	SegmentID     string               `json:"segment_id" yaml:"segment_id"`
	UseCaseID     string               `json:"use_case_id" yaml:"use_case_id"`
	ScopeAnswers  map[string]any       `json:"scope_answers,omitempty" yaml:"scope_answers"`
	SelectedPacks []model.SelectedPack `json:"selected_packs" yaml:"selected_packs"`
}

// CreateResult is returned by Create.
type CreateResult struct {
	Project   model.ProjectMeta `json:"project"`
	ProjectID string            `json:"project_id"`
}

// ProjectPatch is a partial update of a project. Setting SelectedPacks
// regenerates the checklist.
type ProjectPatch struct {
	Name          model.Optional[string]               `json:"name"`
	Description   model.Optional[*string]              `json:"description"`
	SelectedPacks model.Optional[[]model.SelectedPack] `json:"selected_packs"`
}

// IsEmpty reports whether no field was provided.
func (p ProjectPatch) IsEmpty() bool {
	return !p.Name.Set && !p.Description.Set && !p.SelectedPacks.Set
}

// ItemPatch is a partial update of a checklist item's user-owned fields.
type ItemPatch struct {
	Status model.Optional[model.Status] `json:"status"`
	Owner  model.Optional[*string]      `json:"owner"`
	Notes  model.Optional[*string]      `json:"notes"`
}

// IsEmpty reports whether no field was provided.
func (p ItemPatch) IsEmpty() bool {
	return !p.Status.Set && !p.Owner.Set && !p.Notes.Set
}

// Upload is an evidence file supplied by a transport.
type Upload interface {
	Open() (io.ReadCloser, error)
	Filename() string
	ContentType() string
}

// BytesUpload is an in-memory Upload.
type BytesUpload struct {
	Name string
	Type string
	Data []byte
}

// Open implements Upload.
func (b BytesUpload) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.Data)), nil
}

// Filename implements Upload.
func (b BytesUpload) Filename() string { return b.Name }

// ContentType implements Upload.
func (b BytesUpload) ContentType() string { return b.Type }

// DeletionSummary describes a deleted project.
type DeletionSummary struct {
	ProjectID     string    `json:"project_id"`
	Name          string    `json:"name"`
	DeletedBy     string    `json:"deleted_by"`
	DeletedAt     time.Time `json:"deleted_at"`
	EvidenceFiles int       `json:"evidence_files"`
}

// FingerprintReport compares the stored fingerprints of a project against
// the current taxonomy and packs.
type FingerprintReport struct {
	ProjectID    string               `json:"project_id"`
	Stored       model.FingerprintSet `json:"stored"`
	Current      model.FingerprintSet `json:"current"`
	Drift        []string             `json:"drift"`
	MissingPacks []model.SelectedPack `json:"missing_packs,omitempty"`
}

// UpToDate reports whether nothing has drifted.
func (r FingerprintReport) UpToDate() bool {
	return len(r.Drift) == 0 && len(r.MissingPacks) == 0
}

// normalizeDescription trims a description; blank becomes nil.
func normalizeDescription(d *string) *string {
	if d == nil {
		return nil
	}
	v := strings.TrimSpace(*d)
	if v == "" {
		return nil
	}
	return &v
}
