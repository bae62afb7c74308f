package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/grc-cli/internal/checklist"
	"github.com/sells-group/grc-cli/internal/model"
)

func testPacks(version, hash string) []model.ControlPack {
	return []model.ControlPack{
		{Domain: "privacy", ID: "core", Version: "1.0.0", ContentHash: "aaa", Requirements: []model.Requirement{
			{ID: "P1", MergeKey: "data.retention", Title: "Retention policy", Severity: model.SeverityHigh},
		}},
		{Domain: "security", ID: "baseline", Version: version, ContentHash: hash, Requirements: []model.Requirement{
			{ID: "S1", MergeKey: "access.review", Title: "Access review", Severity: model.SeverityMedium},
		}},
	}
}

func TestPacksHash(t *testing.T) {
	t.Parallel()

	base := PacksHash(testPacks("1.0.0", "bbb"))
	assert.Len(t, base, 64)
	assert.Equal(t, Sum([]byte("privacy:core:1.0.0:aaa|security:baseline:1.0.0:bbb")), base)

	assert.NotEqual(t, base, PacksHash(testPacks("1.1.0", "ccc")), "version bump changes the hash")

	reversed := testPacks("1.0.0", "bbb")
	reversed[0], reversed[1] = reversed[1], reversed[0]
	assert.NotEqual(t, base, PacksHash(reversed), "selection order is significant")

	assert.Equal(t, Sum(nil), PacksHash(nil))
}

func TestChecklistHash_IgnoresUserState(t *testing.T) {
	t.Parallel()

	cl := checklist.Generate(model.ProjectContext{}, testPacks("1.0.0", "bbb"))
	before, err := ChecklistHash(cl.Items)
	require.NoError(t, err)

	cl.Items[0].Status = model.StatusImplemented
	notes := "done"
	cl.Items[0].Notes = &notes
	cl.Items[1].Evidence = append(cl.Items[1].Evidence, model.EvidenceRecord{EvidenceID: "e1"})

	after, err := ChecklistHash(cl.Items)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	cl.Items[0].Title = "Renamed"
	renamed, err := ChecklistHash(cl.Items)
	require.NoError(t, err)
	assert.NotEqual(t, before, renamed)
}

func TestChecklistHash_Idempotent(t *testing.T) {
	t.Parallel()

	a, err := ChecklistHash(checklist.Generate(model.ProjectContext{}, testPacks("1.0.0", "bbb")).Items)
	require.NoError(t, err)
	b, err := ChecklistHash(checklist.Generate(model.ProjectContext{}, testPacks("1.0.0", "bbb")).Items)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestTaxonomyHash(t *testing.T) {
	t.Parallel()

	industries := []model.Industry{{ID: "insurance", Name: "Insurance", Segments: []model.Segment{
		{ID: "pc", Name: "P&C", UseCases: []model.UseCaseEntry{{ID: "claims-intake", Name: "Claims"}}},
	}}}
	h1, err := TaxonomyHash(industries)
	require.NoError(t, err)

	industries[0].Segments[0].UseCases[0].Name = "Claims intake"
	h2, err := TaxonomyHash(industries)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)

	empty, err := TaxonomyHash(nil)
	require.NoError(t, err)
	assert.Equal(t, Sum([]byte("[]")), empty)
}

func TestComputeAndDrift(t *testing.T) {
	t.Parallel()

	packs := testPacks("1.0.0", "bbb")
	cl := checklist.Generate(model.ProjectContext{}, packs)
	stored, err := Compute("grc-cli/1", nil, packs, cl.Items)
	require.NoError(t, err)
	assert.Equal(t, "grc-cli/1", stored.GeneratorVersion)

	same, err := Compute("grc-cli/1", nil, packs, cl.Items)
	require.NoError(t, err)
	assert.Empty(t, Drift(stored, same))

	bumped := testPacks("2.0.0", "ddd")
	bumped[1].Requirements[0].Severity = model.SeverityCritical
	current, err := Compute("grc-cli/2", nil, bumped, checklist.Generate(model.ProjectContext{}, bumped).Items)
	require.NoError(t, err)
	assert.Equal(t, []string{FieldGeneratorVersion, FieldPacks, FieldChecklist}, Drift(stored, current))
}
