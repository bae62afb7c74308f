package checklist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/grc-cli/internal/model"
)

func TestReconcile_PreservesUserState(t *testing.T) {
	t.Parallel()

	prior := Generate(claimsContext(), []model.ControlPack{
		pack("a", "p", "1", req("1", "X", "Old title", model.SeverityLow)),
	})
	prior.ProjectID = "proj-1"
	prior.Items[0].Status = model.StatusImplemented
	prior.Items[0].Notes = strPtr("done")
	prior.Items[0].Owner = strPtr("alice")
	prior.Items[0].Evidence = []model.EvidenceRecord{{EvidenceID: "ev1", Filename: "policy.pdf"}}

	regenerated := Generate(claimsContext(), []model.ControlPack{
		pack("a", "p", "2", req("1", "X", "New title", model.SeverityCritical)),
	})

	out := Reconcile(regenerated, prior)
	require.Len(t, out.Items, 1)
	it := out.Items[0]
	assert.Equal(t, "New title", it.Title)
	assert.Equal(t, model.SeverityCritical, it.Severity)
	assert.Equal(t, []string{"a:p:2"}, it.Sources)
	assert.Equal(t, model.StatusImplemented, it.Status)
	require.NotNil(t, it.Notes)
	assert.Equal(t, "done", *it.Notes)
	assert.Equal(t, "alice", *it.Owner)
	require.Len(t, it.Evidence, 1)
	assert.Equal(t, "policy.pdf", it.Evidence[0].Filename)
	assert.Equal(t, "proj-1", out.ProjectID)
}

func TestReconcile_DoesNotAliasPrior(t *testing.T) {
	t.Parallel()

	prior := Generate(claimsContext(), []model.ControlPack{pack("a", "p", "1", req("1", "X", "T", model.SeverityLow))})
	prior.Items[0].Notes = strPtr("before")
	prior.Items[0].Evidence = []model.EvidenceRecord{{EvidenceID: "ev1"}}

	out := Reconcile(Generate(claimsContext(), []model.ControlPack{pack("a", "p", "1", req("1", "X", "T", model.SeverityLow))}), prior)
	*out.Items[0].Notes = "after"
	out.Items[0].Evidence = append(out.Items[0].Evidence, model.EvidenceRecord{EvidenceID: "ev2"})

	assert.Equal(t, "before", *prior.Items[0].Notes)
	assert.Len(t, prior.Items[0].Evidence, 1)
}

func TestReconcile_DroppedItemsLoseEvidence(t *testing.T) {
	t.Parallel()

	prior := Generate(claimsContext(), []model.ControlPack{
		pack("a", "p", "1", req("1", "keep", "Keep", model.SeverityLow), req("2", "gone", "Gone", model.SeverityHigh)),
	})
	gone, ok := prior.Item("gone")
	require.True(t, ok)
	gone.Status = model.StatusImplemented
	gone.Evidence = []model.EvidenceRecord{{EvidenceID: "e1"}, {EvidenceID: "e2"}}

	regenerated := Generate(claimsContext(), []model.ControlPack{
		pack("a", "p", "2", req("1", "keep", "Keep", model.SeverityLow), req("3", "new", "New", model.SeverityMedium)),
	})

	out, report := ReconcileWithReport(regenerated, prior)
	_, found := out.Item("gone")
	assert.False(t, found)
	for _, it := range out.Items {
		for _, ev := range it.Evidence {
			assert.NotContains(t, []string{"e1", "e2"}, ev.EvidenceID)
		}
	}

	assert.Equal(t, []string{"keep"}, report.Kept)
	assert.Equal(t, []string{"new"}, report.Added)
	assert.Equal(t, []string{"gone"}, report.Dropped)
	assert.Equal(t, 2, report.OrphanedEvidence)
}

func TestReconcile_RecomputesCounts(t *testing.T) {
	t.Parallel()

	prior := Generate(claimsContext(), []model.ControlPack{
		pack("a", "p", "1", req("1", "k1", "One", model.SeverityLow), req("2", "k2", "Two", model.SeverityLow)),
	})
	prior.Items[0].Status = model.StatusRiskAccepted
	prior.Items[1].Status = model.StatusInProgress

	regenerated := Generate(claimsContext(), []model.ControlPack{
		pack("a", "p", "1", req("1", "k1", "One", model.SeverityLow), req("2", "k2", "Two", model.SeverityLow)),
	})
	regenerated.GeneratedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	out := Reconcile(regenerated, prior)
	assert.Equal(t, 1, out.Counts.ByStatus[model.StatusRiskAccepted])
	assert.Equal(t, 1, out.Counts.ByStatus[model.StatusInProgress])
	assert.Equal(t, 0, out.Counts.ByStatus[model.StatusNotStarted])
	assert.Equal(t, regenerated.GeneratedAt, out.GeneratedAt)
}

func TestReconcile_EmptyPrior(t *testing.T) {
	t.Parallel()

	regenerated := Generate(claimsContext(), []model.ControlPack{pack("a", "p", "1", req("1", "k", "K", model.SeverityLow))})
	out, report := ReconcileWithReport(regenerated, model.Checklist{})
	assert.Equal(t, regenerated.Items, out.Items)
	assert.Equal(t, []string{"k"}, report.Added)
	assert.Empty(t, report.Dropped)
}
