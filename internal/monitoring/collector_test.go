package monitoring

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/grc-cli/internal/model"
	"github.com/sells-group/grc-cli/internal/store"
)

// fakeSource implements Source for testing.
type fakeSource struct {
	projects  []model.ProjectSummary
	totals    map[model.Status]int
	listErr   error
	totalsErr error
}

func (f *fakeSource) ListProjects(context.Context, store.ProjectFilter) ([]model.ProjectSummary, error) {
	return f.projects, f.listErr
}

func (f *fakeSource) StatusTotals(context.Context) (map[model.Status]int, error) {
	return f.totals, f.totalsErr
}

func TestCollect(t *testing.T) {
	src := &fakeSource{
		projects: []model.ProjectSummary{{ID: "a"}, {ID: "b"}},
		totals: map[model.Status]int{
			model.StatusNotStarted:    4,
			model.StatusImplemented:   3,
			model.StatusNotApplicable: 2,
			model.StatusRiskAccepted:  1,
		},
	}
	c := NewCollector(src)
	c.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }

	snap, err := c.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, snap.Projects)
	assert.Equal(t, 10, snap.Items)
	assert.Equal(t, 0, snap.ByStatus[model.StatusInProgress])
	assert.Len(t, snap.ByStatus, len(model.Statuses))
	assert.InDelta(t, 0.6, snap.CompletionRate, 0.001)
	assert.Equal(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), snap.CollectedAt)
}

func TestCollect_Empty(t *testing.T) {
	snap, err := NewCollector(&fakeSource{}).Collect(context.Background())
	require.NoError(t, err)

	assert.Zero(t, snap.Projects)
	assert.Zero(t, snap.Items)
	assert.Zero(t, snap.CompletionRate)
}

func TestCollect_Errors(t *testing.T) {
	_, err := NewCollector(&fakeSource{listErr: errors.New("db down")}).Collect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monitoring: list projects")

	_, err = NewCollector(&fakeSource{totalsErr: errors.New("db down")}).Collect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monitoring: status totals")
}

func TestCollect_SQLiteStore(t *testing.T) {
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "grc.db"))
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	snap, err := NewCollector(st).Collect(context.Background())
	require.NoError(t, err)
	assert.Zero(t, snap.Projects)
	assert.Zero(t, snap.Items)
}
