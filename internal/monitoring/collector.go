package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/grc-cli/internal/model"
	"github.com/sells-group/grc-cli/internal/store"
)

// StatusSnapshot holds a point-in-time view of checklist progress across all
// projects.
type StatusSnapshot struct {
	Projects int                  `json:"projects"`
	Items    int                  `json:"items"`
	ByStatus map[model.Status]int `json:"by_status"`

	// CompletionRate is the share of items that need no further work:
	// implemented, not applicable or risk accepted.
	CompletionRate float64 `json:"completion_rate"`

	CollectedAt time.Time `json:"collected_at"`
}

// StatusCounts keys ByStatus by the plain status string.
func (s StatusSnapshot) StatusCounts() map[string]int {
	out := make(map[string]int, len(s.ByStatus))
	for status, n := range s.ByStatus {
		out[string(status)] = n
	}
	return out
}

// Source abstracts the store methods needed by the collector.
type Source interface {
	ListProjects(ctx context.Context, filter store.ProjectFilter) ([]model.ProjectSummary, error)
	StatusTotals(ctx context.Context) (map[model.Status]int, error)
}

// Collector gathers status snapshots from the store.
type Collector struct {
	source Source
	now    func() time.Time
}

// NewCollector creates a new snapshot collector.
func NewCollector(src Source) *Collector {
	return &Collector{source: src, now: time.Now}
}

// Collect gathers a snapshot. Every known status is present in ByStatus,
// zero when no item carries it.
func (c *Collector) Collect(ctx context.Context) (*StatusSnapshot, error) {
	projects, err := c.source.ListProjects(ctx, store.ProjectFilter{})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list projects")
	}
	totals, err := c.source.StatusTotals(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: status totals")
	}

	snap := &StatusSnapshot{
		Projects:    len(projects),
		ByStatus:    make(map[model.Status]int, len(model.Statuses)),
		CollectedAt: c.now().UTC(),
	}
	for _, s := range model.Statuses {
		snap.ByStatus[s] = totals[s]
		snap.Items += totals[s]
	}

	if snap.Items > 0 {
		done := snap.ByStatus[model.StatusImplemented] +
			snap.ByStatus[model.StatusNotApplicable] +
			snap.ByStatus[model.StatusRiskAccepted]
		snap.CompletionRate = float64(done) / float64(snap.Items)
	}
	return snap, nil
}
