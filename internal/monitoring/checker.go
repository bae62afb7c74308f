package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/grc-cli/internal/config"
)

const defaultInterval = 5 * time.Minute

// Gauges receives each snapshot. *metrics.Metrics satisfies it.
type Gauges interface {
	SetStatusSnapshot(projects int, byStatus map[string]int)
}

// Checker refreshes the status gauges in the background.
type Checker struct {
	collector *Collector
	gauges    Gauges
	interval  time.Duration
}

// NewChecker returns a checker ticking every cfg.CheckIntervalSecs, or five
// minutes when unset. A nil gauges only logs.
func NewChecker(collector *Collector, gauges Gauges, cfg config.MonitoringConfig) *Checker {
	interval := time.Duration(cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Checker{collector: collector, gauges: gauges, interval: interval}
}

// Run snapshots once up front and then on every tick until ctx is done.
func (c *Checker) Run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	log := zap.L().With(zap.String("component", "monitoring"))
	log.Info("status checker running", zap.Duration("interval", c.interval))

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		c.publish(ctx, log)
		select {
		case <-ctx.Done():
			log.Info("status checker stopped")
			return
		case <-ticker.C:
		}
	}
}

func (c *Checker) publish(ctx context.Context, log *zap.Logger) {
	snap, err := c.collector.Collect(ctx)
	if err != nil {
		log.Error("monitoring: snapshot failed", zap.Error(err))
		return
	}
	if c.gauges != nil {
		c.gauges.SetStatusSnapshot(snap.Projects, snap.StatusCounts())
	}
	log.Debug("monitoring: snapshot",
		zap.Int("projects", snap.Projects),
		zap.Int("items", snap.Items),
		zap.Float64("completion_rate", snap.CompletionRate),
	)
}
