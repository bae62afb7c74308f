package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

type transition struct{ from, to State }

func newTestBreaker(cfg BreakerConfig) (*Breaker, *clock, *[]transition) {
	var seen []transition
	cfg.OnStateChange = func(_ string, from, to State) { seen = append(seen, transition{from, to}) }
	b := NewBreaker("kafka-audit", cfg)
	c := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	b.now = c.now
	return b, c, &seen
}

var errBroker = errors.New("broker down")

func fail(context.Context) error { return errBroker }
func ok(context.Context) error   { return nil }

func TestBreaker_OpensAtThreshold(t *testing.T) {
	t.Parallel()

	b, c, seen := newTestBreaker(BreakerConfig{Threshold: 2, Cooldown: time.Minute})
	ctx := context.Background()

	require.ErrorIs(t, b.Do(ctx, fail), errBroker)
	assert.Equal(t, Closed, b.Snapshot().State)
	require.ErrorIs(t, b.Do(ctx, fail), errBroker)

	snap := b.Snapshot()
	assert.Equal(t, Open, snap.State)
	assert.Equal(t, c.t, snap.OpenedAt)

	called := false
	err := b.Do(ctx, func(context.Context) error { called = true; return nil })
	require.ErrorIs(t, err, ErrOpen)
	assert.Contains(t, err.Error(), "kafka-audit")
	assert.False(t, called)
	assert.Equal(t, []transition{{Closed, Open}}, *seen)
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	t.Parallel()

	b, _, _ := newTestBreaker(BreakerConfig{Threshold: 2, Cooldown: time.Minute})
	ctx := context.Background()

	_ = b.Do(ctx, fail)
	require.NoError(t, b.Do(ctx, ok))
	_ = b.Do(ctx, fail)
	assert.Equal(t, Closed, b.Snapshot().State)
	assert.Equal(t, 1, b.Snapshot().Failures)
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	t.Parallel()

	b, c, seen := newTestBreaker(BreakerConfig{Threshold: 1, Cooldown: time.Minute})
	ctx := context.Background()

	_ = b.Do(ctx, fail)
	c.advance(59 * time.Second)
	require.ErrorIs(t, b.Do(ctx, ok), ErrOpen)

	c.advance(time.Second)
	assert.Equal(t, HalfOpen, b.Snapshot().State)
	require.NoError(t, b.Do(ctx, ok))
	assert.Equal(t, Closed, b.Snapshot().State)
	assert.Equal(t, []transition{{Closed, Open}, {Open, HalfOpen}, {HalfOpen, Closed}}, *seen)
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	t.Parallel()

	b, c, _ := newTestBreaker(BreakerConfig{Threshold: 3, Cooldown: time.Minute})
	ctx := context.Background()

	for range 3 {
		_ = b.Do(ctx, fail)
	}
	c.advance(time.Minute)
	require.ErrorIs(t, b.Do(ctx, fail), errBroker)

	snap := b.Snapshot()
	assert.Equal(t, Open, snap.State)
	assert.Equal(t, c.t, snap.OpenedAt)
}

func TestBreaker_LimitsHalfOpenTrials(t *testing.T) {
	t.Parallel()

	b, c, _ := newTestBreaker(BreakerConfig{Threshold: 1, Cooldown: time.Second, Trials: 1})
	ctx := context.Background()

	_ = b.Do(ctx, fail)
	c.advance(time.Second)

	var inner error
	require.NoError(t, b.Do(ctx, func(context.Context) error {
		inner = b.Do(ctx, ok)
		return nil
	}))
	require.ErrorIs(t, inner, ErrOpen)
	assert.Contains(t, inner.Error(), "half-open")
}

func TestBreaker_IgnoresCancellation(t *testing.T) {
	t.Parallel()

	b, _, _ := newTestBreaker(BreakerConfig{Threshold: 1, Cooldown: time.Minute})

	err := b.Do(context.Background(), func(context.Context) error { return context.DeadlineExceeded })
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, Closed, b.Snapshot().State)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	require.ErrorIs(t, b.Do(ctx, func(context.Context) error { called = true; return nil }), context.Canceled)
	assert.False(t, called)
}

func TestBreaker_TripsFilter(t *testing.T) {
	t.Parallel()

	b, _, _ := newTestBreaker(BreakerConfig{Threshold: 1, Cooldown: time.Minute, Trips: IsTransient})
	ctx := context.Background()

	_ = b.Do(ctx, fail)
	assert.Equal(t, Closed, b.Snapshot().State, "permanent errors do not trip")

	_ = b.Do(ctx, func(context.Context) error { return Transient(errBroker) })
	assert.Equal(t, Open, b.Snapshot().State)
}

func TestNewBreaker_Defaults(t *testing.T) {
	t.Parallel()

	b := NewBreaker("x", BreakerConfig{})
	assert.Equal(t, "x", b.Name())
	assert.Equal(t, DefaultBreakerConfig().Threshold, b.cfg.Threshold)
	assert.Equal(t, DefaultBreakerConfig().Cooldown, b.cfg.Cooldown)
	assert.Equal(t, 1, b.cfg.Trials)
}

func TestState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "closed", Closed.String())
	assert.Equal(t, "open", Open.String())
	assert.Equal(t, "half-open", HalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
