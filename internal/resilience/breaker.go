package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// ErrOpen is returned without calling through while a breaker is open.
var ErrOpen = errors.New("breaker open")

// State is the position of a Breaker.
type State int

// Breaker states.
const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes a Breaker.
type BreakerConfig struct {
	// Threshold is the number of consecutive tripping failures that opens
	// the breaker.
	Threshold int

	// Cooldown is how long the breaker stays open before letting trial
	// calls through.
	Cooldown time.Duration

	// Trials is the number of concurrent calls allowed while half-open.
	Trials int

	// Trips decides whether an error counts toward Threshold. Context
	// cancellation never counts. Nil counts every other error.
	Trips func(error) bool

	// OnStateChange is called outside the lock after each transition.
	OnStateChange func(name string, from, to State)
}

// DefaultBreakerConfig opens after five failures and admits one trial call
// after thirty seconds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{Threshold: 5, Cooldown: 30 * time.Second, Trials: 1}
}

// Snapshot is a point-in-time view of a Breaker.
type Snapshot struct {
	Name     string
	State    State
	Failures int
	OpenedAt time.Time
}

// Breaker stops calling a dependency that keeps failing, then lets a few
// trial calls through once Cooldown has elapsed.
type Breaker struct {
	name string
	cfg  BreakerConfig
	now  func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	inflight int
	openedAt time.Time
}

// NewBreaker returns a closed breaker. Zero config values fall back to
// DefaultBreakerConfig.
func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	def := DefaultBreakerConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	if cfg.Trials <= 0 {
		cfg.Trials = def.Trials
	}
	return &Breaker{name: name, cfg: cfg, now: time.Now}
}

// Name identifies the breaker in errors and callbacks.
func (b *Breaker) Name() string { return b.name }

// Do runs fn unless the breaker is open.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.admit(); err != nil {
		return err
	}
	err := fn(ctx)
	b.settle(err)
	return err
}

// Snapshot reports the current state.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	snap := Snapshot{Name: b.name, State: b.state, Failures: b.failures, OpenedAt: b.openedAt}
	if b.cooledLocked() {
		snap.State = HalfOpen
		snap.Failures = 0
	}
	return snap
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	from := b.state
	b.cooldownLocked()
	to := b.state

	var err error
	switch {
	case b.state == Open:
		err = eris.Wrapf(ErrOpen, "resilience: %s", b.name)
	case b.state == HalfOpen && b.inflight >= b.cfg.Trials:
		err = eris.Wrapf(ErrOpen, "resilience: %s half-open", b.name)
	default:
		b.inflight++
	}
	b.mu.Unlock()

	b.notify(from, to)
	return err
}

func (b *Breaker) settle(err error) {
	b.mu.Lock()
	from := b.state
	b.inflight--

	switch {
	case err == nil:
		b.failures = 0
		b.state = Closed
	case !b.trips(err):
		// Errors that do not trip leave the count alone.
	case b.state == HalfOpen:
		b.openLocked()
	default:
		b.failures++
		if b.failures >= b.cfg.Threshold {
			b.openLocked()
		}
	}
	to := b.state
	b.mu.Unlock()

	b.notify(from, to)
}

func (b *Breaker) trips(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if b.cfg.Trips == nil {
		return true
	}
	return b.cfg.Trips(err)
}

func (b *Breaker) openLocked() {
	b.state = Open
	b.openedAt = b.now()
}

func (b *Breaker) cooledLocked() bool {
	return b.state == Open && b.now().Sub(b.openedAt) >= b.cfg.Cooldown
}

func (b *Breaker) cooldownLocked() {
	if b.cooledLocked() {
		b.state = HalfOpen
		b.failures = 0
	}
}

func (b *Breaker) notify(from, to State) {
	if from != to && b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.name, from, to)
	}
}
