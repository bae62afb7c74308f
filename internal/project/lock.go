package project

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
)

// Locker serializes read-modify-write sequences on a single project.
// The returned unlock func is safe to call more than once.
type Locker interface {
	Lock(ctx context.Context, projectID string) (func(), error)
}

// MemoryLocker is an in-process keyed mutex. Entries are dropped once no
// caller holds or waits on them.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sem  chan struct{}
	refs int
}

// NewMemoryLocker creates an empty MemoryLocker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]*keyLock)}
}

// Lock blocks until the project lock is held or ctx is done.
func (m *MemoryLocker) Lock(ctx context.Context, projectID string) (func(), error) {
	m.mu.Lock()
	l, ok := m.locks[projectID]
	if !ok {
		l = &keyLock{sem: make(chan struct{}, 1)}
		m.locks[projectID] = l
	}
	l.refs++
	m.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		m.release(projectID, l)
		return nil, eris.Wrapf(ctx.Err(), "lock: acquire %s", projectID)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.sem
			m.release(projectID, l)
		})
	}, nil
}

func (m *MemoryLocker) release(projectID string, l *keyLock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, projectID)
	}
}

// size reports how many keys are tracked.
func (m *MemoryLocker) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
