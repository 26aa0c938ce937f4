// internal/game/guard.go
package game

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Guard serializes work per session id. Callers for the same id run one at a
// time in arrival order; different ids never block each other.
//
// Each id gets a capacity-1 channel used as a semaphore. Blocked senders on a
// channel are queued FIFO by the runtime, which gives arrival ordering. The
// map lock is only held to look up or drop an entry, never while fn runs.
type Guard struct {
	acquireTimeout time.Duration

	mu    sync.Mutex
	locks map[uuid.UUID]*sessionLock
}

type sessionLock struct {
	sem  chan struct{}
	refs int // callers holding or waiting on sem, guarded by Guard.mu
}

// NewGuard builds a Guard. A positive acquireTimeout bounds how long Do waits
// for a busy session; zero waits until ctx is done.
func NewGuard(acquireTimeout time.Duration) *Guard {
	return &Guard{
		acquireTimeout: acquireTimeout,
		locks:          make(map[uuid.UUID]*sessionLock),
	}
}

// Do runs fn while holding exclusive access to sessionID. The lock is
// released on every exit path, including panics in fn.
func (g *Guard) Do(ctx context.Context, sessionID uuid.UUID, fn func() error) error {
	l := g.ref(sessionID)
	defer g.unref(sessionID, l)

	var timeout <-chan time.Time
	if g.acquireTimeout > 0 {
		t := time.NewTimer(g.acquireTimeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("session %s: %w", sessionID, ctx.Err())
	case <-timeout:
		return fmt.Errorf("session %s: %w", sessionID, ErrGuardTimeout)
	}
	defer func() { <-l.sem }()

	return fn()
}

// Len returns the number of sessions with a holder or waiter.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.locks)
}

func (g *Guard) ref(sessionID uuid.UUID) *sessionLock {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.locks[sessionID]
	if !ok {
		l = &sessionLock{sem: make(chan struct{}, 1)}
		g.locks[sessionID] = l
	}
	l.refs++
	return l
}

func (g *Guard) unref(sessionID uuid.UUID, l *sessionLock) {
	g.mu.Lock()
	defer g.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(g.locks, sessionID)
	}
}
