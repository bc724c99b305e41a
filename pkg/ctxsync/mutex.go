// Package ctxsync provides context-aware equivalents of [sync.Mutex],
// [sync.Cond] and [sync.WaitGroup]. The datastore's single-writer executor
// (see [github.com/webbestmaster/nedb/adapter/datastore]) needs a caller's
// context cancellation to unblock a queued wait instead of hanging until
// the executor gets around to it, which the stdlib primitives cannot do.
package ctxsync

import "context"

// Mutex is a channel-backed mutual exclusion lock whose Lock can be bounded
// by a [context.Context] in addition to the usual unconditional form.
type Mutex struct {
	slot chan struct{}
}

// NewMutex returns a ready-to-use, unlocked Mutex.
func NewMutex() *Mutex {
	return &Mutex{slot: make(chan struct{}, 1)}
}

// Lock blocks until the mutex is acquired. Equivalent to
// [Mutex.LockWithContext] with [context.Background].
func (m *Mutex) Lock() {
	_ = m.LockWithContext(context.Background())
}

// LockWithContext blocks until the mutex is acquired or ctx is done,
// whichever happens first.
func (m *Mutex) LockWithContext(ctx context.Context) error {
	select {
	case m.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryLock acquires the mutex without blocking, reporting whether it
// succeeded.
func (m *Mutex) TryLock() bool {
	select {
	case m.slot <- struct{}{}:
		return true
	default:
		return false
	}
}

// Unlock releases the mutex. It panics if the mutex is not locked.
func (m *Mutex) Unlock() {
	select {
	case <-m.slot:
	default:
		panic("ctxsync: unlock of unlocked mutex")
	}
}
