package ctxsync

import (
	"context"
	"sync"
	"sync/atomic"
)

// WaitGroup waits for a collection of goroutines to finish, in the style of
// [sync.WaitGroup]: [WaitGroup.Add] registers work, each worker calls
// [WaitGroup.Done] when it finishes, and [WaitGroup.Wait] (or
// [WaitGroup.WaitWithContext]) blocks until the count reaches zero.
//
// The packed-counter trick is the same one [sync.WaitGroup] itself uses:
// counter and waiter count share a single uint64 so both can be updated
// with one atomic op, which is what lets Add and Wait avoid a mutex on the
// hot path.
type WaitGroup struct {
	// packed holds the pending-work counter in its high 32 bits and the
	// number of goroutines blocked in Wait in its low 32 bits.
	packed atomic.Uint64
	gate   chan struct{}
	swap   sync.Mutex
}

// NewWaitGroup returns a ready-to-use WaitGroup with zero pending work.
func NewWaitGroup() *WaitGroup {
	return &WaitGroup{gate: make(chan struct{})}
}

// Add adds delta, which may be negative, to the counter. A transition to
// zero releases every goroutine currently blocked in Wait. Add panics if
// the counter would go negative, or if a positive delta races a Wait that
// observed a zero counter — the same misuse [sync.WaitGroup.Add] detects.
//
// As with [sync.WaitGroup], calls that raise the counter from zero must
// happen before the corresponding Wait; a WaitGroup reused for a second
// round of work must not call Add again until the prior Wait has
// returned.
func (wg *WaitGroup) Add(delta int) {
	next := wg.packed.Add(uint64(delta) << 32)
	pending := int32(next >> 32)
	blocked := uint32(next)

	if pending < 0 {
		panic("ctxsync: negative WaitGroup counter")
	}
	if blocked != 0 && delta > 0 && pending == int32(delta) {
		panic("ctxsync: WaitGroup misuse: Add called concurrently with Wait")
	}
	if pending > 0 || blocked == 0 {
		return
	}

	// pending just dropped to zero while goroutines are parked in Wait.
	// No further Add/Wait can race here: Add must not overlap a Wait,
	// and Wait never increments blocked once it has observed pending==0.
	if wg.packed.Load() != next {
		panic("ctxsync: WaitGroup misuse: Add called concurrently with Wait")
	}

	wg.packed.Store(0)
	wg.swap.Lock()
	close(wg.gate)
	wg.gate = make(chan struct{})
	wg.swap.Unlock()
}

// Done decrements the counter by one, the usual "this unit of work
// finished" call from a worker goroutine.
func (wg *WaitGroup) Done() {
	wg.Add(-1)
}

// Wait blocks until the counter reaches zero. Equivalent to
// WaitWithContext(context.Background()).
func (wg *WaitGroup) Wait() {
	_ = wg.WaitWithContext(context.Background())
}

// WaitWithContext blocks until the counter reaches zero or ctx is done,
// whichever happens first, returning ctx.Err() in the latter case.
func (wg *WaitGroup) WaitWithContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	for {
		wg.swap.Lock()
		gate := wg.gate
		wg.swap.Unlock()

		state := wg.packed.Load()
		pending := int32(state >> 32)
		if pending == 0 {
			return nil
		}

		if !wg.packed.CompareAndSwap(state, state+1) {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-gate:
		}

		if wg.packed.Load() != 0 {
			panic("ctxsync: WaitGroup is reused before previous Wait has returned")
		}
		return nil
	}
}
