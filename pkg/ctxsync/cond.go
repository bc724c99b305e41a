package ctxsync

import (
	"context"
	"sync"
	"sync/atomic"
	"unsafe"
)

// Cond is a condition variable in the style of [sync.Cond]: a rendezvous
// point for goroutines waiting on, or announcing, a change to some shared
// state guarded by L. Unlike [sync.Cond] it also offers a context-bounded
// wait so a caller can give up instead of blocking forever.
//
// As with [sync.Cond], the zero value is not usable; construct one with
// [NewCond], and never copy a Cond after it has been used — see
// [Roberto Clapis's series on advanced concurrency patterns] and
// [Bryan Mills's talk on concurrency patterns] for why channel-based
// rendezvous is usually preferable to a raw condition variable in Go.
//
// [Roberto Clapis's series on advanced concurrency patterns]: https://blogtitle.github.io/categories/concurrency/
// [Bryan Mills's talk on concurrency patterns]: https://drive.google.com/file/d/1nPdvhB0PutEJzdCq5ms6UI58dp50fcAN/view
type Cond struct {
	noCopy noCopy

	// L guards the condition itself; callers hold it both while mutating
	// the condition and while calling Wait/WaitWithContext.
	L sync.Locker

	wake    chan struct{}
	parked  atomic.Int64
	checker copyChecker

	rendezvous sync.Mutex
}

// NewCond returns a new Cond backed by lock l.
func NewCond(l sync.Locker) *Cond {
	return &Cond{L: l, wake: make(chan struct{}, 1)}
}

// Wait atomically unlocks c.L and suspends the caller until Signal or
// Broadcast wakes it, then reacquires c.L before returning. It is
// equivalent to WaitWithContext(context.Background()). As with
// [sync.Cond.Wait], callers must re-check their condition in a loop.
func (c *Cond) Wait() {
	_ = c.WaitWithContext(context.Background())
}

// WaitWithContext behaves like Wait but also returns ctx.Err() if ctx is
// done before a wakeup arrives. c.L is reacquired before returning either
// way.
func (c *Cond) WaitWithContext(ctx context.Context) error {
	c.checker.check()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	c.parked.Add(1)
	c.L.Unlock()

	c.rendezvous.Lock()
	wake := c.wake
	c.rendezvous.Unlock()

	var err error
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case <-wake:
	}
	c.parked.Add(-1)

	c.L.Lock()
	return err
}

// Signal wakes at most one goroutine parked in Wait, if any. The caller
// need not hold c.L. As with [sync.Cond.Signal], no ordering among
// multiple waiters is guaranteed.
func (c *Cond) Signal() {
	c.checker.check()
	if c.parked.Load() <= 0 {
		return
	}
	c.rendezvous.Lock()
	select {
	case c.wake <- struct{}{}:
	default:
	}
	c.rendezvous.Unlock()
}

// Broadcast wakes every goroutine currently parked in Wait. The caller
// need not hold c.L.
func (c *Cond) Broadcast() {
	c.checker.check()
	if c.parked.Load() <= 0 {
		return
	}
	c.rendezvous.Lock()
	close(c.wake)
	c.wake = make(chan struct{}, 1)
	c.rendezvous.Unlock()
}

// copyChecker records its own address on first use and panics on any
// later check from a different address, catching a Cond copied by value.
// This is the same three-step technique [sync.Cond] uses internally.
type copyChecker uintptr

func (c *copyChecker) check() {
	self := uintptr(unsafe.Pointer(c))
	if uintptr(*c) != self &&
		!atomic.CompareAndSwapUintptr((*uintptr)(c), 0, self) &&
		uintptr(*c) != self {
		panic("ctxsync.Cond is copied")
	}
}

// noCopy is embedded (not literally, since Go forbids that combined with
// its own methods here — declared as a plain field) into structs that must
// not be copied after first use, so `go vet`'s copylocks analysis flags
// accidental copies. It carries no state and has no runtime effect.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
