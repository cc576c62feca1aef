// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package swapbox

import (
	"runtime"
	"sync/atomic"

	"github.com/petenewcomb/swapbox-go/internal/lock"
)

// A Box is a handle to a shared cell holding a lock and a slot that is either
// empty or holds one heap-allocated value of type T. Boxes are created with
// [New], [NewBoxed], or [NewEmpty]; [Box.Clone] creates additional handles to
// the same cell. The cell lives until its last handle is released, either
// explicitly with [Box.Release] or by the runtime once the handle becomes
// unreachable. Releasing the last handle drops whatever value the slot still
// holds.
//
// A Box may be used concurrently from any number of goroutines, with one
// exception: a handle must not be used by one goroutine while another is
// releasing it.
type Box[T any] struct {
	ref *ref[T]
}

// ref is the part of a handle that its runtime cleanup can reach without
// keeping the Box itself reachable.
type ref[T any] struct {
	c        *cell[T]
	released atomic.Bool
}

type cell[T any] struct {
	mu   lock.Mutex
	slot *T // guarded by mu, nil when empty

	// One share per live handle plus one per held guard.
	refs atomic.Int64
}

// Creates a new [Box] whose slot holds a fresh allocation containing v.
func New[T any](v T) *Box[T] {
	return newBox(newMutex(), &v)
}

// Creates a new [Box] whose slot holds p itself, or is empty if p is nil. The
// box takes ownership of the allocation: the caller must not access *p again
// except through a [Guard].
func NewBoxed[T any](p *T) *Box[T] {
	return newBox(newMutex(), p)
}

// Creates a new [Box] with an empty slot.
func NewEmpty[T any]() *Box[T] {
	return newBox[T](newMutex(), nil)
}

func newBox[T any](mu lock.Mutex, p *T) *Box[T] {
	c := &cell[T]{
		mu:   mu,
		slot: p,
	}
	c.refs.Store(1)
	return c.newHandle()
}

// newHandle wraps a share that the caller has already added to c.refs.
func (c *cell[T]) newHandle() *Box[T] {
	r := &ref[T]{c: c}
	b := &Box[T]{ref: r}
	runtime.AddCleanup(b, (*ref[T]).release, r)
	return b
}

// Clone returns a new handle to the same cell. It does not lock.
//
// Panics if b has been released.
func (b *Box[T]) Clone() *Box[T] {
	return b.acquire().newHandle()
}

// Release drops this handle's share of the cell. Releasing the last share
// destroys the cell: the lock is acquired one final time and the slot's value,
// if any, is dropped. Calling Release more than once on the same handle has no
// further effect, but any other use of a released handle panics.
//
// A goroutine that holds a [Guard] may release handles to the guarded cell;
// the guard keeps the cell alive until it is unlocked.
func (b *Box[T]) Release() {
	b.ref.release()
}

func (r *ref[T]) release() {
	if r.released.CompareAndSwap(false, true) {
		r.c.unref()
	}
}

// acquire adds a share on behalf of a new handle or guard.
func (b *Box[T]) acquire() *cell[T] {
	if b.ref.released.Load() {
		panic("box handle was released")
	}
	c := b.ref.c
	c.refs.Add(1)
	// Make sure the runtime cannot release b's own share before the new one
	// has been added.
	runtime.KeepAlive(b)
	return c
}

func (c *cell[T]) unref() {
	n := c.refs.Add(-1)
	if n < 0 {
		panic("box share count underflow")
	}
	if n == 0 {
		c.destroy()
	}
}

func (c *cell[T]) destroy() {
	// Nothing can observe poison from here on, so it is ignored.
	_ = c.mu.Lock()
	defer c.mu.Unlock(false)
	old := c.slot
	c.slot = nil
	drop(old)
}

// Lock blocks until the calling goroutine holds the cell's lock and returns a
// [Guard] granting exclusive access to the slot. The guard must be unlocked
// exactly once, preferably with a deferred call:
//
//	g, err := box.Lock()
//	defer g.Unlock()
//
// The returned guard is always usable. The error is [ErrPoisoned] if a
// previous holder panicked while holding the lock and the poison has not been
// cleared; the caller may inspect or reset the slot and call
// [Guard.ClearPoison], or propagate the error. Lock never returns an error in
// builds using the fast lock variant.
//
// Lock must not be called by a goroutine that already holds a guard for the
// same cell; doing so deadlocks.
//
// Panics if b has been released.
func (b *Box[T]) Lock() (*Guard[T], error) {
	c := b.acquire()
	g := &Guard[T]{c: c}
	if c.mu.Lock() {
		g.poisoned = true
		return g, ErrPoisoned
	}
	return g, nil
}

// Do locks the cell, calls f with the guard, and unlocks, releasing the lock
// on every exit path. If f panics, the lock is released (poisoning it in the
// poisoning variant) and the panic continues. f must not unlock the guard
// itself or retain it after returning.
//
// Do returns [ErrPoisoned] if the lock was poisoned when acquired, in which
// case f has still been called and may have used [Guard.ClearPoison].
//
// As with a deferred [Guard.Unlock], a panic in f is recovered and raised
// again with the same value, and f exiting its goroutine through
// [runtime.Goexit] releases the lock without poisoning it.
func (b *Box[T]) Do(f func(*Guard[T])) error {
	if f == nil {
		panic("function must be non-nil")
	}
	g, err := b.Lock()
	didPanic := true
	defer func() {
		if !didPanic {
			g.unlock(false)
			return
		}
		// recover returns nil only when f called runtime.Goexit.
		r := recover()
		g.unlock(r != nil)
		if r != nil {
			panic(r)
		}
	}()
	f(g)
	didPanic = false
	return err
}

// Replace stores a fresh allocation containing v in the slot, dropping the
// previous value if there was one. The swap is atomic with respect to every
// other holder of the cell.
//
// If the lock was poisoned the replacement is still made, but the poison is
// left in place and [ErrPoisoned] is returned.
func (b *Box[T]) Replace(v T) error {
	return b.ReplaceBoxed(&v)
}

// ReplaceBoxed is like [Box.Replace] but installs p itself, taking ownership
// of the allocation. A nil p clears the slot. Installing the allocation that
// the slot already holds has no effect.
func (b *Box[T]) ReplaceBoxed(p *T) error {
	return b.Do(func(g *Guard[T]) {
		g.ReplaceBoxed(p)
	})
}

// Clear empties the slot, dropping the previous value if there was one.
// Poisoning is reported as for [Box.Replace].
func (b *Box[T]) Clear() error {
	return b.ReplaceBoxed(nil)
}

// ReplaceTake is reserved for an atomic swap that returns the displaced
// allocation instead of dropping it. It is not implemented: it always returns
// nil and [ErrNotImplemented] without locking or modifying the slot.
func (b *Box[T]) ReplaceTake(p *T) (*T, error) {
	return nil, ErrNotImplemented
}
