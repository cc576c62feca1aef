// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package swapbox

// A Guard represents one acquisition of a cell's lock and grants exclusive
// access to its slot until [Guard.Unlock] is called. Guards are obtained from
// [Box.Lock] or [Box.Do]. A guard must not be copied, shared with other
// goroutines, or used after it has been unlocked; pointers obtained from it
// must not be retained past the unlock either.
//
// A guard holds its own share of the cell, so the cell outlives it even if
// every handle is released while it is held.
type Guard[T any] struct {
	c        *cell[T]
	poisoned bool
}

func (g *Guard[T]) cell() *cell[T] {
	if g.c == nil {
		panic("guard used after unlock")
	}
	return g.c
}

// Get returns a copy of the value in the slot and true, or the zero value and
// false if the slot is empty.
func (g *Guard[T]) Get() (T, bool) {
	p := g.cell().slot
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}

// Present reports whether the slot holds a value.
func (g *Guard[T]) Present() bool {
	return g.cell().slot != nil
}

// Mut returns a pointer through which the value in the slot may be modified in
// place, or nil if the slot is empty. Modifications are visible to every
// subsequent holder of the lock.
func (g *Guard[T]) Mut() *T {
	return g.cell().slot
}

// Boxed returns the slot's allocation itself, or nil if the slot is empty. It
// is the same pointer that was passed to [NewBoxed] or [Box.ReplaceBoxed] (or
// allocated by [New] or [Box.Replace]), which lets callers that track
// allocations by identity recognize it. Ownership stays with the box.
func (g *Guard[T]) Boxed() *T {
	return g.cell().slot
}

// Replace stores a fresh allocation containing v in the slot, dropping the
// previous value if there was one.
func (g *Guard[T]) Replace(v T) {
	g.ReplaceBoxed(&v)
}

// ReplaceBoxed installs p in the slot, taking ownership of the allocation and
// dropping the previous value if there was one. A nil p clears the slot.
// Installing the allocation that the slot already holds has no effect, and
// installing a pointer (or an interface holding a pointer) that the slot
// already holds replaces the allocation without dropping the value.
func (g *Guard[T]) ReplaceBoxed(p *T) {
	c := g.cell()
	old := c.slot
	if old == p {
		return
	}
	c.slot = p
	if old != nil && p != nil && sameReference(old, p) {
		return
	}
	drop(old)
}

// Clear empties the slot, dropping the previous value if there was one.
func (g *Guard[T]) Clear() {
	g.ReplaceBoxed(nil)
}

// Poisoned reports whether the lock was poisoned when this guard acquired it
// and has not been cleared through this guard since.
func (g *Guard[T]) Poisoned() bool {
	g.cell()
	return g.poisoned
}

// ClearPoison marks the lock as no longer poisoned. Call it once the slot has
// been inspected or reset and is known to be consistent again. It has no
// effect in the fast lock variant, which never poisons.
func (g *Guard[T]) ClearPoison() {
	g.cell().mu.ClearPoison()
	g.poisoned = false
}

// Unlock releases the lock. It should be deferred immediately after a
// successful [Box.Lock]: when called directly by a deferred statement while
// the critical section is panicking, it releases the lock, poisons it (in the
// poisoning variant), and lets the panic continue. The panic is recovered and
// raised again with the same value, so an unrecovered panic reports Unlock as
// the raising frame, above the frames of the original panic. A goroutine that
// exits through [runtime.Goexit] (such as t.FailNow) releases the lock without
// poisoning it. [Box.Do] behaves the same way.
//
// Panics if the guard has already been unlocked.
func (g *Guard[T]) Unlock() {
	// recover only intercepts a panic when Unlock is itself the deferred call.
	if r := recover(); r != nil {
		g.unlock(true)
		panic(r)
	}
	g.unlock(false)
}

func (g *Guard[T]) unlock(panicking bool) {
	c := g.cell()
	g.c = nil
	c.mu.Unlock(panicking)
	c.unref()
}
