// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package swapbox provides a thread-safe, hot-swappable holder for an optional
// heap-allocated value. A [Box] is a handle to a shared cell containing a lock
// and a slot that is either empty or holds one value. Any number of goroutines
// may hold handles to the same cell, borrow the current value under mutual
// exclusion through a [Guard], and atomically replace or clear it without the
// other holders needing to know when a swap happened. The typical use is
// shared state that must be replaceable at run time, such as a plugin, a
// strategy object, or a client for a resource whose configuration changes,
// while other goroutines keep using whatever instance is current.
//
// Access is exclusive only: there is no reader/writer split, and every access
// to the slot goes through the one lock. A displaced value that implements
// [Dropper] is dropped while the lock is still held, so no later holder can
// observe the old value once a replacement has been made.
//
// Two lock variants are available, selected at build time. By default a cell
// is guarded by a poisoning mutex: if a holder panics while holding the lock,
// subsequent holders receive [ErrPoisoned] along with their guard until one of
// them calls [Guard.ClearPoison]. Building with the swapbox_fastlock tag
// selects a non-poisoning lock based on [golang.org/x/sync/semaphore] instead.
package swapbox

//go:generate go run -C internal/cmd/chartgen . ../../../bench.txt
