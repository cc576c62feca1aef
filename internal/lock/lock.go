// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package lock provides the mutual exclusion primitives that guard the slot of
// a [github.com/petenewcomb/swapbox-go] box. Both implementations satisfy
// [Mutex]; which one a build uses by default is decided by build tags in the
// swapbox package, never at run time.
package lock

// Mutex is the locking interface shared by the lock variants.
type Mutex interface {
	// Blocks until the lock is held by the caller. Returns true if a previous
	// holder panicked while holding the lock and the poison has not been
	// cleared since.
	Lock() (poisoned bool)

	// Releases the lock. The panicking argument reports whether the holder is
	// unwinding from a panic; implementations that poison must remember it.
	Unlock(panicking bool)

	// Clears the poison flag. Must only be called while holding the lock.
	ClearPoison()
}
