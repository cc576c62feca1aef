// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package swapbox

type constError string

func (e constError) Error() string {
	return string(e)
}

// ErrPoisoned is returned along with a usable [Guard] when a previous holder
// panicked while holding the lock. The slot may have been left in an
// inconsistent state. The poison persists until [Guard.ClearPoison] is called.
// Only builds using the poisoning lock variant ever return it.
const ErrPoisoned = constError("lock poisoned")

// ErrNotImplemented is always returned by [Box.ReplaceTake].
const ErrNotImplemented = constError("take-and-replace not implemented")
