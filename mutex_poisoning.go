// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

//go:build !swapbox_fastlock

package swapbox

import "github.com/petenewcomb/swapbox-go/internal/lock"

// PoisonsOnPanic reports whether this build guards cells with a lock that is
// poisoned when a holder panics.
const PoisonsOnPanic = true

func newMutex() lock.Mutex {
	return &lock.Poisoning{}
}
