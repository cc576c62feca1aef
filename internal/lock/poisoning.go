// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package lock

import (
	"sync"
)

// Poisoning is a [Mutex] built on [sync.Mutex] that remembers whether a holder
// panicked while holding it. Once poisoned it stays poisoned, reporting so to
// every subsequent holder, until one of them calls ClearPoison.
//
// The zero value is unlocked and not poisoned.
type Poisoning struct {
	mu       sync.Mutex
	poisoned bool // guarded by mu
}

var _ Mutex = &Poisoning{}

func (m *Poisoning) Lock() bool {
	m.mu.Lock()
	return m.poisoned
}

func (m *Poisoning) Unlock(panicking bool) {
	if panicking {
		m.poisoned = true
	}
	m.mu.Unlock()
}

func (m *Poisoning) ClearPoison() {
	m.poisoned = false
}
