// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package sim

import (
	"fmt"
	"sync"
)

// Counter is the value held by simulated boxes. Every counter is created by a
// Tracker, which is told when the box drops it.
type Counter struct {
	ID      int
	N       int
	tracker *Tracker
}

func (c *Counter) Drop() {
	c.tracker.dropped(c)
}

// Tracker accounts for every counter it creates so that a finished simulation
// can check that each was dropped exactly once and that no increment was lost.
type Tracker struct {
	mu       sync.Mutex
	created  int
	drops    []int
	droppedN int64
}

func (tr *Tracker) New() *Counter {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	c := &Counter{
		ID:      tr.created,
		tracker: tr,
	}
	tr.created++
	tr.drops = append(tr.drops, 0)
	return c
}

func (tr *Tracker) dropped(c *Counter) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.drops[c.ID]++
	tr.droppedN += int64(c.N)
}

// Created returns the number of counters created so far.
func (tr *Tracker) Created() int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.created
}

// DroppedTotal returns the sum of the counts held by dropped counters at the
// time they were dropped.
func (tr *Tracker) DroppedTotal() int64 {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.droppedN
}

// Undropped returns a description of every counter that has not been dropped
// exactly once, or nil if there are none.
func (tr *Tracker) Undropped() []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	var bad []string
	for id, n := range tr.drops {
		if n != 1 {
			bad = append(bad, fmt.Sprintf("Counter#%d dropped %d times", id, n))
		}
	}
	return bad
}
