// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package sim

import (
	"time"

	"github.com/stretchr/testify/require"
)

type Result struct {
	Increments           int64
	Panics               int64
	PoisonedAcquisitions int64
	UnexpectedErrors     int64
	MaxHolders           int64
	CountersCreated      int
	OverallDuration      time.Duration
}

// check verifies the invariants every execution of plan must satisfy once all
// of its handles have been released.
func (r *Result) check(t require.TestingT, plan *Plan, tracker *Tracker, poisons bool) {
	chk := require.New(t)

	chk.LessOrEqual(r.MaxHolders, int64(1), "lock was held by more than one goroutine")
	chk.Zero(r.UnexpectedErrors)
	chk.Equal(int64(plan.CountByKind[Panic]), r.Panics)
	if poisons {
		// The first acquisition after each panic sees the poison, and
		// possibly more before one of them clears it.
		chk.GreaterOrEqual(r.PoisonedAcquisitions, r.Panics)
	} else {
		chk.Zero(r.PoisonedAcquisitions)
	}

	chk.Empty(tracker.Undropped())
	chk.Equal(r.Increments, tracker.DroppedTotal(), "increments were lost")
}
