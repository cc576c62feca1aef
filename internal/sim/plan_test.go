// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package sim_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/petenewcomb/swapbox-go/internal/sim"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestPlanRespectsConfig(t *testing.T) {
	config := sim.DefaultConfig
	rapid.Check(t, func(t *rapid.T) {
		chk := require.New(t)
		plan := sim.NewPlan(t, &config)

		chk.GreaterOrEqual(len(plan.Workers), config.Worker.Count.Min)
		chk.LessOrEqual(len(plan.Workers), config.Worker.Count.Max)

		stepCount := 0
		countByKind := make(map[sim.StepKind]int)
		for _, steps := range plan.Workers {
			chk.LessOrEqual(len(steps), config.Worker.StepCount.Max)
			for _, s := range steps {
				chk.Contains(config.Step.Kinds, s.Kind)
				chk.LessOrEqual(s.Delay, config.Step.Delay.Max)
				chk.LessOrEqual(s.Hold, config.Step.Hold.Max)
				if s.Kind == sim.Replace || s.Kind == sim.Clear {
					chk.Zero(s.Hold, "%#v", s)
				}
				countByKind[s.Kind]++
				stepCount++
			}
		}
		chk.Equal(stepCount, plan.StepCount)
		chk.Equal(countByKind, plan.CountByKind)
	})
}

func TestPlanSchedule(t *testing.T) {
	config := sim.DefaultConfig
	rapid.Check(t, func(t *rapid.T) {
		chk := require.New(t)
		plan := sim.NewPlan(t, &config)
		schedule := plan.Schedule()
		chk.Len(schedule, plan.StepCount)

		nextIndex := make([]int, len(plan.Workers))
		workerTime := make([]time.Duration, len(plan.Workers))
		for i, s := range schedule {
			if i > 0 {
				chk.LessOrEqual(schedule[i-1].Cmp(&s), 0, "out of order at %d", i)
			}

			// Each worker's steps appear once, in order, no earlier than the
			// previous one finished plus the delay.
			chk.Equal(nextIndex[s.Worker], s.Index)
			nextIndex[s.Worker]++
			chk.Equal(plan.Workers[s.Worker][s.Index], s.Step)
			chk.Equal(workerTime[s.Worker]+s.Step.Delay, s.Time)
			workerTime[s.Worker] = s.Time + s.Step.Hold
		}
		for w, steps := range plan.Workers {
			chk.Equal(len(steps), nextIndex[w])
		}
	})
}

func TestStepFormatting(t *testing.T) {
	chk := require.New(t)
	s := sim.Step{Kind: sim.GuardReplace, Delay: time.Microsecond, Hold: 2 * time.Microsecond}
	chk.Equal("GuardReplace", fmt.Sprintf("%v", s))
	chk.Equal("GuardReplace(delay=1µs, hold=2µs)", fmt.Sprintf("%#v", s))
	chk.Equal("StepKind(42)", sim.StepKind(42).String())
}

func TestTracker(t *testing.T) {
	chk := require.New(t)
	var tr sim.Tracker
	a, b := tr.New(), tr.New()
	chk.Equal(0, a.ID)
	chk.Equal(1, b.ID)
	chk.Equal(2, tr.Created())

	a.N = 3
	a.Drop()
	chk.Equal(int64(3), tr.DroppedTotal())
	chk.Equal([]string{"Counter#1 dropped 0 times"}, tr.Undropped())

	b.Drop()
	b.Drop()
	chk.Equal([]string{"Counter#1 dropped 2 times"}, tr.Undropped())
}
