// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package sim

import (
	"cmp"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/addrummond/heap"
	"pgregory.net/rapid"
)

type Plan struct {
	ID          int
	StartEmpty  bool
	Workers     [][]Step
	StepCount   int
	CountByKind map[StepKind]int
}

var nextPlanID atomic.Int64

// NewPlan draws a new workload from the ranges given by config.
func NewPlan(t *rapid.T, config *Config) *Plan {
	if len(config.Step.Kinds) == 0 {
		panic("no step kinds configured")
	}
	planID := int(nextPlanID.Add(1) - 1)
	planName := fmt.Sprintf("Plan#%d", planID)
	plan := &Plan{
		ID:          planID,
		StartEmpty:  config.StartEmpty.Draw(t, planName+".StartEmpty"),
		Workers:     make([][]Step, config.Worker.Count.Draw(t, planName+".WorkerCount")),
		CountByKind: make(map[StepKind]int),
	}
	kindGen := rapid.SampledFrom(config.Step.Kinds)
	for w := range plan.Workers {
		workerName := fmt.Sprintf("%s.Worker#%d", planName, w)
		steps := make([]Step, config.Worker.StepCount.Draw(t, workerName+".StepCount"))
		for i := range steps {
			stepName := fmt.Sprintf("%s.Step[%d]", workerName, i)
			step := &steps[i]
			step.Kind = kindGen.Draw(t, stepName+".Kind")
			step.Delay = config.Step.Delay.Draw(t, stepName+".Delay")
			if step.Kind.locks() {
				step.Hold = config.Step.Hold.Draw(t, stepName+".Hold")
			}
			plan.CountByKind[step.Kind]++
		}
		plan.Workers[w] = steps
		plan.StepCount += len(steps)
	}
	t.Logf("%#v", plan)
	return plan
}

// Format implements fmt.Formatter for pretty-printing a plan.
func (p *Plan) Format(f fmt.State, verb rune) {
	if verb != 'v' {
		panic("unsupported verb")
	}
	if !f.Flag('#') {
		_, _ = fmt.Fprintf(f, "Plan#%d", p.ID)
		return
	}
	_, _ = fmt.Fprintf(f, "Plan#%d: startEmpty=%v workers=%d steps=%d",
		p.ID, p.StartEmpty, len(p.Workers), p.StepCount)
	for w, steps := range p.Workers {
		_, _ = fmt.Fprintf(f, "\n  Worker#%d:", w)
		for _, s := range steps {
			_, _ = fmt.Fprintf(f, " %#v", s)
		}
	}
}

// ScheduledStep is a step placed on a plan's nominal timeline.
type ScheduledStep struct {
	Time   time.Duration
	Worker int
	Index  int
	Step   Step
}

func (a *ScheduledStep) Cmp(b *ScheduledStep) int {
	if c := cmp.Compare(a.Time, b.Time); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Worker, b.Worker); c != 0 {
		return c
	}
	return cmp.Compare(a.Index, b.Index)
}

// Schedule merges the workers' steps into a single sequence ordered by the
// time each would start if every step took exactly its hold time and no
// worker ever waited for the lock. Ties go to the lower-numbered worker.
func (p *Plan) Schedule() []ScheduledStep {
	var eventHeap heap.Heap[ScheduledStep, heap.Min]
	for w, steps := range p.Workers {
		if len(steps) > 0 {
			heap.PushOrderable(&eventHeap, ScheduledStep{
				Time:   steps[0].Delay,
				Worker: w,
				Step:   steps[0],
			})
		}
	}
	schedule := make([]ScheduledStep, 0, p.StepCount)
	for {
		s, ok := heap.PopOrderable(&eventHeap)
		if !ok {
			break
		}
		schedule = append(schedule, s)
		steps := p.Workers[s.Worker]
		if next := s.Index + 1; next < len(steps) {
			heap.PushOrderable(&eventHeap, ScheduledStep{
				Time:   s.Time + s.Step.Hold + steps[next].Delay,
				Worker: s.Worker,
				Index:  next,
				Step:   steps[next],
			})
		}
	}
	return schedule
}
