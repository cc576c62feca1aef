// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package sim

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gammazero/deque"
	"github.com/petenewcomb/swapbox-go"
	"github.com/stretchr/testify/require"
)

// NewBoxFunc creates the box under test, holding initial or empty if initial
// is nil.
type NewBoxFunc func(initial *Counter) *swapbox.Box[Counter]

// Run executes plan with one goroutine per worker, all sharing a box created
// by newBox through their own clones, and checks the outcome once every handle
// has been released. The poisons argument tells Run whether the box's lock is
// expected to report poisoning.
func Run(t require.TestingT, plan *Plan, newBox NewBoxFunc, poisons bool) *Result {
	e, box := newExecutor(plan, newBox, true)

	var ready, done sync.WaitGroup
	ready.Add(len(plan.Workers))
	done.Add(len(plan.Workers))
	startCh := make(chan struct{})
	for _, steps := range plan.Workers {
		var queue deque.Deque[Step]
		for _, s := range steps {
			queue.PushBack(s)
		}
		h := box.Clone()
		go func() {
			defer done.Done()
			defer h.Release()
			ready.Done()
			<-startCh
			for queue.Len() > 0 {
				step := queue.PopFront()
				if step.Delay > 0 {
					time.Sleep(step.Delay)
				}
				e.execute(h, step)
			}
		}()
	}

	ready.Wait()
	startTime := time.Now()
	close(startCh)
	done.Wait()
	box.Release()

	return e.finish(t, plan, time.Since(startTime), poisons)
}

// RunSequential executes plan's schedule on the calling goroutine without
// delays or holds. After every step it checks that the box holds exactly what
// a model of the slot predicts.
func RunSequential(t require.TestingT, plan *Plan, newBox NewBoxFunc, poisons bool) *Result {
	chk := require.New(t)
	e, box := newExecutor(plan, newBox, false)

	// The model
	present, id, n := !plan.StartEmpty, 0, 0

	startTime := time.Now()
	for _, s := range plan.Schedule() {
		e.execute(box, s.Step)

		switch s.Step.Kind {
		case Increment, CloneIncrement:
			if present {
				n++
			}
		case Replace, GuardReplace:
			// Counters are numbered in creation order.
			present, id, n = true, e.tracker.Created()-1, 0
		case Clear:
			present = false
		}

		g, _ := box.Lock()
		c, ok := g.Get()
		g.ClearPoison()
		g.Unlock()
		chk.Equal(present, ok, "presence after %#v", s.Step)
		if present {
			chk.Equal(id, c.ID, "counter after %#v", s.Step)
			chk.Equal(n, c.N, "count after %#v", s.Step)
		}
	}
	box.Release()

	return e.finish(t, plan, time.Since(startTime), poisons)
}

type executor struct {
	tracker   *Tracker
	withDelay bool

	holders              atomic.Int64
	maxHolders           atomicMaxInt64
	increments           atomic.Int64
	panics               atomic.Int64
	poisonedAcquisitions atomic.Int64
	unexpectedErrors     atomic.Int64
}

func newExecutor(plan *Plan, newBox NewBoxFunc, withDelay bool) (*executor, *swapbox.Box[Counter]) {
	e := &executor{
		tracker:   &Tracker{},
		withDelay: withDelay,
	}
	var initial *Counter
	if !plan.StartEmpty {
		initial = e.tracker.New()
	}
	return e, newBox(initial)
}

func (e *executor) finish(t require.TestingT, plan *Plan, d time.Duration, poisons bool) *Result {
	r := &Result{
		Increments:           e.increments.Load(),
		Panics:               e.panics.Load(),
		PoisonedAcquisitions: e.poisonedAcquisitions.Load(),
		UnexpectedErrors:     e.unexpectedErrors.Load(),
		MaxHolders:           e.maxHolders.Load(),
		CountersCreated:      e.tracker.Created(),
		OverallDuration:      d,
	}
	r.check(t, plan, e.tracker, poisons)
	return r
}

type plannedPanic struct{}

func (e *executor) execute(box *swapbox.Box[Counter], step Step) {
	switch step.Kind {
	case Increment:
		e.hold(box, step, e.increment)
	case Replace:
		e.swap(box, e.tracker.New())
	case Clear:
		e.swap(box, nil)
	case GuardReplace:
		e.hold(box, step, func(g *swapbox.Guard[Counter]) {
			g.ReplaceBoxed(e.tracker.New())
		})
	case CloneIncrement:
		h := box.Clone()
		defer h.Release()
		e.hold(h, step, e.increment)
	case Panic:
		func() {
			defer func() {
				if r := recover(); r != (plannedPanic{}) {
					panic(r)
				}
				e.panics.Add(1)
			}()
			e.hold(box, step, func(*swapbox.Guard[Counter]) {
				panic(plannedPanic{})
			})
		}()
		// Take the lock again to clear the poison unless another worker
		// already has.
		e.hold(box, Step{}, func(*swapbox.Guard[Counter]) {})
	default:
		panic("unknown step kind")
	}
}

// hold runs f in a critical section, tracking how many goroutines are inside
// one and clearing any poison found on entry.
func (e *executor) hold(box *swapbox.Box[Counter], step Step, f func(g *swapbox.Guard[Counter])) {
	err := box.Do(func(g *swapbox.Guard[Counter]) {
		e.maxHolders.UpdateMax(e.holders.Add(1))
		defer e.holders.Add(-1)
		if g.Poisoned() {
			e.poisonedAcquisitions.Add(1)
			g.ClearPoison()
		}
		if e.withDelay && step.Hold > 0 {
			time.Sleep(step.Hold)
		}
		f(g)
	})
	if err != nil && err != swapbox.ErrPoisoned {
		e.unexpectedErrors.Add(1)
	}
}

func (e *executor) increment(g *swapbox.Guard[Counter]) {
	if c := g.Mut(); c != nil {
		c.N++
		e.increments.Add(1)
	}
}

// swap replaces the counter through the box rather than a guard, then clears
// the poison if the replacement reported any.
func (e *executor) swap(box *swapbox.Box[Counter], c *Counter) {
	switch err := box.ReplaceBoxed(c); err {
	case nil:
	case swapbox.ErrPoisoned:
		e.poisonedAcquisitions.Add(1)
		e.hold(box, Step{}, func(*swapbox.Guard[Counter]) {})
	default:
		e.unexpectedErrors.Add(1)
	}
}

type atomicMaxInt64 struct {
	value atomic.Int64
}

func (m *atomicMaxInt64) Load() int64 {
	return m.value.Load()
}

func (m *atomicMaxInt64) UpdateMax(x int64) {
	for {
		old := m.value.Load()
		if x <= old || m.value.CompareAndSwap(old, x) {
			break
		}
	}
}
