// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package sim

import (
	"fmt"
	"time"
)

type StepKind int

const (
	// Lock, and increment the counter if there is one.
	Increment StepKind = iota
	// Install a new counter with Box.ReplaceBoxed.
	Replace
	// Empty the slot with Box.Clear.
	Clear
	// Lock, and install a new counter through the guard.
	GuardReplace
	// Clone the worker's handle, increment through the clone, release it.
	CloneIncrement
	// Lock, and panic while holding the lock.
	Panic
)

var stepKindNames = [...]string{
	Increment:      "Increment",
	Replace:        "Replace",
	Clear:          "Clear",
	GuardReplace:   "GuardReplace",
	CloneIncrement: "CloneIncrement",
	Panic:          "Panic",
}

func (k StepKind) String() string {
	if k < 0 || int(k) >= len(stepKindNames) {
		return fmt.Sprintf("StepKind(%d)", int(k))
	}
	return stepKindNames[k]
}

// locks reports whether the step holds the lock in a critical section of its
// own, as opposed to one hidden inside Box.ReplaceBoxed or Box.Clear.
func (k StepKind) locks() bool {
	switch k {
	case Increment, GuardReplace, CloneIncrement, Panic:
		return true
	default:
		return false
	}
}

type Step struct {
	Kind StepKind
	// Pause before starting the step, measured from the end of the previous
	// step of the same worker.
	Delay time.Duration
	// How long to hold the lock, for steps that lock.
	Hold time.Duration
}

func (s Step) Format(f fmt.State, verb rune) {
	if verb != 'v' {
		panic("unsupported verb")
	}
	if f.Flag('#') {
		_, _ = fmt.Fprintf(f, "%v(delay=%v, hold=%v)", s.Kind, s.Delay, s.Hold)
	} else {
		_, _ = fmt.Fprint(f, s.Kind.String())
	}
}
