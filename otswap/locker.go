// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package otswap provides OpenTelemetry and zap instrumentation for swapbox
// boxes. Each wrapper in this package implements [Locker] around another
// Locker, so they can be stacked in any order; [Instrument] stacks all three
// around a box.
//
// The contexts accepted here carry telemetry only. Acquiring a box's lock
// cannot be canceled.
package otswap

import (
	"context"

	"github.com/petenewcomb/swapbox-go"
)

// CriticalFunc is the body of a critical section. The context it receives
// carries any span started for the section.
type CriticalFunc[T any] func(ctx context.Context, g *swapbox.Guard[T])

// Locker is the part of a box's API that the wrappers in this package
// instrument.
type Locker[T any] interface {
	// Do runs f while holding the lock. See [swapbox.Box.Do].
	Do(ctx context.Context, f CriticalFunc[T]) error
	// Swap installs p in the slot, or empties it if p is nil. See
	// [swapbox.Box.ReplaceBoxed].
	Swap(ctx context.Context, p *T) error
}

// Wrap adapts box to the Locker interface without adding instrumentation.
// The caller keeps ownership of box.
func Wrap[T any](box *swapbox.Box[T]) Locker[T] {
	return plainBox[T]{box}
}

type plainBox[T any] struct {
	box *swapbox.Box[T]
}

func (b plainBox[T]) Do(ctx context.Context, f CriticalFunc[T]) error {
	return b.box.Do(func(g *swapbox.Guard[T]) {
		f(ctx, g)
	})
}

func (b plainBox[T]) Swap(ctx context.Context, p *T) error {
	return b.box.ReplaceBoxed(p)
}
