// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package otswap

import (
	"context"

	"github.com/petenewcomb/swapbox-go"
)

// Box pairs a box with a fully instrumented Locker over it.
type Box[T any] struct {
	box    *swapbox.Box[T]
	locker Locker[T]
}

// Instrument wraps box with logging, metrics, and tracing under the given
// name. The caller keeps ownership of box and must not release it while the
// returned Box is in use.
func Instrument[T any](name string, box *swapbox.Box[T]) *Box[T] {
	// Innermost first, so that spans cover the time spent logging and
	// recording metrics.
	var l Locker[T] = Wrap(box)
	l = NewLoggedBox(name, l)
	l = NewMetricsBox(name, l)
	l = NewTracedBox(name, l)
	return &Box[T]{
		box:    box,
		locker: l,
	}
}

// Unwrap returns the underlying box.
func (b *Box[T]) Unwrap() *swapbox.Box[T] {
	return b.box
}

// Do runs f while holding the lock. See [swapbox.Box.Do].
func (b *Box[T]) Do(ctx context.Context, f CriticalFunc[T]) error {
	return b.locker.Do(ctx, f)
}

// Swap implements [Locker].
func (b *Box[T]) Swap(ctx context.Context, p *T) error {
	return b.locker.Swap(ctx, p)
}

// Replace stores v in the slot. See [swapbox.Box.Replace].
func (b *Box[T]) Replace(ctx context.Context, v T) error {
	return b.locker.Swap(ctx, &v)
}

// ReplaceBoxed installs p in the slot. See [swapbox.Box.ReplaceBoxed].
func (b *Box[T]) ReplaceBoxed(ctx context.Context, p *T) error {
	return b.locker.Swap(ctx, p)
}

// Clear empties the slot. See [swapbox.Box.Clear].
func (b *Box[T]) Clear(ctx context.Context) error {
	return b.locker.Swap(ctx, nil)
}
