// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package otswap

import (
	"context"

	"github.com/petenewcomb/swapbox-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracedBox adds spans to a Locker using the global tracer provider. Each
// call gets a span named after the operation with a ".do" or ".swap" suffix,
// and critical sections additionally get a ".hold" child span covering the
// time the lock is held. A poisoned lock sets the span's status to error.
type TracedBox[T any] struct {
	operationName string
	inner         Locker[T]
}

func NewTracedBox[T any](operationName string, inner Locker[T]) *TracedBox[T] {
	return &TracedBox[T]{
		operationName: operationName,
		inner:         inner,
	}
}

func (b *TracedBox[T]) Do(ctx context.Context, f CriticalFunc[T]) error {
	tracer := otel.Tracer("otswap")
	ctx, span := tracer.Start(ctx, b.operationName+".do")
	defer span.End()

	err := b.inner.Do(ctx, func(ctx context.Context, g *swapbox.Guard[T]) {
		ctx, holdSpan := tracer.Start(ctx, b.operationName+".hold",
			trace.WithAttributes(
				attribute.Bool("swapbox.poisoned", g.Poisoned()),
				attribute.Bool("swapbox.present", g.Present())))
		didPanic := true
		defer func() {
			if didPanic {
				holdSpan.SetStatus(codes.Error, "critical section panicked")
			}
			holdSpan.End()
		}()
		f(ctx, g)
		didPanic = false
	})
	recordErr(span, err)
	return err
}

func (b *TracedBox[T]) Swap(ctx context.Context, p *T) error {
	ctx, span := otel.Tracer("otswap").Start(ctx, b.operationName+".swap",
		trace.WithAttributes(attribute.Bool("swapbox.present", p != nil)))
	defer span.End()

	err := b.inner.Swap(ctx, p)
	recordErr(span, err)
	return err
}

func recordErr(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
