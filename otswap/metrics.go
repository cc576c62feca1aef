// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package otswap

import (
	"context"
	"time"

	"github.com/petenewcomb/swapbox-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// MetricsBox records OpenTelemetry metrics for a Locker using the global
// meter provider:
//
//   - <name>.lock.count: critical sections entered
//   - <name>.lock.wait: seconds spent waiting to enter them
//   - <name>.lock.hold: seconds spent inside them
//   - <name>.swap.count: values installed or cleared through Swap
//   - <name>.poisoned: acquisitions and swaps that found the lock poisoned
type MetricsBox[T any] struct {
	inner Locker[T]

	lockCounter     metric.Int64Counter
	lockWait        metric.Float64Histogram
	lockHold        metric.Float64Histogram
	swapCounter     metric.Int64Counter
	poisonedCounter metric.Int64Counter
}

func NewMetricsBox[T any](metricName string, inner Locker[T]) *MetricsBox[T] {
	meter := otel.GetMeterProvider().Meter("otswap")

	b := &MetricsBox[T]{inner: inner}
	b.lockCounter, _ = meter.Int64Counter(metricName + ".lock.count")
	b.lockWait, _ = meter.Float64Histogram(metricName+".lock.wait", metric.WithUnit("s"))
	b.lockHold, _ = meter.Float64Histogram(metricName+".lock.hold", metric.WithUnit("s"))
	b.swapCounter, _ = meter.Int64Counter(metricName + ".swap.count")
	b.poisonedCounter, _ = meter.Int64Counter(metricName + ".poisoned")
	return b
}

func (b *MetricsBox[T]) Do(ctx context.Context, f CriticalFunc[T]) error {
	startTime := time.Now()
	return b.inner.Do(ctx, func(ctx context.Context, g *swapbox.Guard[T]) {
		acquireTime := time.Now()
		b.lockCounter.Add(ctx, 1)
		b.lockWait.Record(ctx, acquireTime.Sub(startTime).Seconds())
		if g.Poisoned() {
			b.poisonedCounter.Add(ctx, 1)
		}

		// Recorded even if f panics
		defer func() {
			b.lockHold.Record(ctx, time.Since(acquireTime).Seconds())
		}()
		f(ctx, g)
	})
}

func (b *MetricsBox[T]) Swap(ctx context.Context, p *T) error {
	err := b.inner.Swap(ctx, p)
	b.swapCounter.Add(ctx, 1)
	if err != nil {
		b.poisonedCounter.Add(ctx, 1)
	}
	return err
}
