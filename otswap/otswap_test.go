// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package otswap_test

import (
	"context"
	"testing"

	"github.com/petenewcomb/swapbox-go"
	"github.com/petenewcomb/swapbox-go/otswap"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// poison leaves b's lock poisoned if the build's lock variant supports it.
func poison[T any](b *swapbox.Box[T]) {
	defer func() { _ = recover() }()
	_ = b.Do(func(*swapbox.Guard[T]) {
		panic("boom")
	})
}

func TestLoggedBox(t *testing.T) {
	chk := require.New(t)
	core, logs := observer.New(zapcore.DebugLevel)
	defer zap.ReplaceGlobals(zap.New(core))()

	box := swapbox.New(1)
	defer box.Release()
	l := otswap.NewLoggedBox("config", otswap.Wrap(box))
	ctx := context.Background()

	chk.NoError(l.Do(ctx, func(ctx context.Context, g *swapbox.Guard[int]) {
		*g.Mut()++
	}))
	chk.NoError(l.Swap(ctx, nil))

	chk.Equal(1, logs.FilterMessage("Acquired lock").Len())
	chk.Equal(1, logs.FilterMessage("Releasing lock").Len())
	swaps := logs.FilterMessage("Swapped value").All()
	chk.Len(swaps, 1)
	fields := swaps[0].ContextMap()
	chk.Equal("config", fields["operation"])
	chk.Equal("otswap", fields["component"])
	chk.Equal(false, fields["present"])

	chk.Panics(func() {
		_ = l.Do(ctx, func(context.Context, *swapbox.Guard[int]) {
			panic("boom")
		})
	})
	chk.Equal(1, logs.FilterMessage("Critical section panicked").Len())

	if swapbox.PoisonsOnPanic {
		chk.ErrorIs(l.Swap(ctx, nil), swapbox.ErrPoisoned)
		chk.Equal(1, logs.FilterMessage("Swapped value under poisoned lock").Len())

		chk.ErrorIs(l.Do(ctx, func(ctx context.Context, g *swapbox.Guard[int]) {
			g.ClearPoison()
		}), swapbox.ErrPoisoned)
		poisoned := logs.FilterMessage("Acquired poisoned lock").All()
		chk.Len(poisoned, 1)
		chk.Equal(zapcore.ErrorLevel, poisoned[0].Level)
	}
}

func sumOf(chk *require.Assertions, rm *metricdata.ResourceMetrics, name string) int64 {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			chk.True(ok, "%s is not an int64 sum", name)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func histogramCount(chk *require.Assertions, rm *metricdata.ResourceMetrics, name string) uint64 {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			h, ok := m.Data.(metricdata.Histogram[float64])
			chk.True(ok, "%s is not a float64 histogram", name)
			var total uint64
			for _, dp := range h.DataPoints {
				total += dp.Count
			}
			return total
		}
	}
	return 0
}

func TestMetricsBox(t *testing.T) {
	chk := require.New(t)
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	prev := otel.GetMeterProvider()
	otel.SetMeterProvider(mp)
	defer otel.SetMeterProvider(prev)
	ctx := context.Background()
	defer func() { chk.NoError(mp.Shutdown(ctx)) }()

	box := swapbox.New("a")
	defer box.Release()
	m := otswap.NewMetricsBox("strategy", otswap.Wrap(box))

	for range 3 {
		chk.NoError(m.Do(ctx, func(context.Context, *swapbox.Guard[string]) {}))
	}
	b := "b"
	chk.NoError(m.Swap(ctx, &b))
	poison(box)
	err := m.Do(ctx, func(ctx context.Context, g *swapbox.Guard[string]) {
		g.ClearPoison()
	})
	var poisons int64
	if swapbox.PoisonsOnPanic {
		chk.ErrorIs(err, swapbox.ErrPoisoned)
		poisons = 1
	} else {
		chk.NoError(err)
	}

	var rm metricdata.ResourceMetrics
	chk.NoError(reader.Collect(ctx, &rm))
	chk.Equal(int64(4), sumOf(chk, &rm, "strategy.lock.count"))
	chk.Equal(uint64(4), histogramCount(chk, &rm, "strategy.lock.wait"))
	chk.Equal(uint64(4), histogramCount(chk, &rm, "strategy.lock.hold"))
	chk.Equal(int64(1), sumOf(chk, &rm, "strategy.swap.count"))
	chk.Equal(poisons, sumOf(chk, &rm, "strategy.poisoned"))
}

func TestTracedBox(t *testing.T) {
	chk := require.New(t)
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)
	ctx := context.Background()
	defer func() { chk.NoError(tp.Shutdown(ctx)) }()

	box := swapbox.NewEmpty[int]()
	defer box.Release()
	tb := otswap.NewTracedBox("counter", otswap.Wrap(box))

	chk.NoError(tb.Do(ctx, func(ctx context.Context, g *swapbox.Guard[int]) {
		g.Replace(1)
	}))
	chk.NoError(tb.Swap(ctx, nil))

	spans := sr.Ended()
	chk.Len(spans, 3)
	chk.Equal("counter.hold", spans[0].Name())
	chk.Equal("counter.do", spans[1].Name())
	chk.Equal("counter.swap", spans[2].Name())
	chk.Equal(spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
	for _, s := range spans {
		chk.Equal(codes.Unset, s.Status().Code)
	}

	poison(box)
	err := tb.Swap(ctx, nil)
	last := sr.Ended()[len(sr.Ended())-1]
	chk.Equal("counter.swap", last.Name())
	if swapbox.PoisonsOnPanic {
		chk.ErrorIs(err, swapbox.ErrPoisoned)
		chk.Equal(codes.Error, last.Status().Code)
		chk.Equal(swapbox.ErrPoisoned.Error(), last.Status().Description)
	} else {
		chk.NoError(err)
	}

	chk.Panics(func() {
		_ = tb.Do(ctx, func(context.Context, *swapbox.Guard[int]) {
			panic("boom")
		})
	})
	ended := sr.Ended()
	hold := ended[len(ended)-2]
	chk.Equal("counter.hold", hold.Name())
	chk.Equal(codes.Error, hold.Status().Code)
}

func TestInstrument(t *testing.T) {
	chk := require.New(t)
	core, logs := observer.New(zapcore.DebugLevel)
	defer zap.ReplaceGlobals(zap.New(core))()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	box := swapbox.New("x")
	defer box.Release()
	ib := otswap.Instrument("name", box)
	chk.Same(box, ib.Unwrap())
	ctx := context.Background()

	chk.NoError(ib.Replace(ctx, "y"))
	var seen string
	chk.NoError(ib.Do(ctx, func(ctx context.Context, g *swapbox.Guard[string]) {
		seen, _ = g.Get()
	}))
	chk.Equal("y", seen)
	z := "z"
	chk.NoError(ib.ReplaceBoxed(ctx, &z))
	chk.NoError(ib.Clear(ctx))

	v, err := box.Lock()
	chk.NoError(err)
	chk.False(v.Present())
	v.Unlock()

	chk.Equal(3, logs.FilterMessage("Swapped value").Len())
	chk.Equal(1, logs.FilterMessage("Acquired lock").Len())
	chk.Len(sr.Ended(), 5)
}
