// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package otswap

import (
	"context"
	"time"

	"github.com/petenewcomb/swapbox-go"
	"go.uber.org/zap"
)

// LoggedBox adds structured logging to a Locker. Acquisitions, releases, and
// swaps are logged at debug level with their timing. Poisoning and panics
// inside critical sections are logged at error level.
type LoggedBox[T any] struct {
	operationName string
	inner         Locker[T]
}

func NewLoggedBox[T any](operationName string, inner Locker[T]) *LoggedBox[T] {
	return &LoggedBox[T]{
		operationName: operationName,
		inner:         inner,
	}
}

func (b *LoggedBox[T]) Do(ctx context.Context, f CriticalFunc[T]) error {
	// Uses the global logger at call time so that zap.ReplaceGlobals takes
	// effect for existing boxes.
	logger := zap.L().With(
		zap.String("operation", b.operationName),
		zap.String("component", "otswap"))

	startTime := time.Now()
	err := b.inner.Do(ctx, func(ctx context.Context, g *swapbox.Guard[T]) {
		acquireTime := time.Now()
		wait := acquireTime.Sub(startTime)
		if g.Poisoned() {
			logger.Error("Acquired poisoned lock", zap.Duration("wait", wait))
		} else {
			logger.Debug("Acquired lock", zap.Duration("wait", wait))
		}

		didPanic := true
		defer func() {
			hold := time.Since(acquireTime)
			if didPanic {
				logger.Error("Critical section panicked", zap.Duration("hold", hold))
			} else {
				logger.Debug("Releasing lock",
					zap.Duration("hold", hold),
					zap.Bool("present", g.Present()))
			}
		}()
		f(ctx, g)
		didPanic = false
	})
	if err != nil {
		logger.Debug("Critical section finished on poisoned lock", zap.Error(err))
	}
	return err
}

func (b *LoggedBox[T]) Swap(ctx context.Context, p *T) error {
	logger := zap.L().With(
		zap.String("operation", b.operationName),
		zap.String("component", "otswap"))

	startTime := time.Now()
	err := b.inner.Swap(ctx, p)
	duration := time.Since(startTime)

	if err != nil {
		logger.Error("Swapped value under poisoned lock",
			zap.Bool("present", p != nil),
			zap.Duration("duration", duration),
			zap.Error(err))
	} else {
		logger.Debug("Swapped value",
			zap.Bool("present", p != nil),
			zap.Duration("duration", duration))
	}
	return err
}
