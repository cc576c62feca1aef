// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package swapbox_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/petenewcomb/swapbox-go"
)

var benchmarkGoroutineCounts = []int{1, 2, 4, 16, 64}

// runContended splits b.N operations across the given number of goroutines,
// each with its own handle to box.
func runContended[T any](b *testing.B, box *swapbox.Box[T], goroutines int, op func(h *swapbox.Box[T], i int)) {
	var wg sync.WaitGroup
	wg.Add(goroutines)
	b.ResetTimer()
	for g := range goroutines {
		h := box.Clone()
		n := b.N / goroutines
		if g < b.N%goroutines {
			n++
		}
		go func() {
			defer wg.Done()
			defer h.Release()
			for i := range n {
				op(h, i)
			}
		}()
	}
	wg.Wait()
	b.StopTimer()
	b.ReportMetric(float64(b.N)/b.Elapsed().Seconds(), "ops/s")
}

func BenchmarkLock(b *testing.B) {
	for _, lv := range swapbox.LockVariants {
		for _, goroutines := range benchmarkGoroutineCounts {
			b.Run(fmt.Sprintf("variant=%s/goroutines=%d", lv.Name, goroutines), func(b *testing.B) {
				box := swapbox.NewWith(lv, 0)
				defer box.Release()
				b.ReportAllocs()
				runContended(b, box, goroutines, func(h *swapbox.Box[int], _ int) {
					g, _ := h.Lock()
					*g.Mut()++
					g.Unlock()
				})
			})
		}
	}
}

func BenchmarkReplace(b *testing.B) {
	for _, lv := range swapbox.LockVariants {
		for _, goroutines := range benchmarkGoroutineCounts {
			b.Run(fmt.Sprintf("variant=%s/goroutines=%d", lv.Name, goroutines), func(b *testing.B) {
				box := swapbox.NewWith(lv, 0)
				defer box.Release()
				b.ReportAllocs()
				runContended(b, box, goroutines, func(h *swapbox.Box[int], i int) {
					_ = h.Replace(i)
				})
			})
		}
	}
}
