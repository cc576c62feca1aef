// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package sim provides a way to generate and execute simulated workloads
// against a swapbox. It generates a plan for each workload, which it models as
// a set of workers, each with its own sequence of steps: incrementing the held
// counter, replacing or clearing it through the box or through a guard, doing
// so through a temporary clone, or panicking while holding the lock. A plan
// can be executed concurrently, one goroutine per worker, or sequentially in
// the order given by its nominal schedule, in which case every step is checked
// against a model of the slot.
package sim
