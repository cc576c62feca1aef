// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package sim

import "time"

var DefaultConfig = Config{
	Worker: WorkerConfig{
		Count:     BiasedIntConfig{Min: 1, Med: 4, Max: 16},
		StepCount: BiasedIntConfig{Min: 0, Med: 10, Max: 50},
	},
	Step: StepConfig{
		// Repetition biases the draw toward increments.
		Kinds: []StepKind{
			Increment, Increment, Increment,
			Replace, Clear, GuardReplace, CloneIncrement, Panic,
		},
		Delay: BiasedDurationConfig{Min: 0, Med: 0, Max: 100 * time.Microsecond},
		Hold:  BiasedDurationConfig{Min: 0, Med: 0, Max: 50 * time.Microsecond},
	},
	StartEmpty: BiasedBoolConfig{Probability: 0.2},
}

type Config struct {
	Worker     WorkerConfig
	Step       StepConfig
	StartEmpty BiasedBoolConfig
}

type WorkerConfig struct {
	Count     BiasedIntConfig
	StepCount BiasedIntConfig
}

type StepConfig struct {
	Kinds []StepKind
	Delay BiasedDurationConfig
	Hold  BiasedDurationConfig
}
