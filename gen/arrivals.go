// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package gen

import (
	"math"
	"math/rand/v2"

	"github.com/unccx/SimRT"
	"gonum.org/v1/gonum/stat/distuv"
)

// Arrivals returns a sporadic copy of task whose jobs arrive from time zero
// until horizon. Consecutive arrivals are T plus an exponentially
// distributed delay with mean meanExtraDelay apart, the delay rounded up to
// a multiple of 1/[DefaultGranularity]. A non-positive mean gives the
// densest pattern.
func Arrivals(rng *rand.Rand, task *simrt.Task, horizon simrt.Rat, meanExtraDelay float64) (*simrt.Task, error) {
	var delay func() simrt.Rat
	if meanExtraDelay > 0 {
		dist := distuv.Exponential{Rate: 1 / meanExtraDelay, Src: distSource{rng}}
		delay = func() simrt.Rat {
			grains := math.Ceil(dist.Rand() * DefaultGranularity)
			return simrt.Frac(int64(grains), DefaultGranularity)
		}
	} else {
		delay = func() simrt.Rat { return simrt.Rat{} }
	}

	var arrivals []simrt.Rat
	for at := (simrt.Rat{}); at.Less(horizon); at = at.Add(task.T()).Add(delay()) {
		arrivals = append(arrivals, at)
	}
	return task.WithArrivals(arrivals)
}
