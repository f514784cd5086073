// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package gen

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
)

// DefaultMaxAttempts is how many candidate vectors an [Algorithm] draws
// before giving up on one whose entries all respect the per-task cap.
const DefaultMaxAttempts = 1000

// Algorithm splits a total utilization among n tasks.
type Algorithm uint8

const (
	// UUniFast draws vectors uniformly from the simplex of the given sum.
	UUniFast Algorithm = iota
	// UScaling draws each share uniformly and scales the vector to the sum.
	UScaling
	// UFitting gives each task a uniform share of what is left and the last
	// task the remainder.
	UFitting
)

var algorithmNames = [...]string{
	UUniFast: "uunifast",
	UScaling: "uscaling",
	UFitting: "ufitting",
}

func (a Algorithm) String() string {
	if int(a) < len(algorithmNames) {
		return algorithmNames[a]
	}
	return fmt.Sprintf("Algorithm(%d)", uint8(a))
}

// ParseAlgorithm accepts the names printed by [Algorithm.String], in any
// case.
func ParseAlgorithm(s string) (Algorithm, error) {
	for a, name := range algorithmNames {
		if strings.EqualFold(s, name) {
			return Algorithm(a), nil
		}
	}
	return 0, ErrInvalidConfig.Detail("unknown utilization algorithm %q", s)
}

func (a *Algorithm) UnmarshalText(text []byte) error {
	parsed, err := ParseAlgorithm(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Utilizations returns n positive utilizations summing to total, none above
// maxTaskUtil. Vectors breaking the cap are discarded and redrawn at most
// [DefaultMaxAttempts] times.
func (a Algorithm) Utilizations(rng *rand.Rand, total float64, n int, maxTaskUtil float64) ([]float64, error) {
	var draw func(*rand.Rand, float64, []float64)
	switch a {
	case UUniFast:
		draw = drawUUniFast
	case UScaling:
		draw = drawUScaling
	case UFitting:
		draw = drawUFitting
	default:
		return nil, ErrInvalidConfig.Detail("unknown utilization algorithm %v", a)
	}
	switch {
	case n < 1:
		return nil, ErrInfeasibleGenerationRequest.Detail("task count %d", n)
	case !(total > 0):
		return nil, ErrInfeasibleGenerationRequest.Detail("total utilization %g", total)
	case !(maxTaskUtil > 0):
		return nil, ErrInfeasibleGenerationRequest.Detail("task utilization cap %g", maxTaskUtil)
	case total > float64(n)*maxTaskUtil:
		return nil, ErrInfeasibleGenerationRequest.Detail("%d tasks of utilization at most %g cannot reach %g", n, maxTaskUtil, total)
	}

	u := make([]float64, n)
	for range DefaultMaxAttempts {
		draw(rng, total, u)
		if fits(u, maxTaskUtil) {
			return u, nil
		}
	}
	return nil, ErrInfeasibleGenerationRequest.Detail("%v found no vector for %d tasks, total %g, cap %g after %d attempts",
		a, n, total, maxTaskUtil, DefaultMaxAttempts)
}

func fits(u []float64, maxTaskUtil float64) bool {
	for _, x := range u {
		if !(x > 0) || x > maxTaskUtil {
			return false
		}
	}
	return true
}

func drawUUniFast(rng *rand.Rand, total float64, u []float64) {
	n := len(u)
	sum := total
	for i := 1; i < n; i++ {
		next := sum * math.Pow(rng.Float64(), 1/float64(n-i))
		u[i-1] = sum - next
		sum = next
	}
	u[n-1] = sum
}

func drawUScaling(rng *rand.Rand, total float64, u []float64) {
	var sum float64
	for i := range u {
		u[i] = rng.Float64() * total
		sum += u[i]
	}
	if sum == 0 {
		return
	}
	for i := range u {
		u[i] *= total / sum
	}
}

func drawUFitting(rng *rand.Rand, total float64, u []float64) {
	remaining := total
	for i := range len(u) - 1 {
		u[i] = rng.Float64() * remaining
		remaining -= u[i]
	}
	u[len(u)-1] = remaining
}

// UniformUtilizations returns n utilizations drawn independently and
// uniformly from (0, maxTaskUtil].
func UniformUtilizations(rng *rand.Rand, n int, maxTaskUtil float64) ([]float64, error) {
	if n < 0 || !(maxTaskUtil > 0) {
		return nil, ErrInfeasibleGenerationRequest.Detail("%d tasks with utilization cap %g", n, maxTaskUtil)
	}
	u := make([]float64, n)
	for i := range u {
		u[i] = (1 - rng.Float64()) * maxTaskUtil
	}
	return u, nil
}
