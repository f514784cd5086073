// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package gen

import (
	"cmp"
	"math/rand/v2"
	"slices"
	"sort"

	"github.com/unccx/SimRT"
)

// Select returns size distinct tasks drawn uniformly from pool. The pool is
// not modified.
func Select(rng *rand.Rand, pool []*simrt.Task, size int) ([]*simrt.Task, error) {
	if size < 0 || size > len(pool) {
		return nil, ErrInsufficientPoolSize.Detail("cannot select %d of %d tasks", size, len(pool))
	}
	idx := make([]int, len(pool))
	for i := range idx {
		idx[i] = i
	}
	out := make([]*simrt.Task, size)
	for i := range out {
		j := i + rng.IntN(len(idx)-i)
		idx[i], idx[j] = idx[j], idx[i]
		out[i] = pool[idx[i]]
	}
	return out, nil
}

type candidate struct {
	task *simrt.Task
	u    float64
}

// SelectByUtilization returns size distinct tasks from pool whose total
// utilization approximates total. Target utilizations are split with
// [UUniFast], capped by the largest utilization in the pool, and each target
// takes the remaining pool task nearest to it.
func SelectByUtilization(rng *rand.Rand, pool []*simrt.Task, size int, total float64) ([]*simrt.Task, error) {
	if size < 0 || size > len(pool) {
		return nil, ErrInsufficientPoolSize.Detail("cannot select %d of %d tasks", size, len(pool))
	}
	if size == 0 {
		return nil, nil
	}

	remaining := make([]candidate, len(pool))
	var capU float64
	for i, t := range pool {
		remaining[i] = candidate{t, t.Utilization().Float64()}
		capU = max(capU, remaining[i].u)
	}
	slices.SortStableFunc(remaining, func(a, b candidate) int { return cmp.Compare(a.u, b.u) })

	targets, err := UUniFast.Utilizations(rng, total, size, capU)
	if err != nil {
		return nil, err
	}

	out := make([]*simrt.Task, 0, size)
	for _, target := range targets {
		i := sort.Search(len(remaining), func(i int) bool { return remaining[i].u >= target })
		if i == len(remaining) || (i > 0 && target-remaining[i-1].u <= remaining[i].u-target) {
			i--
		}
		out = append(out, remaining[i].task)
		remaining = slices.Delete(remaining, i, i+1)
	}
	return out, nil
}
