// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package gen

import "math/rand/v2"

// NewRand returns a PCG-backed generator. A nil seed draws one from the
// runtime's entropy-seeded global source, so the result is not reproducible.
func NewRand(seed *uint64) *rand.Rand {
	var s uint64
	if seed != nil {
		s = *seed
	} else {
		s = rand.Uint64()
	}
	return rand.New(rand.NewPCG(s, DeriveSeed(s, 0)))
}

// DeriveSeed mixes a base seed and an index into an independent seed
// (splitmix64), so item i of a batch draws the same values however the
// batch is scheduled.
func DeriveSeed(base uint64, i int) uint64 {
	z := base + (uint64(i)+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// distSource lets gonum distributions draw from a *rand.Rand. Seeding is
// left to the owner of the generator.
type distSource struct {
	rng *rand.Rand
}

func (s distSource) Uint64() uint64 { return s.rng.Uint64() }
func (distSource) Seed(uint64)      {}
