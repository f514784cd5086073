// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package simrt

import (
	"fmt"
	"slices"
	"strings"
)

// Processor is one execution unit of a [Platform]. A processor with speed s
// completes s units of work per unit of time.
type Processor struct {
	ID    int
	Speed Rat
}

// Platform is an immutable, ordered set of processors. Processor IDs are
// their indices in the order given at construction.
type Platform struct {
	procs []Processor
	// byspeed holds the processors sorted by decreasing speed, ties kept in
	// ID order.
	byspeed []Processor
}

// NewPlatform returns a platform of m processors that all run at the given
// speed.
func NewPlatform(m int, speed Rat) (*Platform, error) {
	if m < 1 {
		return nil, ErrInvalidPlatform.Detail("processor count %d must be at least 1", m)
	}
	speeds := make([]Rat, m)
	for i := range speeds {
		speeds[i] = speed
	}
	return NewHeterogeneousPlatform(speeds...)
}

// NewHeterogeneousPlatform returns a uniform multiprocessor platform with one
// processor per given speed.
func NewHeterogeneousPlatform(speeds ...Rat) (*Platform, error) {
	if len(speeds) == 0 {
		return nil, ErrInvalidPlatform.Detail("no processors")
	}
	p := &Platform{procs: make([]Processor, len(speeds))}
	for i, s := range speeds {
		if s.Sign() <= 0 {
			return nil, ErrInvalidPlatform.Detail("processor %d: speed %v must be positive", i, s)
		}
		p.procs[i] = Processor{ID: i, Speed: s}
	}
	p.byspeed = slices.Clone(p.procs)
	slices.SortStableFunc(p.byspeed, func(a, b Processor) int {
		return b.Speed.Cmp(a.Speed)
	})
	return p, nil
}

// MustPlatform is like [NewPlatform] with integer speed, panicking on error.
func MustPlatform(m int, speed int64) *Platform {
	p, err := NewPlatform(m, Int(speed))
	if err != nil {
		panic(err)
	}
	return p
}

// Len returns the number of processors.
func (p *Platform) Len() int { return len(p.procs) }

// Processor returns the processor with the given ID.
func (p *Platform) Processor(id int) Processor { return p.procs[id] }

// Processors returns a copy of the processors in ID order.
func (p *Platform) Processors() []Processor { return slices.Clone(p.procs) }

// Speeds returns the processor speeds in decreasing order.
func (p *Platform) Speeds() []Rat {
	speeds := make([]Rat, len(p.byspeed))
	for i, proc := range p.byspeed {
		speeds[i] = proc.Speed
	}
	return speeds
}

// TotalSpeed returns the sum of all processor speeds.
func (p *Platform) TotalSpeed() Rat {
	var s Rat
	for _, proc := range p.procs {
		s = s.Add(proc.Speed)
	}
	return s
}

func (p *Platform) FastestSpeed() Rat { return p.byspeed[0].Speed }
func (p *Platform) SlowestSpeed() Rat { return p.byspeed[len(p.byspeed)-1].Speed }

// Identical reports whether every processor runs at the same speed.
func (p *Platform) Identical() bool {
	return p.FastestSpeed().Equal(p.SlowestSpeed())
}

// Lambda returns the platform's speed-skew parameter
//
//	λ = max over j < m of (s_{j+1} + ... + s_m) / s_j
//
// with speeds indexed in decreasing order. It is m-1 for m identical
// processors and zero for a single processor.
func (p *Platform) Lambda() Rat {
	var lambda, tail Rat
	for j := len(p.byspeed) - 1; j >= 0; j-- {
		s := p.byspeed[j].Speed
		lambda = MaxRat(lambda, tail.Quo(s))
		tail = tail.Add(s)
	}
	return lambda
}

func (p *Platform) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, proc := range p.procs {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprint(&b, proc.Speed)
	}
	b.WriteByte(']')
	return b.String()
}
