// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package simrt

import (
	"fmt"
	"iter"
	"slices"
	"strings"
)

// Kind distinguishes how a task releases its jobs.
type Kind uint8

const (
	// Periodic tasks release a job exactly every T time units.
	Periodic Kind = iota
	// Sporadic tasks release jobs separated by at least T time units.
	Sporadic
)

func (k Kind) String() string {
	switch k {
	case Periodic:
		return "periodic"
	case Sporadic:
		return "sporadic"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// ParseKind is the inverse of [Kind.String].
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "periodic", "":
		return Periodic, nil
	case "sporadic":
		return Sporadic, nil
	default:
		return 0, ErrInvalidTaskParameters.Detail("unknown task kind %q", s)
	}
}

// Task is an immutable description of a recurring real-time task: every job
// it releases needs C units of work (at unit speed) within D time units of its
// release, and consecutive releases are T time units apart (exactly for
// periodic tasks, at least for sporadic ones).
//
// Tasks are created with [NewTask] and may be shared by any number of
// simulations and analyses, including concurrently.
type Task struct {
	id          uint64
	kind        Kind
	c, d, t     Rat
	skipRelease bool
	arrivals    []Rat
}

// TaskOption configures optional task behavior in [NewTask].
type TaskOption func(*Task)

// WithoutInitialRelease suppresses the job that a task otherwise releases at
// time zero, so its first release happens at T.
func WithoutInitialRelease() TaskOption {
	return func(t *Task) {
		t.skipRelease = true
	}
}

// NewTask validates and returns a task. It fails with
// [ErrInvalidTaskParameters] if c, d, or t is not positive, if c > d, or if
// kind is not a known [Kind].
func NewTask(id uint64, kind Kind, c, d, t Rat, opts ...TaskOption) (*Task, error) {
	switch {
	case kind != Periodic && kind != Sporadic:
		return nil, ErrInvalidTaskParameters.Detail("task %d: unknown kind %v", id, kind)
	case c.Sign() <= 0:
		return nil, ErrInvalidTaskParameters.Detail("task %d: C=%v must be positive", id, c)
	case d.Sign() <= 0:
		return nil, ErrInvalidTaskParameters.Detail("task %d: D=%v must be positive", id, d)
	case t.Sign() <= 0:
		return nil, ErrInvalidTaskParameters.Detail("task %d: T=%v must be positive", id, t)
	case d.Less(c):
		return nil, ErrInvalidTaskParameters.Detail("task %d: C=%v exceeds D=%v", id, c, d)
	}
	task := &Task{id: id, kind: kind, c: c, d: d, t: t}
	for _, opt := range opts {
		opt(task)
	}
	return task, nil
}

// NewPeriodicTask is shorthand for NewTask(id, Periodic, c, d, t).
func NewPeriodicTask(id uint64, c, d, t Rat) (*Task, error) {
	return NewTask(id, Periodic, c, d, t)
}

// NewSporadicTask returns a sporadic task without an explicit arrival
// sequence; see [Task.WithArrivals].
func NewSporadicTask(id uint64, c, d, t Rat) (*Task, error) {
	return NewTask(id, Sporadic, c, d, t)
}

// MustTask builds a periodic task from integer parameters and panics if they
// are invalid. It is intended for tests and examples.
func MustTask(id uint64, c, d, t int64) *Task {
	task, err := NewTask(id, Periodic, Int(c), Int(d), Int(t))
	if err != nil {
		panic(err)
	}
	return task
}

func (t *Task) ID() uint64 { return t.id }
func (t *Task) Kind() Kind { return t.kind }

// C returns the worst-case execution requirement at unit speed.
func (t *Task) C() Rat { return t.c }

// D returns the relative deadline.
func (t *Task) D() Rat { return t.d }

// T returns the period, or the minimum separation for sporadic tasks.
func (t *Task) T() Rat { return t.t }

// Utilization returns C/T.
func (t *Task) Utilization() Rat { return t.c.Quo(t.t) }

// Density returns C/min(D, T).
func (t *Task) Density() Rat { return t.c.Quo(MinRat(t.d, t.t)) }

// ImplicitDeadline reports whether D == T.
func (t *Task) ImplicitDeadline() bool { return t.d.Equal(t.t) }

// ConstrainedDeadline reports whether D <= T.
func (t *Task) ConstrainedDeadline() bool { return !t.t.Less(t.d) }

// Arrivals returns a copy of the explicit arrival sequence of a sporadic task,
// or nil if the task uses its densest legal arrival pattern.
func (t *Task) Arrivals() []Rat { return slices.Clone(t.arrivals) }

// WithArrivals returns a sporadic copy of t that releases its jobs at the given
// times. The times must be non-negative, non-decreasing, and separated by at
// least T; otherwise [ErrInvalidTaskParameters] is returned.
func (t *Task) WithArrivals(arrivals []Rat) (*Task, error) {
	for i, a := range arrivals {
		if a.Sign() < 0 {
			return nil, ErrInvalidTaskParameters.Detail("task %d: arrival %d at %v is negative", t.id, i, a)
		}
		if i > 0 {
			if gap := a.Sub(arrivals[i-1]); gap.Less(t.t) {
				return nil, ErrInvalidTaskParameters.Detail(
					"task %d: arrivals %d and %d are %v apart, less than T=%v", t.id, i-1, i, gap, t.t)
			}
		}
	}
	clone := *t
	clone.kind = Sporadic
	clone.arrivals = slices.Clone(arrivals)
	if clone.arrivals == nil {
		clone.arrivals = []Rat{}
	}
	return &clone, nil
}

// Releases returns the release times of t that fall strictly before horizon,
// in increasing order. The sequence is computed lazily and may be ranged over
// any number of times.
//
// A periodic task releases at 0 (unless [WithoutInitialRelease] was given)
// and every T thereafter. A sporadic task releases at its explicit arrival
// times if it has them, and otherwise follows the same dense pattern as a
// periodic task, which is its worst case.
func (t *Task) Releases(horizon Rat) iter.Seq[Rat] {
	switch t.kind {
	case Sporadic:
		if t.arrivals != nil {
			return func(yield func(Rat) bool) {
				for _, a := range t.arrivals {
					if !a.Less(horizon) || !yield(a) {
						return
					}
				}
			}
		}
		return t.denseReleases(horizon)
	default:
		return t.denseReleases(horizon)
	}
}

func (t *Task) denseReleases(horizon Rat) iter.Seq[Rat] {
	return func(yield func(Rat) bool) {
		var r Rat
		if t.skipRelease {
			r = t.t
		}
		for ; r.Less(horizon); r = r.Add(t.t) {
			if !yield(r) {
				return
			}
		}
	}
}

func (t *Task) String() string {
	return fmt.Sprintf("τ%d(%v,%v,%v)", t.id, t.c, t.d, t.t)
}

// TaskSet is an ordered collection of tasks. Functions in this package accept
// plain []*Task, so a TaskSet may be passed wherever a task slice is expected.
type TaskSet []*Task

// Validate checks that the set contains no nil tasks and no duplicate IDs.
func (s TaskSet) Validate() error {
	seen := make(map[uint64]int, len(s))
	for i, t := range s {
		if t == nil {
			return ErrInvalidTaskParameters.Detail("task at index %d is nil", i)
		}
		if j, ok := seen[t.id]; ok {
			return ErrInvalidTaskParameters.Detail("tasks at indices %d and %d share ID %d", j, i, t.id)
		}
		seen[t.id] = i
	}
	return nil
}

// TotalUtilization returns the sum of C/T over the set.
func (s TaskSet) TotalUtilization() Rat {
	var u Rat
	for _, t := range s {
		u = u.Add(t.Utilization())
	}
	return u
}

// TotalDensity returns the sum of C/min(D,T) over the set.
func (s TaskSet) TotalDensity() Rat {
	var d Rat
	for _, t := range s {
		d = d.Add(t.Density())
	}
	return d
}

// MaxDensity returns the largest task density, or zero for an empty set.
func (s TaskSet) MaxDensity() Rat {
	var d Rat
	for _, t := range s {
		d = MaxRat(d, t.Density())
	}
	return d
}

// MaxDeadline returns the largest relative deadline, or zero for an empty set.
func (s TaskSet) MaxDeadline() Rat {
	var d Rat
	for _, t := range s {
		d = MaxRat(d, t.d)
	}
	return d
}

// Hyperperiod returns the least common multiple of the task periods, or zero
// for an empty set. Rational periods are supported: the result is the least
// positive value that is an integer multiple of every period.
func (s TaskSet) Hyperperiod() Rat {
	if len(s) == 0 {
		return Rat{}
	}
	h := s[0].t
	for _, t := range s[1:] {
		h = lcmRat(h, t.t)
	}
	return h
}
