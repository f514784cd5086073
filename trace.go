// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package simrt

import (
	"fmt"

	"github.com/gammazero/deque"
)

// Segment is a maximal interval during which one job ran uninterrupted on one
// processor.
type Segment struct {
	Processor int
	TaskID    uint64
	Job       uint64
	Start     Rat
	End       Rat
}

func (s Segment) String() string {
	return fmt.Sprintf("P%d τ%d#%d [%v,%v)", s.Processor, s.TaskID, s.Job, s.Start, s.End)
}

// traceRecorder keeps the most recent segments of a schedule. A nil recorder
// records nothing.
type traceRecorder struct {
	limit int
	segs  deque.Deque[*Segment]
	open  []*Segment // per processor slot, the segment that may still grow
}

func newTraceRecorder(limit, slots int) *traceRecorder {
	if limit <= 0 {
		return nil
	}
	return &traceRecorder{limit: limit, open: make([]*Segment, slots)}
}

func (r *traceRecorder) record(slot, proc int, j *job, start, end Rat) {
	if r == nil {
		return
	}
	if s := r.open[slot]; s != nil && s.TaskID == j.task.id && s.Job == j.n && s.End.Equal(start) {
		s.End = end
		return
	}
	s := &Segment{Processor: proc, TaskID: j.task.id, Job: j.n, Start: start, End: end}
	r.open[slot] = s
	r.segs.PushBack(s)
	if r.segs.Len() > r.limit {
		r.segs.PopFront()
	}
}

func (r *traceRecorder) segments() []Segment {
	if r == nil {
		return nil
	}
	out := make([]Segment, r.segs.Len())
	for i := range out {
		out[i] = *r.segs.At(i)
	}
	return out
}
