// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package simrt

import "cmp"

type eventKind uint8

// Events at the same instant are handled in declaration order: work that
// finishes exactly at a deadline meets it, and deadlines are judged before
// newly released jobs can take a processor.
const (
	completionEvent eventKind = iota
	deadlineEvent
	releaseEvent
)

type event struct {
	time  Rat
	kind  eventKind
	seq   uint64
	job   *job   // completion and deadline events
	epoch uint64 // completion events
	task  int    // release events: index into the engine's task list
}

func (a *event) Cmp(b *event) int {
	if c := a.time.Cmp(b.time); c != 0 {
		return c
	}
	return cmp.Or(cmp.Compare(a.kind, b.kind), cmp.Compare(a.seq, b.seq))
}
