// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package simrt

// job is one released instance of a task inside a running simulation.
type job struct {
	task     *Task
	n        uint64 // per-task job number, starting at 0
	seq      uint64 // release order across the whole simulation
	release  Rat
	deadline Rat

	// remaining is the work left at the engine's current time. It only
	// decreases and never drops below zero.
	remaining Rat
	completed bool

	// slot is the index (into the speed-ordered processor list) the job
	// currently runs on, or -1. lastSlot is where it ran most recently, or -1
	// if it has not run yet. next is scratch space for dispatch.
	slot     int
	lastSlot int
	next     int

	// epoch is bumped whenever the job's projected completion changes, which
	// invalidates completion events stamped with an older epoch.
	epoch uint64

	qpos int
}

func newJob(task *Task, n, seq uint64, release Rat) *job {
	return &job{
		task:      task,
		n:         n,
		seq:       seq,
		release:   release,
		deadline:  release.Add(task.d),
		remaining: task.c,
		slot:      -1,
		lastSlot:  -1,
		next:      -1,
	}
}

// Outranks orders jobs by Global-EDF priority: earlier absolute deadline,
// then lower task ID, then earlier release, then release order.
func (j *job) Outranks(o *job) bool {
	if c := j.deadline.Cmp(o.deadline); c != 0 {
		return c < 0
	}
	if j.task.id != o.task.id {
		return j.task.id < o.task.id
	}
	if c := j.release.Cmp(o.release); c != 0 {
		return c < 0
	}
	return j.seq < o.seq
}

func (j *job) SetQueuePosition(pos int) { j.qpos = pos }
func (j *job) QueuePosition() int       { return j.qpos }
