// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package readyq provides an indexed priority queue for items that can rank
// themselves against each other, such as the ready jobs of a scheduler.
package readyq

import (
	"container/heap"
)

// Item is implemented by values stored in a [Queue].
type Item[T any] interface {
	// Outranks reports whether the item must leave the queue before other.
	Outranks(other T) bool
	// SetQueuePosition records the item's position in the queue. Positions
	// are greater than zero while queued; zero means not queued.
	SetQueuePosition(pos int)
	// QueuePosition returns the value last passed to SetQueuePosition.
	QueuePosition() int
}

// Queue holds items in rank order. The highest-ranked item is at the front.
// The zero value is an empty queue ready to use.
type Queue[T Item[T]] struct {
	impl ranked[T]
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	return len(q.impl)
}

// Push queues item, or restores the queue order if item is already queued
// and its rank has changed.
func (q *Queue[T]) Push(item T) {
	switch p := item.QueuePosition(); {
	case p < 0:
		panic("item reports invalid queue position")
	case p == 0:
		heap.Push(&q.impl, item)
	default:
		heap.Fix(&q.impl, p-1)
	}
}

// Pop removes and returns the highest-ranked item. It panics if the queue is
// empty.
func (q *Queue[T]) Pop() T {
	if len(q.impl) == 0 {
		panic("pop from empty queue")
	}
	return heap.Pop(&q.impl).(T)
}

// PopN appends up to n items to dst in rank order, removing them from the
// queue, and returns the extended slice.
func (q *Queue[T]) PopN(dst []T, n int) []T {
	for ; n > 0 && len(q.impl) > 0; n-- {
		dst = append(dst, q.Pop())
	}
	return dst
}

// ranked adapts a slice of items to container/heap.
type ranked[T Item[T]] []T

func (r ranked[T]) Len() int           { return len(r) }
func (r ranked[T]) Less(i, j int) bool { return r[i].Outranks(r[j]) }

func (r ranked[T]) Swap(i, j int) {
	r[i], r[j] = r[j], r[i]
	r[i].SetQueuePosition(i + 1)
	r[j].SetQueuePosition(j + 1)
}

func (r *ranked[T]) Push(x any) {
	item := x.(T)
	item.SetQueuePosition(len(*r) + 1)
	*r = append(*r, item)
}

func (r *ranked[T]) Pop() any {
	old := *r
	n := len(old) - 1
	item := old[n]
	var zero T
	old[n] = zero
	*r = old[:n]
	item.SetQueuePosition(0)
	return item
}
