// Package queue provides a bounded in-process FIFO with a single
// consumer loop. Producers enqueue without blocking; one goroutine owns
// all downstream mutation, so handlers need no locking of their own.
package queue

import "context"

// Handler processes one dequeued item.
type Handler[T any] func(ctx context.Context, item T)

// Queue is a bounded FIFO. Items are processed strictly in arrival order
// by the single consumer started with Run.
type Queue[T any] struct {
	ch chan T
}

// New creates a queue with the given capacity (minimum 1).
func New[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{ch: make(chan T, capacity)}
}

// Enqueue adds an item without blocking. It reports false when the queue
// is full; the item is dropped in that case.
func (q *Queue[T]) Enqueue(item T) bool {
	select {
	case q.ch <- item:
		return true
	default:
		return false
	}
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int { return len(q.ch) }

// TryDequeue removes and returns the oldest item without blocking. The
// second result is false when the queue is empty.
func (q *Queue[T]) TryDequeue() (T, bool) {
	select {
	case item := <-q.ch:
		return item, true
	default:
		var zero T
		return zero, false
	}
}

// Run consumes items one at a time until ctx is cancelled. It is meant
// to be called once, from a dedicated goroutine.
func (q *Queue[T]) Run(ctx context.Context, handle Handler[T]) {
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-q.ch:
			handle(ctx, item)
		}
	}
}
