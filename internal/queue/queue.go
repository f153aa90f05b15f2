// Package queue provides the unbounded FIFO used by the event bus and the
// sync engine loop.
package queue

import "sync"

// Queue is a thread-safe unbounded FIFO.
//
// The queue is unbounded so producers never block; a slow consumer shows
// up as growth in Len rather than as stalled producers.
//
// The signal channel (buffered, size 1) coalesces wakeups so a consumer can
// select on Wait alongside ctx.Done(). Close closes the signal channel,
// which wakes every waiter at once.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	signal chan struct{}
}

// New creates an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{
		items:  make([]T, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Push appends v to the back of the queue.
// Returns false if the queue is closed.
func (q *Queue[T]) Push(v T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.items = append(q.items, v)

	// Non-blocking: a buffer of 1 coalesces multiple signals
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryPop removes the front element without blocking.
// A closed queue yields nothing.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if q.closed || len(q.items) == 0 {
		return zero, false
	}
	v := q.items[0]

	// Nil out the slot so the backing array does not pin v for the GC
	q.items[0] = zero

	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return v, true
}

// Wait returns a channel that signals when elements may be available.
//
//	select {
//	case <-ctx.Done():
//	    return ctx.Err()
//	case <-q.Wait():
//	    // Try TryPop
//	}
func (q *Queue[T]) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Closed reports whether Close has been called.
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close rejects further pushes, wakes all waiters and returns the elements
// that were still pending. Only the first call returns them.
func (q *Queue[T]) Close() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	pending := q.items
	q.items = nil
	close(q.signal)
	return pending
}
