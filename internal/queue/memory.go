package queue

import (
	"context"
	"sync"
	"time"
)

// MemoryQueue implements Queue with a mutex-guarded slice. Any number of
// goroutines may enqueue; dequeue is intended for a single consumer but is
// safe for several.
type MemoryQueue[T any] struct {
	mu     sync.Mutex
	items  []T
	head   int
	closed bool

	// ready holds at most one pending wake-up for a waiting consumer
	ready chan struct{}
}

// NewMemoryQueue creates an empty queue.
func NewMemoryQueue[T any]() *MemoryQueue[T] {
	return &MemoryQueue[T]{
		ready: make(chan struct{}, 1),
	}
}

// Enqueue adds an item to the tail of the queue.
func (q *MemoryQueue[T]) Enqueue(item T) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.items = append(q.items, item)
	q.mu.Unlock()

	q.wake()
	return nil
}

func (q *MemoryQueue[T]) wake() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// pop removes the head item. Caller holds q.mu.
func (q *MemoryQueue[T]) pop() (T, bool) {
	var zero T
	if q.head == len(q.items) {
		return zero, false
	}

	item := q.items[q.head]
	q.items[q.head] = zero
	q.head++

	// Compact once the consumed prefix dominates the backing array
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	} else if q.head > 64 && q.head*2 >= len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return item, true
}

// DequeueWithTimeout retrieves the oldest item, waiting up to timeout.
func (q *MemoryQueue[T]) DequeueWithTimeout(ctx context.Context, timeout time.Duration) (T, bool, error) {
	var zero T

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		q.mu.Lock()
		item, ok := q.pop()
		closed := q.closed
		remaining := len(q.items) - q.head
		q.mu.Unlock()

		if ok {
			// Pass the wake-up on so a second consumer is not left waiting
			if remaining > 0 {
				q.wake()
			}
			return item, true, nil
		}
		if closed {
			return zero, false, ErrQueueClosed
		}

		select {
		case <-q.ready:
		case <-timer.C:
			return zero, false, nil
		case <-ctx.Done():
			return zero, false, ctx.Err()
		}
	}
}

// Length returns the current queue length.
func (q *MemoryQueue[T]) Length() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// Close marks the queue closed. It is safe to call more than once.
func (q *MemoryQueue[T]) Close() error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.wake()
	return nil
}

var _ Queue[int] = (*MemoryQueue[int])(nil)
