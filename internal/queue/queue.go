// Package queue provides the hand-off between producers of interaction records
// and the single persistence worker that drains them.
//
//	caller ──Enqueue──▶ ┌──────────────┐ ──DequeueWithTimeout──▶ worker ──▶ SQLite
//	caller ──Enqueue──▶ │ MemoryQueue  │      (1s poll, re-checks
//	caller ──Enqueue──▶ └──────────────┘       the stop signal)
//
// The queue is unbounded: Enqueue never waits for capacity, so producers are
// never stalled by slow storage. Depth is exposed through Length for
// high-water diagnostics.
package queue

import (
	"context"
	"time"
)

// Queue is a FIFO hand-off with a bounded-wait dequeue.
type Queue[T any] interface {
	// Enqueue appends an item. It does not block on capacity.
	Enqueue(item T) error

	// DequeueWithTimeout returns the oldest item, waiting up to timeout for one
	// to arrive. On timeout it returns ok=false and a nil error.
	DequeueWithTimeout(ctx context.Context, timeout time.Duration) (item T, ok bool, err error)

	// Length returns the number of queued items
	Length() int

	// Close rejects further enqueues. Items already queued remain drainable.
	Close() error
}

// DefaultPollInterval is how long the worker waits for an item before
// re-checking its stop signal.
const DefaultPollInterval = time.Second
