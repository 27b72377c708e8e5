package queue

import "errors"

var (
	// ErrQueueClosed is returned when enqueueing to a closed queue, or when
	// dequeueing from a closed queue that has been fully drained
	ErrQueueClosed = errors.New("queue is closed")
)
