package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQueue_FIFO(t *testing.T) {
	q := NewMemoryQueue[int]()
	defer q.Close()

	ctx := context.Background()
	for i := 0; i < 200; i++ {
		require.NoError(t, q.Enqueue(i))
	}
	assert.Equal(t, 200, q.Length())

	for i := 0; i < 200; i++ {
		item, ok, err := q.DequeueWithTimeout(ctx, 100*time.Millisecond)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, i, item)
	}
	assert.Equal(t, 0, q.Length())
}

func TestMemoryQueue_DequeueWithTimeout(t *testing.T) {
	q := NewMemoryQueue[string]()
	defer q.Close()

	start := time.Now()
	item, ok, err := q.DequeueWithTimeout(context.Background(), 100*time.Millisecond)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, item)
	assert.GreaterOrEqual(t, elapsed, 90*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
}

func TestMemoryQueue_WakesWaitingConsumer(t *testing.T) {
	q := NewMemoryQueue[string]()
	defer q.Close()

	done := make(chan string, 1)
	go func() {
		item, ok, err := q.DequeueWithTimeout(context.Background(), 5*time.Second)
		if err != nil || !ok {
			done <- ""
			return
		}
		done <- item
	}()

	time.Sleep(50 * time.Millisecond)
	start := time.Now()
	require.NoError(t, q.Enqueue("late"))

	select {
	case got := <-done:
		assert.Equal(t, "late", got)
		assert.Less(t, time.Since(start), time.Second)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer was not woken by Enqueue")
	}
}

func TestMemoryQueue_ContextCancelled(t *testing.T) {
	q := NewMemoryQueue[int]()
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok, err := q.DequeueWithTimeout(ctx, time.Second)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryQueue_Close(t *testing.T) {
	q := NewMemoryQueue[int]()
	ctx := context.Background()

	require.NoError(t, q.Enqueue(1))
	require.NoError(t, q.Close())
	require.NoError(t, q.Close())

	assert.ErrorIs(t, q.Enqueue(2), ErrQueueClosed)

	// Items queued before Close stay drainable
	item, ok, err := q.DequeueWithTimeout(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, item)

	_, ok, err = q.DequeueWithTimeout(ctx, 100*time.Millisecond)
	assert.False(t, ok)
	assert.True(t, errors.Is(err, ErrQueueClosed))
}

func TestMemoryQueue_ConcurrentProducers(t *testing.T) {
	q := NewMemoryQueue[int]()
	defer q.Close()

	const producers = 16
	const perProducer = 250

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				_ = q.Enqueue(p*perProducer + i)
			}
		}(p)
	}

	seen := make(map[int]bool)
	lastByProducer := make(map[int]int)
	ctx := context.Background()

	for len(seen) < producers*perProducer {
		item, ok, err := q.DequeueWithTimeout(ctx, 2*time.Second)
		require.NoError(t, err)
		require.True(t, ok, "timed out after %d items", len(seen))
		require.False(t, seen[item], "duplicate item %d", item)
		seen[item] = true

		// Per-producer order is preserved
		p := item / perProducer
		if last, ok := lastByProducer[p]; ok {
			assert.Greater(t, item, last)
		}
		lastByProducer[p] = item
	}

	wg.Wait()
	assert.Equal(t, 0, q.Length())
}
