package pipeline

import (
	"context"
	"testing"
	"time"

	"research-pilot-go/pkg/tasks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQueueFIFO(t *testing.T) {
	q := NewMemoryQueue(8)
	ctx := context.Background()

	for i := uint(1); i <= 3; i++ {
		require.NoError(t, q.Enqueue(ctx, tasks.PaperProcessingTask{PaperID: i}))
	}
	for i := uint(1); i <= 3; i++ {
		task, err := q.Dequeue(ctx, 10*time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, i, task.PaperID)
	}
}

func TestMemoryQueueDequeueTimeout(t *testing.T) {
	q := NewMemoryQueue(1)
	start := time.Now()
	_, err := q.Dequeue(context.Background(), 30*time.Millisecond)
	assert.ErrorIs(t, err, ErrQueueEmpty)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestMemoryQueueFull(t *testing.T) {
	q := NewMemoryQueue(1)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, tasks.PaperProcessingTask{PaperID: 1}))
	assert.Error(t, q.Enqueue(ctx, tasks.PaperProcessingTask{PaperID: 2}))
}

func TestMemoryQueueDequeueCancelled(t *testing.T) {
	q := NewMemoryQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := q.Dequeue(ctx, time.Second)
	assert.Error(t, err)
}
