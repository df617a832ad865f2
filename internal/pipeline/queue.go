// Package pipeline 定义了论文摄取处理的核心流程。
package pipeline

import (
	"context"
	"errors"
	"time"

	"research-pilot-go/pkg/tasks"
)

// ErrQueueEmpty 表示在等待窗口内没有取到任务。
var ErrQueueEmpty = errors.New("queue is empty")

// Queue 是摄取任务队列的抽象，内存实现为默认驱动，Kafka 实现见 pkg/queue。
type Queue interface {
	Enqueue(ctx context.Context, task tasks.PaperProcessingTask) error
	// Dequeue 最多等待 wait 时长，超时返回 ErrQueueEmpty。
	Dequeue(ctx context.Context, wait time.Duration) (tasks.PaperProcessingTask, error)
}

// memoryQueue 是进程内的有界 FIFO 队列。
type memoryQueue struct {
	ch chan tasks.PaperProcessingTask
}

// NewMemoryQueue 创建容量为 bufferSize 的内存队列。
func NewMemoryQueue(bufferSize int) Queue {
	if bufferSize <= 0 {
		bufferSize = 128
	}
	return &memoryQueue{ch: make(chan tasks.PaperProcessingTask, bufferSize)}
}

func (q *memoryQueue) Enqueue(_ context.Context, task tasks.PaperProcessingTask) error {
	select {
	case q.ch <- task:
		return nil
	default:
		return errors.New("queue is full")
	}
}

func (q *memoryQueue) Dequeue(ctx context.Context, wait time.Duration) (tasks.PaperProcessingTask, error) {
	select {
	case task := <-q.ch:
		return task, nil
	default:
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case task := <-q.ch:
		return task, nil
	case <-timer.C:
		return tasks.PaperProcessingTask{}, ErrQueueEmpty
	case <-ctx.Done():
		return tasks.PaperProcessingTask{}, ctx.Err()
	}
}
