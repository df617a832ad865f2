// Package queue 提供了基于 Kafka 的摄取任务队列驱动。
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"research-pilot-go/internal/config"
	"research-pilot-go/internal/pipeline"
	"research-pilot-go/pkg/log"
	"research-pilot-go/pkg/tasks"

	"github.com/segmentio/kafka-go"
)

// KafkaQueue 通过 Kafka 主题传递论文处理任务，实现 pipeline.Queue 接口。
// 消息在取出时即提交 offset，失败重试由管线的状态机负责，不依赖 Kafka 重投。
type KafkaQueue struct {
	writer *kafka.Writer
	reader *kafka.Reader
}

// NewKafkaQueue 创建 Kafka 队列驱动。
func NewKafkaQueue(cfg config.KafkaConfig) *KafkaQueue {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{cfg.Brokers},
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	log.Infof("Kafka 任务队列初始化成功, topic: '%s', group: '%s'", cfg.Topic, cfg.GroupID)
	return &KafkaQueue{writer: writer, reader: reader}
}

// Enqueue 发送一个论文处理任务到 Kafka。
func (q *KafkaQueue) Enqueue(ctx context.Context, task tasks.PaperProcessingTask) error {
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return q.writer.WriteMessages(ctx, kafka.Message{Value: taskBytes})
}

// Dequeue 在 wait 时长内尝试取出一个任务，超时返回 pipeline.ErrQueueEmpty。
func (q *KafkaQueue) Dequeue(ctx context.Context, wait time.Duration) (tasks.PaperProcessingTask, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	m, err := q.reader.FetchMessage(fetchCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return tasks.PaperProcessingTask{}, pipeline.ErrQueueEmpty
		}
		return tasks.PaperProcessingTask{}, fmt.Errorf("从 Kafka 读取消息失败: %w", err)
	}

	if err := q.reader.CommitMessages(ctx, m); err != nil {
		log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
	}

	var task tasks.PaperProcessingTask
	if err := json.Unmarshal(m.Value, &task); err != nil {
		log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
		return tasks.PaperProcessingTask{}, pipeline.ErrQueueEmpty
	}
	return task, nil
}

// Close 关闭底层的生产者和消费者。
func (q *KafkaQueue) Close() error {
	if err := q.writer.Close(); err != nil {
		return err
	}
	return q.reader.Close()
}
