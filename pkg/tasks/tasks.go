// Package tasks defines the structure for tasks handed to the ingestion queue.
package tasks

// PaperProcessingTask represents a single paper-processing job.
// 投递语义为 at-least-once：队列本身不去重，去重在 pipeline 层完成。
type PaperProcessingTask struct {
	PaperID uint `json:"paper_id"`
}
