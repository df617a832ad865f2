// Package vectorstore 管理论文分块的向量索引：写入、kNN 检索、删除与统计。
package vectorstore

import (
	"context"
	"fmt"
	"time"

	"research-pilot-go/pkg/embedding"
	"research-pilot-go/pkg/log"
)

// Chunk 是索引中的一个分块文档。
type Chunk struct {
	ID       string
	PaperID  uint
	Text     string
	Vector   []float32
	Metadata map[string]interface{}
}

// SearchResult 是一次 kNN 检索的单条结果，Distance 为 1 - cosine，升序排列。
type SearchResult struct {
	ID       string
	Text     string
	Distance float64
	Metadata map[string]interface{}
}

// Backend 是向量存储驱动需要实现的最小接口。
type Backend interface {
	Upsert(ctx context.Context, chunks []Chunk) error
	Query(ctx context.Context, vector []float32, topK int, paperID *uint) ([]SearchResult, error)
	DeleteByPaper(ctx context.Context, paperID uint) error
	Count(ctx context.Context) (int64, error)
}

// Index 组合嵌入客户端和一个 Backend 驱动。
// 对上层它不返回错误：写入和删除降级为 bool，检索降级为空结果。
type Index struct {
	embedder embedding.Client
	backend  Backend
}

// NewIndex 创建向量索引门面。
func NewIndex(embedder embedding.Client, backend Backend) *Index {
	return &Index{embedder: embedder, backend: backend}
}

// AddPaper 为论文的所有分块生成嵌入并写入索引，任一环节失败返回 false。
// 分块 ID 为 "paper_<id>_chunk_<i>"，调用方附加的 metadata 覆盖同名内置字段。
func (idx *Index) AddPaper(ctx context.Context, paperID uint, title string, texts []string, extra map[string]interface{}) bool {
	if len(texts) == 0 {
		return true
	}

	vectors, err := idx.embedder.CreateEmbeddings(ctx, texts)
	if err != nil {
		log.Errorf("为论文 %d 生成嵌入失败: %v", paperID, err)
		return false
	}

	now := time.Now().UTC().Format(time.RFC3339)
	chunks := make([]Chunk, 0, len(texts))
	for i, text := range texts {
		metadata := map[string]interface{}{
			"paper_id":       paperID,
			"title":          title,
			"chunk_index":    i,
			"total_chunks":   len(texts),
			"timestamp":      now,
			"content_length": len([]rune(text)),
		}
		for k, v := range extra {
			metadata[k] = v
		}
		chunks = append(chunks, Chunk{
			ID:       fmt.Sprintf("paper_%d_chunk_%d", paperID, i),
			PaperID:  paperID,
			Text:     text,
			Vector:   vectors[i],
			Metadata: metadata,
		})
	}

	if err := idx.backend.Upsert(ctx, chunks); err != nil {
		log.Errorf("写入论文 %d 的分块失败: %v", paperID, err)
		return false
	}
	log.Infof("论文 %d 已写入向量索引，共 %d 个分块", paperID, len(chunks))
	return true
}

// Search 对查询文本做 kNN 检索，可按论文过滤。任何失败返回空切片。
func (idx *Index) Search(ctx context.Context, query string, topK int, paperID *uint) []SearchResult {
	if topK <= 0 {
		topK = 5
	}
	vector, err := idx.embedder.CreateEmbedding(ctx, query)
	if err != nil {
		log.Errorf("为查询生成嵌入失败: %v", err)
		return []SearchResult{}
	}
	results, err := idx.backend.Query(ctx, vector, topK, paperID)
	if err != nil {
		log.Errorf("向量检索失败: %v", err)
		return []SearchResult{}
	}
	return results
}

// DeletePaper 删除论文的所有分块，失败返回 false。
func (idx *Index) DeletePaper(ctx context.Context, paperID uint) bool {
	if err := idx.backend.DeleteByPaper(ctx, paperID); err != nil {
		log.Errorf("删除论文 %d 的分块失败: %v", paperID, err)
		return false
	}
	return true
}

// Stats 返回索引中的分块总数，失败时计为 0。
func (idx *Index) Stats(ctx context.Context) map[string]interface{} {
	count, err := idx.backend.Count(ctx)
	if err != nil {
		log.Errorf("统计索引分块数失败: %v", err)
		count = 0
	}
	return map[string]interface{}{
		"total_chunks": count,
	}
}
