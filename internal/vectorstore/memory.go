package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryBackend 是进程内的暴力余弦检索驱动，用于测试和无 Elasticsearch 的部署。
type MemoryBackend struct {
	mu     sync.RWMutex
	chunks map[string]Chunk
}

// NewMemoryBackend 创建空的内存驱动。
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{chunks: make(map[string]Chunk)}
}

func (m *MemoryBackend) Upsert(_ context.Context, chunks []Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range chunks {
		m.chunks[c.ID] = c
	}
	return nil
}

func (m *MemoryBackend) Query(_ context.Context, vector []float32, topK int, paperID *uint) ([]SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]SearchResult, 0, len(m.chunks))
	for _, c := range m.chunks {
		if paperID != nil && c.PaperID != *paperID {
			continue
		}
		results = append(results, SearchResult{
			ID:       c.ID,
			Text:     c.Text,
			Distance: 1 - cosineSimilarity(vector, c.Vector),
			Metadata: c.Metadata,
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (m *MemoryBackend) DeleteByPaper(_ context.Context, paperID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.chunks {
		if c.PaperID == paperID {
			delete(m.chunks, id)
		}
	}
	return nil
}

func (m *MemoryBackend) Count(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.chunks)), nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
