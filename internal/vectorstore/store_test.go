package vectorstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder 按预设词表返回固定向量，未命中的文本返回默认向量。
type fakeEmbedder struct {
	vectors map[string][]float32
	fail    bool
}

func (f *fakeEmbedder) CreateEmbedding(_ context.Context, text string) ([]float32, error) {
	if f.fail {
		return nil, errors.New("embedding service unavailable")
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0, 0}, nil
}

func (f *fakeEmbedder) CreateEmbeddings(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v, err := f.CreateEmbedding(context.Background(), t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// failingBackend 所有操作都返回错误，用于验证降级行为。
type failingBackend struct{}

func (failingBackend) Upsert(context.Context, []Chunk) error { return errors.New("backend down") }
func (failingBackend) Query(context.Context, []float32, int, *uint) ([]SearchResult, error) {
	return nil, errors.New("backend down")
}
func (failingBackend) DeleteByPaper(context.Context, uint) error { return errors.New("backend down") }
func (failingBackend) Count(context.Context) (int64, error)      { return 0, errors.New("backend down") }

func newTestIndex() (*Index, *MemoryBackend) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"neural networks":    {1, 0, 0},
		"graph algorithms":   {0, 1, 0},
		"protein folding":    {0, 0, 1},
		"deep learning":      {0.9, 0.1, 0},
		"shortest paths":     {0.1, 0.9, 0},
	}}
	backend := NewMemoryBackend()
	return NewIndex(embedder, backend), backend
}

func TestAddPaperAndSearch(t *testing.T) {
	ctx := context.Background()
	idx, _ := newTestIndex()

	ok := idx.AddPaper(ctx, 1, "Paper One", []string{"neural networks", "graph algorithms"}, nil)
	require.True(t, ok)

	results := idx.Search(ctx, "deep learning", 5, nil)
	require.NotEmpty(t, results)
	assert.Equal(t, "neural networks", results[0].Text)
	assert.Equal(t, "paper_1_chunk_0", results[0].ID)

	// 距离升序
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i].Distance, results[i-1].Distance)
	}
}

func TestSearchFilterByPaper(t *testing.T) {
	ctx := context.Background()
	idx, _ := newTestIndex()

	require.True(t, idx.AddPaper(ctx, 1, "Paper One", []string{"neural networks"}, nil))
	require.True(t, idx.AddPaper(ctx, 2, "Paper Two", []string{"graph algorithms"}, nil))

	paperID := uint(2)
	results := idx.Search(ctx, "deep learning", 5, &paperID)
	require.Len(t, results, 1)
	assert.Equal(t, "graph algorithms", results[0].Text)
}

func TestChunkMetadata(t *testing.T) {
	ctx := context.Background()
	idx, _ := newTestIndex()

	extra := map[string]interface{}{"title": "Caller Title", "course": "ml101"}
	require.True(t, idx.AddPaper(ctx, 7, "Stored Title", []string{"neural networks", "protein folding"}, extra))

	results := idx.Search(ctx, "neural networks", 1, nil)
	require.Len(t, results, 1)
	meta := results[0].Metadata
	// 调用方的同名字段覆盖内置字段
	assert.Equal(t, "Caller Title", meta["title"])
	assert.Equal(t, "ml101", meta["course"])
	assert.Equal(t, uint(7), meta["paper_id"])
	assert.Equal(t, 0, meta["chunk_index"])
	assert.Equal(t, 2, meta["total_chunks"])
	assert.NotEmpty(t, meta["timestamp"])
	assert.Equal(t, len("neural networks"), meta["content_length"])
}

func TestDeletePaperAndStats(t *testing.T) {
	ctx := context.Background()
	idx, _ := newTestIndex()

	require.True(t, idx.AddPaper(ctx, 1, "One", []string{"neural networks", "graph algorithms"}, nil))
	require.True(t, idx.AddPaper(ctx, 2, "Two", []string{"protein folding"}, nil))

	stats := idx.Stats(ctx)
	assert.Equal(t, int64(3), stats["total_chunks"])

	assert.True(t, idx.DeletePaper(ctx, 1))
	stats = idx.Stats(ctx)
	assert.Equal(t, int64(1), stats["total_chunks"])

	results := idx.Search(ctx, "deep learning", 5, nil)
	require.Len(t, results, 1)
	assert.Equal(t, "protein folding", results[0].Text)
}

func TestAddPaperEmptyChunks(t *testing.T) {
	idx, backend := newTestIndex()
	assert.True(t, idx.AddPaper(context.Background(), 1, "Empty", nil, nil))
	count, err := backend.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestFailureDegradation(t *testing.T) {
	ctx := context.Background()

	idx := NewIndex(&fakeEmbedder{}, failingBackend{})
	assert.False(t, idx.AddPaper(ctx, 1, "One", []string{"text"}, nil))
	assert.False(t, idx.DeletePaper(ctx, 1))
	assert.Empty(t, idx.Search(ctx, "anything", 5, nil))
	assert.Equal(t, int64(0), idx.Stats(ctx)["total_chunks"])

	// 嵌入失败同样降级
	idx = NewIndex(&fakeEmbedder{fail: true}, NewMemoryBackend())
	assert.False(t, idx.AddPaper(ctx, 1, "One", []string{"text"}, nil))
	results := idx.Search(ctx, "anything", 5, nil)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestReAddDuplicatesWithoutDelete(t *testing.T) {
	ctx := context.Background()
	idx, backend := newTestIndex()

	require.True(t, idx.AddPaper(ctx, 1, "One", []string{"neural networks"}, nil))
	require.True(t, idx.AddPaper(ctx, 1, "One", []string{"neural networks", "graph algorithms"}, nil))

	// 同 ID 覆盖，新增的分块保留
	count, err := backend.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
