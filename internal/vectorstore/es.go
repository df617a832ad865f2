package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"research-pilot-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// esDocument 是写入 Elasticsearch 的分块文档结构，与索引映射保持一致。
type esDocument struct {
	ChunkID       string                 `json:"chunk_id"`
	PaperID       uint                   `json:"paper_id"`
	PaperTitle    string                 `json:"paper_title"`
	ChunkIndex    int                    `json:"chunk_index"`
	TotalChunks   int                    `json:"total_chunks"`
	TextContent   string                 `json:"text_content"`
	Vector        []float32              `json:"vector"`
	Timestamp     string                 `json:"timestamp"`
	ContentLength int                    `json:"content_length"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// ESBackend 是基于 Elasticsearch dense_vector kNN 的向量存储驱动。
type ESBackend struct {
	client    *elasticsearch.Client
	indexName string
}

// NewESBackend 创建 Elasticsearch 驱动。
func NewESBackend(client *elasticsearch.Client, indexName string) *ESBackend {
	return &ESBackend{client: client, indexName: indexName}
}

func (b *ESBackend) Upsert(ctx context.Context, chunks []Chunk) error {
	for _, c := range chunks {
		doc := esDocument{
			ChunkID:     c.ID,
			PaperID:     c.PaperID,
			TextContent: c.Text,
			Vector:      c.Vector,
			Metadata:    c.Metadata,
		}
		if title, ok := c.Metadata["title"].(string); ok {
			doc.PaperTitle = title
		}
		if idx, ok := c.Metadata["chunk_index"].(int); ok {
			doc.ChunkIndex = idx
		}
		if total, ok := c.Metadata["total_chunks"].(int); ok {
			doc.TotalChunks = total
		}
		if ts, ok := c.Metadata["timestamp"].(string); ok {
			doc.Timestamp = ts
		}
		if n, ok := c.Metadata["content_length"].(int); ok {
			doc.ContentLength = n
		}

		docBytes, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		req := esapi.IndexRequest{
			Index:      b.indexName,
			DocumentID: c.ID,
			Body:       bytes.NewReader(docBytes),
			Refresh:    "true",
		}
		res, err := req.Do(ctx, b.client)
		if err != nil {
			return err
		}
		if res.IsError() {
			msg := res.String()
			res.Body.Close()
			log.Errorf("索引分块 %s 到 Elasticsearch 出错: %s", c.ID, msg)
			return errors.New("failed to index chunk")
		}
		res.Body.Close()
	}
	return nil
}

func (b *ESBackend) Query(ctx context.Context, vector []float32, topK int, paperID *uint) ([]SearchResult, error) {
	knn := map[string]interface{}{
		"field":          "vector",
		"query_vector":   vector,
		"k":              topK,
		"num_candidates": topK * 10,
	}
	if paperID != nil {
		knn["filter"] = map[string]interface{}{
			"term": map[string]interface{}{"paper_id": *paperID},
		}
	}
	esQuery := map[string]interface{}{
		"knn":  knn,
		"size": topK,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		return nil, fmt.Errorf("failed to encode es query: %w", err)
	}

	res, err := b.client.Search(
		b.client.Search.WithContext(ctx),
		b.client.Search.WithIndex(b.indexName),
		b.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch returned an error: %s", res.String())
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				Source esDocument `json:"_source"`
				Score  float64    `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("failed to decode es response: %w", err)
	}

	results := make([]SearchResult, 0, len(esResponse.Hits.Hits))
	for _, hit := range esResponse.Hits.Hits {
		// kNN cosine 的 _score = (1 + cosine) / 2，还原为 1 - cosine 的距离
		distance := 1 - (2*hit.Score - 1)
		results = append(results, SearchResult{
			ID:       hit.Source.ChunkID,
			Text:     hit.Source.TextContent,
			Distance: distance,
			Metadata: hit.Source.Metadata,
		})
	}
	return results, nil
}

func (b *ESBackend) DeleteByPaper(ctx context.Context, paperID uint) error {
	query := fmt.Sprintf(`{"query": {"term": {"paper_id": %d}}}`, paperID)
	req := esapi.DeleteByQueryRequest{
		Index:   []string{b.indexName},
		Body:    strings.NewReader(query),
		Refresh: esBoolPtr(true),
	}
	res, err := req.Do(ctx, b.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("按论文 %d 删除分块出错: %s", paperID, res.String())
		return errors.New("failed to delete chunks by paper")
	}
	return nil
}

func (b *ESBackend) Count(ctx context.Context) (int64, error) {
	res, err := b.client.Count(
		b.client.Count.WithContext(ctx),
		b.client.Count.WithIndex(b.indexName),
	)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, fmt.Errorf("elasticsearch count returned an error: %s", res.String())
	}

	var countResponse struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&countResponse); err != nil {
		return 0, err
	}
	return countResponse.Count, nil
}

func esBoolPtr(v bool) *bool { return &v }
