package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetadataChunkIndexHandlesJSONNumbers(t *testing.T) {
	assert.Equal(t, 3, metadataChunkIndex(map[string]interface{}{"chunk_index": 3}))
	// ES 返回的元数据经过 JSON 解码，数值是 float64
	assert.Equal(t, 7, metadataChunkIndex(map[string]interface{}{"chunk_index": float64(7)}))
	assert.Equal(t, 0, metadataChunkIndex(map[string]interface{}{}))
	assert.Equal(t, 0, metadataChunkIndex(map[string]interface{}{"chunk_index": "x"}))
}

func TestMetadataPaperID(t *testing.T) {
	assert.Equal(t, uint(5), metadataPaperID(map[string]interface{}{"paper_id": uint(5)}))
	assert.Equal(t, uint(6), metadataPaperID(map[string]interface{}{"paper_id": 6}))
	assert.Equal(t, uint(7), metadataPaperID(map[string]interface{}{"paper_id": float64(7)}))
	assert.Equal(t, uint(0), metadataPaperID(map[string]interface{}{}))
}
