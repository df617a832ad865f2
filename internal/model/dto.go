// Package model 定义了与数据库表对应的 Go 结构体。
package model

// SearchResponseDTO 定义了返回给前端的语义搜索结果结构。
type SearchResponseDTO struct {
	PaperID    uint    `json:"paperId"`
	PaperTitle string  `json:"paperTitle"`
	ChunkID    string  `json:"chunkId"`
	ChunkIndex int     `json:"chunkIndex"`
	Text       string  `json:"text"`
	Distance   float64 `json:"distance"` // 越小越相似
}
