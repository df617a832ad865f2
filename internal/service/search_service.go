// Package service 提供了搜索相关的业务逻辑。
package service

import (
	"context"

	"research-pilot-go/internal/model"
	"research-pilot-go/internal/repository"
	"research-pilot-go/internal/vectorstore"
	"research-pilot-go/pkg/log"
)

// SearchService 接口定义了跨论文的语义搜索操作。
type SearchService interface {
	Search(ctx context.Context, query string, topK int, paperID *uint, user *model.User) ([]model.SearchResponseDTO, error)
}

type searchService struct {
	index     *vectorstore.Index
	paperRepo repository.PaperRepository
}

// NewSearchService 创建一个新的 SearchService 实例。
func NewSearchService(index *vectorstore.Index, paperRepo repository.PaperRepository) SearchService {
	return &searchService{index: index, paperRepo: paperRepo}
}

// Search 对用户的查询执行向量检索，并补充论文标题等展示信息。
func (s *searchService) Search(ctx context.Context, query string, topK int, paperID *uint, user *model.User) ([]model.SearchResponseDTO, error) {
	log.Infof("[SearchService] 开始语义搜索, query: '%s', topK: %d, user: %d", query, topK, user.ID)
	if topK <= 0 {
		topK = 5
	}

	results := s.index.Search(ctx, query, topK, paperID)
	if len(results) == 0 {
		return []model.SearchResponseDTO{}, nil
	}

	// 批量补充论文标题，同一论文只查一次
	titles := make(map[uint]string)
	dtos := make([]model.SearchResponseDTO, 0, len(results))
	for _, r := range results {
		pid := metadataPaperID(r.Metadata)
		title, ok := titles[pid]
		if !ok {
			title = metadataTitle(r.Metadata)
			if title == "" && pid != 0 {
				if paper, err := s.paperRepo.FindByID(pid); err == nil {
					title = paper.Title
				}
			}
			titles[pid] = title
		}
		dtos = append(dtos, model.SearchResponseDTO{
			PaperID:    pid,
			PaperTitle: title,
			ChunkID:    r.ID,
			ChunkIndex: metadataChunkIndex(r.Metadata),
			Text:       r.Text,
			Distance:   r.Distance,
		})
	}
	log.Infof("[SearchService] 搜索完成, 返回 %d 条结果", len(dtos))
	return dtos, nil
}

func metadataPaperID(metadata map[string]interface{}) uint {
	switch v := metadata["paper_id"].(type) {
	case uint:
		return v
	case int:
		return uint(v)
	case float64:
		return uint(v)
	default:
		return 0
	}
}

// ES 后端的元数据经过 JSON 往返，数值会解码为 float64
func metadataChunkIndex(metadata map[string]interface{}) int {
	switch v := metadata["chunk_index"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

func metadataTitle(metadata map[string]interface{}) string {
	if t, ok := metadata["title"].(string); ok {
		return t
	}
	return ""
}
