// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"research-pilot-go/internal/config"
	"research-pilot-go/internal/model"
	"research-pilot-go/internal/pipeline"
	"research-pilot-go/internal/repository"
	"research-pilot-go/internal/vectorstore"
	"research-pilot-go/pkg/log"
	"research-pilot-go/pkg/storage"
)

// ErrNotOwner 表示请求者不是该论文的所有者。
var ErrNotOwner = errors.New("paper does not belong to this user")

// PaperService 接口定义了论文生命周期的业务操作。
type PaperService interface {
	Upload(ctx context.Context, user *model.User, fileName string, data []byte) (*model.Paper, error)
	List(userID uint, page, pageSize int) ([]model.Paper, int64, error)
	Get(userID, paperID uint) (*model.Paper, error)
	Delete(ctx context.Context, userID, paperID uint) error
	Reprocess(ctx context.Context, userID, paperID uint) error
	DownloadURL(ctx context.Context, userID, paperID uint) (string, error)
	Stats(userID uint) (map[string]interface{}, error)
}

type paperService struct {
	paperRepo repository.PaperRepository
	studyRepo repository.StudyRepository
	index     *vectorstore.Index
	pipeline  *pipeline.Pipeline
	minioCfg  config.MinIOConfig
}

// NewPaperService 创建一个新的 PaperService 实例。
func NewPaperService(
	paperRepo repository.PaperRepository,
	studyRepo repository.StudyRepository,
	index *vectorstore.Index,
	pl *pipeline.Pipeline,
	minioCfg config.MinIOConfig,
) PaperService {
	return &paperService{
		paperRepo: paperRepo,
		studyRepo: studyRepo,
		index:     index,
		pipeline:  pl,
		minioCfg:  minioCfg,
	}
}

// Upload 保存上传的 PDF 到对象存储，创建论文记录并提交处理任务。
func (s *paperService) Upload(ctx context.Context, user *model.User, fileName string, data []byte) (*model.Paper, error) {
	if len(data) == 0 {
		return nil, errors.New("上传文件内容为空")
	}
	if !strings.EqualFold(filepath.Ext(fileName), ".pdf") {
		return nil, errors.New("仅支持 PDF 文件")
	}

	objectName := fmt.Sprintf("papers/%d/%d_%s", user.ID, time.Now().UnixNano(), filepath.Base(fileName))
	if err := storage.PutObject(ctx, s.minioCfg.BucketName, objectName, "application/pdf", data); err != nil {
		log.Errorf("[PaperService] 上传文件到 MinIO 失败, Object: %s, Error: %v", objectName, err)
		return nil, fmt.Errorf("保存文件失败: %w", err)
	}

	paper := &model.Paper{
		UserID:     user.ID,
		Title:      strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName)),
		ObjectName: objectName,
		FileName:   filepath.Base(fileName),
		FileSize:   int64(len(data)),
		Status:     model.PaperStatusQueued,
		UploadDate: time.Now(),
	}
	if err := s.paperRepo.Create(paper); err != nil {
		return nil, fmt.Errorf("创建论文记录失败: %w", err)
	}

	if err := s.pipeline.Enqueue(ctx, paper.ID); err != nil {
		log.Errorf("[PaperService] 论文 %d 入队失败: %v", paper.ID, err)
		detail := err.Error()
		_ = s.paperRepo.UpdateStatus(paper.ID, model.PaperStatusError, &detail)
		return nil, fmt.Errorf("提交处理任务失败: %w", err)
	}

	log.Infof("[PaperService] 论文上传成功, PaperID: %d, FileName: %s, Size: %d", paper.ID, paper.FileName, paper.FileSize)
	return paper, nil
}

// List 分页列出用户的论文。
func (s *paperService) List(userID uint, page, pageSize int) ([]model.Paper, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.paperRepo.FindByUser(userID, (page-1)*pageSize, pageSize)
}

// Get 获取单篇论文，校验所有权。
func (s *paperService) Get(userID, paperID uint) (*model.Paper, error) {
	paper, err := s.paperRepo.FindByID(paperID)
	if err != nil {
		return nil, err
	}
	if paper.UserID != userID {
		return nil, ErrNotOwner
	}
	return paper, nil
}

// Delete 删除论文及其所有派生数据：对象存储文件、向量分块、学习材料和数据库记录。
func (s *paperService) Delete(ctx context.Context, userID, paperID uint) error {
	paper, err := s.Get(userID, paperID)
	if err != nil {
		return err
	}

	if ok := s.index.DeletePaper(ctx, paperID); !ok {
		log.Warnf("[PaperService] 删除论文 %d 的向量分块失败，继续删除其余数据", paperID)
	}
	if err := s.studyRepo.DeleteArtifactsByPaper(paperID); err != nil {
		log.Warnf("[PaperService] 删除论文 %d 的学习材料失败: %v", paperID, err)
	}
	if err := storage.RemoveObject(ctx, s.minioCfg.BucketName, paper.ObjectName); err != nil {
		log.Warnf("[PaperService] 删除论文 %d 的存储对象失败: %v", paperID, err)
	}
	return s.paperRepo.Delete(paperID)
}

// Reprocess 将论文重新提交到摄取管线。
func (s *paperService) Reprocess(ctx context.Context, userID, paperID uint) error {
	paper, err := s.Get(userID, paperID)
	if err != nil {
		return err
	}
	if err := s.paperRepo.UpdateStatus(paper.ID, model.PaperStatusQueued, nil); err != nil {
		return err
	}
	return s.pipeline.Enqueue(ctx, paper.ID)
}

// DownloadURL 生成论文原始文件的预签名下载链接。
func (s *paperService) DownloadURL(ctx context.Context, userID, paperID uint) (string, error) {
	paper, err := s.Get(userID, paperID)
	if err != nil {
		return "", err
	}
	return storage.GetPresignedURL(s.minioCfg.BucketName, paper.ObjectName, time.Hour)
}

// Stats 返回用户的论文统计和索引整体规模。
func (s *paperService) Stats(userID uint) (map[string]interface{}, error) {
	counts, err := s.paperRepo.CountByStatus()
	if err != nil {
		return nil, err
	}
	var total int64
	for _, n := range counts {
		total += n
	}
	indexStats := s.index.Stats(context.Background())
	return map[string]interface{}{
		"total_papers": total,
		"by_status":    counts,
		"index":        indexStats,
	}, nil
}
