// Package repository 提供了数据访问层的实现。
package repository

import (
	"time"

	"research-pilot-go/internal/model"

	"gorm.io/gorm"
)

// PaperRepository 接口定义了论文记录的持久化操作。
type PaperRepository interface {
	Create(paper *model.Paper) error
	FindByID(paperID uint) (*model.Paper, error)
	FindByUser(userID uint, offset, limit int) ([]model.Paper, int64, error)
	FindByUserAndStatus(userID uint, status string) ([]model.Paper, error)
	Update(paper *model.Paper) error
	UpdateStatus(paperID uint, status string, errorDetail *string) error
	Delete(paperID uint) error
	CountByStatus() (map[string]int64, error)
}

// paperRepository 是 PaperRepository 接口的 GORM 实现。
type paperRepository struct {
	db *gorm.DB
}

// NewPaperRepository 创建一个新的 PaperRepository 实例。
func NewPaperRepository(db *gorm.DB) PaperRepository {
	return &paperRepository{db: db}
}

// Create 在数据库中创建一条新的论文记录。
func (r *paperRepository) Create(paper *model.Paper) error {
	return r.db.Create(paper).Error
}

// FindByID 根据论文 ID 查找一条论文记录。
func (r *paperRepository) FindByID(paperID uint) (*model.Paper, error) {
	var paper model.Paper
	err := r.db.First(&paper, paperID).Error
	if err != nil {
		return nil, err
	}
	return &paper, nil
}

// FindByUser 分页检索某个用户的论文记录，按上传时间倒序。
func (r *paperRepository) FindByUser(userID uint, offset, limit int) ([]model.Paper, int64, error) {
	var papers []model.Paper
	var total int64

	db := r.db.Model(&model.Paper{}).Where("user_id = ?", userID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Order("upload_date DESC").Offset(offset).Limit(limit).Find(&papers).Error
	if err != nil {
		return nil, 0, err
	}
	return papers, total, nil
}

// FindByUserAndStatus 检索某个用户处于指定状态的论文记录。
func (r *paperRepository) FindByUserAndStatus(userID uint, status string) ([]model.Paper, error) {
	var papers []model.Paper
	err := r.db.Where("user_id = ? AND status = ?", userID, status).Find(&papers).Error
	return papers, err
}

// Update 更新数据库中一条已存在的论文记录。
func (r *paperRepository) Update(paper *model.Paper) error {
	return r.db.Save(paper).Error
}

// UpdateStatus 更新论文的处理状态和错误详情，进入终态时写入处理完成时间。
func (r *paperRepository) UpdateStatus(paperID uint, status string, errorDetail *string) error {
	updates := map[string]interface{}{
		"status":       status,
		"error_detail": errorDetail,
	}
	if status == model.PaperStatusReady || status == model.PaperStatusError {
		now := time.Now()
		updates["processed_at"] = &now
	}
	return r.db.Model(&model.Paper{}).Where("id = ?", paperID).Updates(updates).Error
}

// Delete 删除一条论文记录。
func (r *paperRepository) Delete(paperID uint) error {
	return r.db.Delete(&model.Paper{}, paperID).Error
}

// CountByStatus 按状态统计论文数量。
func (r *paperRepository) CountByStatus() (map[string]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	err := r.db.Model(&model.Paper{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, rw := range rows {
		counts[rw.Status] = rw.Count
	}
	return counts, nil
}
