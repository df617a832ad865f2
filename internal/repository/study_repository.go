// Package repository 提供了数据访问层的实现。
package repository

import (
	"research-pilot-go/internal/model"

	"gorm.io/gorm"
)

// StudyRepository 接口定义了学习材料的持久化操作。
type StudyRepository interface {
	CreateNote(note *model.Note) error
	FindNoteByPaper(paperID uint) (*model.Note, error)
	CreateFlashcards(cards []model.Flashcard) error
	FindFlashcardsByPaper(paperID uint) ([]model.Flashcard, error)
	CreateMindMap(mindMap *model.MindMap) error
	FindMindMapByPaper(paperID uint) (*model.MindMap, error)
	DeleteArtifactsByPaper(paperID uint) error
	CreateStudyPlan(plan *model.StudyPlan) error
	FindStudyPlansByUser(userID uint) ([]model.StudyPlan, error)
	CreateInsights(insights []model.Insight) error
	FindInsightsByUser(userID uint) ([]model.Insight, error)
}

// studyRepository 是 StudyRepository 接口的 GORM 实现。
type studyRepository struct {
	db *gorm.DB
}

// NewStudyRepository 创建一个新的 StudyRepository 实例。
func NewStudyRepository(db *gorm.DB) StudyRepository {
	return &studyRepository{db: db}
}

func (r *studyRepository) CreateNote(note *model.Note) error {
	return r.db.Create(note).Error
}

func (r *studyRepository) FindNoteByPaper(paperID uint) (*model.Note, error) {
	var note model.Note
	err := r.db.Where("paper_id = ?", paperID).Order("created_at DESC").First(&note).Error
	if err != nil {
		return nil, err
	}
	return &note, nil
}

func (r *studyRepository) CreateFlashcards(cards []model.Flashcard) error {
	if len(cards) == 0 {
		return nil
	}
	return r.db.Create(&cards).Error
}

func (r *studyRepository) FindFlashcardsByPaper(paperID uint) ([]model.Flashcard, error) {
	var cards []model.Flashcard
	err := r.db.Where("paper_id = ?", paperID).Find(&cards).Error
	return cards, err
}

func (r *studyRepository) CreateMindMap(mindMap *model.MindMap) error {
	return r.db.Create(mindMap).Error
}

func (r *studyRepository) FindMindMapByPaper(paperID uint) (*model.MindMap, error) {
	var mindMap model.MindMap
	err := r.db.Where("paper_id = ?", paperID).Order("created_at DESC").First(&mindMap).Error
	if err != nil {
		return nil, err
	}
	return &mindMap, nil
}

// DeleteArtifactsByPaper 删除某篇论文的全部学习材料，用于重新处理前的清理。
func (r *studyRepository) DeleteArtifactsByPaper(paperID uint) error {
	if err := r.db.Where("paper_id = ?", paperID).Delete(&model.Note{}).Error; err != nil {
		return err
	}
	if err := r.db.Where("paper_id = ?", paperID).Delete(&model.Flashcard{}).Error; err != nil {
		return err
	}
	return r.db.Where("paper_id = ?", paperID).Delete(&model.MindMap{}).Error
}

func (r *studyRepository) CreateStudyPlan(plan *model.StudyPlan) error {
	return r.db.Create(plan).Error
}

func (r *studyRepository) FindStudyPlansByUser(userID uint) ([]model.StudyPlan, error) {
	var plans []model.StudyPlan
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&plans).Error
	return plans, err
}

func (r *studyRepository) CreateInsights(insights []model.Insight) error {
	if len(insights) == 0 {
		return nil
	}
	return r.db.Create(&insights).Error
}

func (r *studyRepository) FindInsightsByUser(userID uint) ([]model.Insight, error) {
	var insights []model.Insight
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&insights).Error
	return insights, err
}
