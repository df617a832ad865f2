// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"research-pilot-go/internal/model"
	"research-pilot-go/internal/repository"
	"research-pilot-go/internal/study"
	"research-pilot-go/pkg/log"
)

// StudyService 接口定义了学习材料的查询与生成操作。
type StudyService interface {
	GetNote(userID, paperID uint) (*model.Note, error)
	GetFlashcards(userID, paperID uint) ([]model.Flashcard, error)
	GetMindMap(userID, paperID uint) (*model.MindMap, error)
	CreateStudyPlan(ctx context.Context, user *model.User, goal, deadline string) (*model.StudyPlan, error)
	ListStudyPlans(userID uint) ([]model.StudyPlan, error)
	GenerateInsights(ctx context.Context, user *model.User) ([]model.Insight, error)
	ListInsights(userID uint) ([]model.Insight, error)
}

type studyService struct {
	studyRepo repository.StudyRepository
	paperRepo repository.PaperRepository
	generator study.Generator
}

// NewStudyService 创建一个新的 StudyService 实例。
func NewStudyService(studyRepo repository.StudyRepository, paperRepo repository.PaperRepository, generator study.Generator) StudyService {
	return &studyService{
		studyRepo: studyRepo,
		paperRepo: paperRepo,
		generator: generator,
	}
}

// ownedPaper 校验论文存在且属于该用户。
func (s *studyService) ownedPaper(userID, paperID uint) (*model.Paper, error) {
	paper, err := s.paperRepo.FindByID(paperID)
	if err != nil {
		return nil, err
	}
	if paper.UserID != userID {
		return nil, ErrNotOwner
	}
	return paper, nil
}

// GetNote 获取论文的学习笔记。
func (s *studyService) GetNote(userID, paperID uint) (*model.Note, error) {
	if _, err := s.ownedPaper(userID, paperID); err != nil {
		return nil, err
	}
	return s.studyRepo.FindNoteByPaper(paperID)
}

// GetFlashcards 获取论文的抽认卡。
func (s *studyService) GetFlashcards(userID, paperID uint) ([]model.Flashcard, error) {
	if _, err := s.ownedPaper(userID, paperID); err != nil {
		return nil, err
	}
	return s.studyRepo.FindFlashcardsByPaper(paperID)
}

// GetMindMap 获取论文的思维导图。
func (s *studyService) GetMindMap(userID, paperID uint) (*model.MindMap, error) {
	if _, err := s.ownedPaper(userID, paperID); err != nil {
		return nil, err
	}
	return s.studyRepo.FindMindMapByPaper(paperID)
}

// CreateStudyPlan 基于用户已就绪的论文生成并保存学习计划。
func (s *studyService) CreateStudyPlan(ctx context.Context, user *model.User, goal, deadline string) (*model.StudyPlan, error) {
	papers, err := s.paperRepo.FindByUserAndStatus(user.ID, model.PaperStatusReady)
	if err != nil {
		return nil, err
	}
	if len(papers) == 0 {
		return nil, errors.New("没有可用于制定计划的论文")
	}

	briefs := make([]study.PaperBrief, 0, len(papers))
	for _, p := range papers {
		briefs = append(briefs, study.PaperBrief{Title: p.Title, Abstract: p.Abstract})
	}

	planDoc, err := s.generator.GeneratePlan(ctx, goal, briefs, deadline)
	if err != nil {
		return nil, fmt.Errorf("生成学习计划失败: %w", err)
	}
	scheduleJSON, err := json.Marshal(planDoc)
	if err != nil {
		return nil, fmt.Errorf("序列化学习计划失败: %w", err)
	}

	plan := &model.StudyPlan{
		UserID:   user.ID,
		Title:    planDoc.PlanTitle,
		Goal:     goal,
		Status:   "active",
		Schedule: string(scheduleJSON),
	}
	if deadline != "" {
		if t, parseErr := time.Parse("2006-01-02", deadline); parseErr == nil {
			plan.Deadline = &t
		} else {
			log.Warnf("[StudyService] 无法解析截止日期 '%s': %v", deadline, parseErr)
		}
	}
	if err := s.studyRepo.CreateStudyPlan(plan); err != nil {
		return nil, fmt.Errorf("保存学习计划失败: %w", err)
	}
	return plan, nil
}

// ListStudyPlans 列出用户的学习计划。
func (s *studyService) ListStudyPlans(userID uint) ([]model.StudyPlan, error) {
	return s.studyRepo.FindStudyPlansByUser(userID)
}

// GenerateInsights 跨论文分析并保存洞察。
func (s *studyService) GenerateInsights(ctx context.Context, user *model.User) ([]model.Insight, error) {
	papers, err := s.paperRepo.FindByUserAndStatus(user.ID, model.PaperStatusReady)
	if err != nil {
		return nil, err
	}
	if len(papers) < 2 {
		return nil, errors.New("至少需要两篇已处理的论文才能分析洞察")
	}

	briefs := make([]study.PaperBrief, 0, len(papers))
	for _, p := range papers {
		briefs = append(briefs, study.PaperBrief{Title: p.Title, Abstract: p.Abstract})
	}

	items, err := s.generator.AnalyzeInsights(ctx, briefs)
	if err != nil {
		return nil, fmt.Errorf("分析洞察失败: %w", err)
	}

	insights := make([]model.Insight, 0, len(items))
	for _, item := range items {
		relatedJSON, jsonErr := json.Marshal(item.RelatedPapers)
		if jsonErr != nil {
			relatedJSON = []byte("[]")
		}
		insights = append(insights, model.Insight{
			UserID:         user.ID,
			Type:           item.Type,
			Title:          item.Title,
			Description:    item.Description,
			RelevanceScore: item.RelevanceScore,
			RelatedPapers:  string(relatedJSON),
		})
	}
	if err := s.studyRepo.CreateInsights(insights); err != nil {
		return nil, fmt.Errorf("保存洞察失败: %w", err)
	}
	return insights, nil
}

// ListInsights 列出用户的历史洞察。
func (s *studyService) ListInsights(userID uint) ([]model.Insight, error) {
	return s.studyRepo.FindInsightsByUser(userID)
}
