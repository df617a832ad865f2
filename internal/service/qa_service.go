// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"fmt"
	"time"

	"research-pilot-go/internal/model"
	"research-pilot-go/internal/rag"
	"research-pilot-go/internal/repository"
	"research-pilot-go/pkg/log"
)

// QAService 接口定义了基于检索的问答操作。
type QAService interface {
	Ask(ctx context.Context, user *model.User, question string, paperID *uint) (rag.Answer, error)
	History(ctx context.Context, userID uint) ([]model.ChatMessage, error)
	ClearHistory(ctx context.Context, userID uint) error
}

type qaService struct {
	assembler        *rag.Assembler
	conversationRepo repository.ConversationRepository
}

// NewQAService 创建一个新的 QAService 实例。
func NewQAService(assembler *rag.Assembler, conversationRepo repository.ConversationRepository) QAService {
	return &qaService{assembler: assembler, conversationRepo: conversationRepo}
}

// Ask 回答用户问题并把问答对追加到对话历史。
func (s *qaService) Ask(ctx context.Context, user *model.User, question string, paperID *uint) (rag.Answer, error) {
	convID, err := s.conversationRepo.GetOrCreateConversationID(ctx, user.ID)
	if err != nil {
		return rag.Answer{}, fmt.Errorf("failed to get conversation: %w", err)
	}
	history, err := s.conversationRepo.GetConversationHistory(ctx, convID)
	if err != nil {
		log.Errorf("[QAService] 读取对话历史失败, user: %d: %v", user.ID, err)
		history = []model.ChatMessage{}
	}

	answer := s.assembler.AnswerQuestion(ctx, question, paperID, history)

	now := time.Now()
	history = append(history,
		model.ChatMessage{Role: "user", Content: question, Timestamp: now},
		model.ChatMessage{Role: "assistant", Content: answer.Answer, Timestamp: now},
	)
	if err := s.conversationRepo.UpdateConversationHistory(ctx, convID, history); err != nil {
		// 回答已经生成，历史保存失败只记录
		log.Errorf("[QAService] 保存对话历史失败, user: %d: %v", user.ID, err)
	}
	return answer, nil
}

// History 返回用户当前对话的历史记录。
func (s *qaService) History(ctx context.Context, userID uint) ([]model.ChatMessage, error) {
	convID, err := s.conversationRepo.GetOrCreateConversationID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.conversationRepo.GetConversationHistory(ctx, convID)
}

// ClearHistory 清空用户当前对话。
func (s *qaService) ClearHistory(ctx context.Context, userID uint) error {
	return s.conversationRepo.ClearConversation(ctx, userID)
}
