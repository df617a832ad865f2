// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"research-pilot-go/internal/config"
	"research-pilot-go/internal/model"
	"research-pilot-go/internal/rag"
	"research-pilot-go/internal/repository"
	"research-pilot-go/pkg/llm"
	"research-pilot-go/pkg/log"

	"github.com/gorilla/websocket"
)

// ChatService 定义了流式聊天操作的接口。
type ChatService interface {
	StreamResponse(ctx context.Context, query string, paperID *uint, user *model.User, ws *websocket.Conn, shouldStop func() bool) error
}

type chatService struct {
	assembler        *rag.Assembler
	llmClient        llm.Client
	conversationRepo repository.ConversationRepository
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(assembler *rag.Assembler, llmClient llm.Client, conversationRepo repository.ConversationRepository) ChatService {
	return &chatService{
		assembler:        assembler,
		llmClient:        llmClient,
		conversationRepo: conversationRepo,
	}
}

// StreamResponse 检索上下文并把 LLM 的回答流式写入 websocket 连接。
func (s *chatService) StreamResponse(ctx context.Context, query string, paperID *uint, user *model.User, ws *websocket.Conn, shouldStop func() bool) error {
	// 1. 检索上下文
	results := s.assembler.Retrieve(ctx, query, paperID)
	contextText := s.assembler.FormatContext(results)

	// 2. 组装消息：system + 历史 + 当前问题
	history, err := s.loadHistory(ctx, user.ID)
	if err != nil {
		log.Errorf("加载对话历史失败: %v", err)
		history = []model.ChatMessage{}
	}
	messages := composeMessages(contextText, history, query)

	// 拦截 websocket writer 以捕获完整答案，并包装为 JSON 分块
	answerBuilder := &strings.Builder{}
	interceptor := &wsWriterInterceptor{conn: ws, writer: answerBuilder, shouldStop: shouldStop}

	// 3. 流式调用 LLM
	if err := s.llmClient.StreamChatMessages(ctx, messages, buildGenerationParams(), interceptor); err != nil {
		return err
	}

	// 4. 发送完成通知并保存对话
	sendCompletion(ws)
	fullAnswer := answerBuilder.String()
	if len(fullAnswer) > 0 {
		// 使用后台上下文：即使请求被取消也要保存已生成的回答
		if err := s.saveConversation(context.Background(), user.ID, query, fullAnswer); err != nil {
			log.Errorf("保存对话历史失败: %v", err)
		}
	}
	return nil
}

func (s *chatService) loadHistory(ctx context.Context, userID uint) ([]model.ChatMessage, error) {
	convID, err := s.conversationRepo.GetOrCreateConversationID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.conversationRepo.GetConversationHistory(ctx, convID)
}

func (s *chatService) saveConversation(ctx context.Context, userID uint, question, answer string) error {
	convID, err := s.conversationRepo.GetOrCreateConversationID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get or create conversation ID: %w", err)
	}
	history, err := s.conversationRepo.GetConversationHistory(ctx, convID)
	if err != nil {
		return fmt.Errorf("failed to get conversation history: %w", err)
	}
	now := time.Now()
	history = append(history,
		model.ChatMessage{Role: "user", Content: question, Timestamp: now},
		model.ChatMessage{Role: "assistant", Content: answer, Timestamp: now},
	)
	return s.conversationRepo.UpdateConversationHistory(ctx, convID, history)
}

func composeMessages(contextText string, history []model.ChatMessage, userInput string) []llm.Message {
	system := fmt.Sprintf("You are a research assistant helping a student understand academic papers.\n\n"+
		"Context from the student's papers:\n%s\n\n"+
		"Answer based on the context; say honestly when it is not enough.", contextText)

	msgs := make([]llm.Message, 0, len(history)+2)
	msgs = append(msgs, llm.Message{Role: "system", Content: system})
	for _, m := range history {
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}
	msgs = append(msgs, llm.Message{Role: "user", Content: userInput})
	return msgs
}

// wsWriterInterceptor 是对 websocket.Conn 的封装，用于捕获写入的消息。
type wsWriterInterceptor struct {
	conn       *websocket.Conn
	writer     *strings.Builder
	shouldStop func() bool
}

// WriteMessage 满足 llm.MessageWriter 接口。
func (w *wsWriterInterceptor) WriteMessage(messageType int, data []byte) error {
	if w.shouldStop != nil && w.shouldStop() {
		// 停止标志生效：跳过下发
		return nil
	}
	w.writer.Write(data)
	// 将原始分块包装成 {"chunk":"..."}
	payload := map[string]string{"chunk": string(data)}
	b, _ := json.Marshal(payload)
	return w.conn.WriteMessage(messageType, b)
}

// sendCompletion 发送完成通知 JSON。
func sendCompletion(ws *websocket.Conn) {
	notif := map[string]interface{}{
		"type":      "completion",
		"status":    "finished",
		"timestamp": time.Now().UnixMilli(),
	}
	b, _ := json.Marshal(notif)
	_ = ws.WriteMessage(websocket.TextMessage, b)
}

func buildGenerationParams() *llm.GenerationParams {
	var gp llm.GenerationParams
	if config.Conf.LLM.Generation.Temperature != 0 {
		t := config.Conf.LLM.Generation.Temperature
		gp.Temperature = &t
	}
	if config.Conf.LLM.Generation.TopP != 0 {
		p := config.Conf.LLM.Generation.TopP
		gp.TopP = &p
	}
	if config.Conf.LLM.Generation.MaxTokens != 0 {
		m := config.Conf.LLM.Generation.MaxTokens
		gp.MaxTokens = &m
	}
	if gp.Temperature == nil && gp.TopP == nil && gp.MaxTokens == nil {
		return nil
	}
	return &gp
}
