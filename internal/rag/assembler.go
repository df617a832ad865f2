// Package rag 将向量检索结果组装为上下文并驱动基于检索的问答。
package rag

import (
	"context"
	"fmt"
	"strings"

	"research-pilot-go/internal/model"
	"research-pilot-go/internal/vectorstore"
	"research-pilot-go/pkg/llm"
	"research-pilot-go/pkg/log"
)

// NoContextSentinel 是检索无结果时放入上下文的哨兵文本。
const NoContextSentinel = "No relevant context found."

// historyTurns 拼入提示词的历史消息条数上限
const historyTurns = 3

// Answer 是一次检索问答的完整结果。
type Answer struct {
	Answer     string   `json:"answer"`
	Context    []string `json:"context"`
	Sources    []string `json:"sources"`
	NumSources int      `json:"num_sources"`
}

// Assembler 组合向量索引与 LLM 客户端完成检索问答。
type Assembler struct {
	index     *vectorstore.Index
	llmClient llm.Client
	topK      int
}

// NewAssembler 创建上下文组装器，topK<=0 时使用默认值 5。
func NewAssembler(index *vectorstore.Index, llmClient llm.Client, topK int) *Assembler {
	if topK <= 0 {
		topK = 5
	}
	return &Assembler{index: index, llmClient: llmClient, topK: topK}
}

// Retrieve 执行一次检索，可限定在单篇论文内。
func (a *Assembler) Retrieve(ctx context.Context, query string, paperID *uint) []vectorstore.SearchResult {
	return a.index.Search(ctx, query, a.topK, paperID)
}

// FormatContext 将检索结果格式化为带来源标注的编号段落。
func (a *Assembler) FormatContext(results []vectorstore.SearchResult) string {
	if len(results) == 0 {
		return NoContextSentinel
	}
	blocks := make([]string, 0, len(results))
	for i, r := range results {
		title := "Unknown"
		if t, ok := r.Metadata["title"].(string); ok && t != "" {
			title = t
		}
		blocks = append(blocks, fmt.Sprintf("Context %d (from '%s'):\n%s", i+1, title, r.Text))
	}
	return strings.Join(blocks, "\n\n")
}

// Sources 按首次出现顺序去重，返回 "title (Paper ID: id)" 形式的来源列表。
func (a *Assembler) Sources(results []vectorstore.SearchResult) []string {
	sources := make([]string, 0, len(results))
	seen := make(map[string]bool)
	for _, r := range results {
		key := fmt.Sprintf("%v", r.Metadata["paper_id"])
		if seen[key] {
			continue
		}
		seen[key] = true
		title := "Unknown"
		if t, ok := r.Metadata["title"].(string); ok && t != "" {
			title = t
		}
		sources = append(sources, fmt.Sprintf("%s (Paper ID: %s)", title, key))
	}
	return sources
}

// AnswerQuestion 检索相关上下文并调用 LLM 生成回答。
// 生成失败不向上抛错，而是把错误说明写进回答文本。
func (a *Assembler) AnswerQuestion(ctx context.Context, query string, paperID *uint, history []model.ChatMessage) Answer {
	results := a.Retrieve(ctx, query, paperID)
	contextText := a.FormatContext(results)
	sources := a.Sources(results)

	texts := make([]string, 0, len(results))
	for _, r := range results {
		texts = append(texts, r.Text)
	}

	messages := []llm.Message{
		{Role: "system", Content: qaSystemPrompt},
	}
	if len(history) > historyTurns {
		history = history[len(history)-historyTurns:]
	}
	for _, msg := range history {
		messages = append(messages, llm.Message{Role: msg.Role, Content: msg.Content})
	}
	messages = append(messages, llm.Message{
		Role:    "user",
		Content: fmt.Sprintf(qaUserPromptTemplate, contextText, query),
	})

	answerText, err := a.llmClient.Chat(ctx, messages, nil)
	if err != nil {
		log.Errorf("生成回答失败: %v", err)
		answerText = fmt.Sprintf("I encountered an error while generating the answer: %v", err)
	}

	return Answer{
		Answer:  answerText,
		Context: texts,
		Sources: sources,
		// num_sources 统计检索到的分块数，而不是去重后的来源数
		NumSources: len(results),
	}
}

const qaSystemPrompt = `You are a research assistant helping a student understand academic papers. ` +
	`Answer questions based on the provided context from research papers. ` +
	`If the context does not contain enough information, say so honestly.`

const qaUserPromptTemplate = `Based on the following context from research papers, answer the question.

%s

Question: %s

Answer:`
