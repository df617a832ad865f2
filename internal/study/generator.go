// Package study 通过 LLM 从论文内容生成学习材料：摘要、笔记、抽认卡、思维导图、学习计划与洞察。
package study

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"research-pilot-go/pkg/llm"
	"research-pilot-go/pkg/log"
)

const (
	summaryContentLimit = 4000
	contentLimit        = 3000
	// DefaultFlashcardNum 默认生成的抽认卡数量
	DefaultFlashcardNum = 10
)

// Notes 是结构化学习笔记。
type Notes struct {
	KeyConcepts          []string          `json:"key_concepts"`
	MainPoints           []string          `json:"main_points"`
	ImportantDefinitions map[string]string `json:"important_definitions"`
	Takeaways            []string          `json:"takeaways"`
	StudyQuestions       []string          `json:"study_questions"`
}

// FlashcardItem 是一张抽认卡。
type FlashcardItem struct {
	Question   string `json:"question"`
	Answer     string `json:"answer"`
	Difficulty string `json:"difficulty"`
	Category   string `json:"category"`
}

// MindMapNode 是思维导图中的一个节点。
type MindMapNode struct {
	Name     string        `json:"name"`
	Children []MindMapNode `json:"children"`
}

// MindMapDoc 是整张思维导图。
type MindMapDoc struct {
	Title          string        `json:"title"`
	CentralConcept string        `json:"central_concept"`
	Branches       []MindMapNode `json:"branches"`
}

// PlanWeek 是学习计划中的一周安排。
type PlanWeek struct {
	Week           int      `json:"week"`
	Focus          string   `json:"focus"`
	Tasks          []string `json:"tasks"`
	PapersToRead   []string `json:"papers_to_read"`
	EstimatedHours int      `json:"estimated_hours"`
}

// PlanMilestone 是学习计划中的一个里程碑。
type PlanMilestone struct {
	Week      int    `json:"week"`
	Milestone string `json:"milestone"`
}

// PlanDoc 是完整的学习计划。
type PlanDoc struct {
	PlanTitle      string          `json:"plan_title"`
	TotalDuration  string          `json:"total_duration"`
	WeeklySchedule []PlanWeek      `json:"weekly_schedule"`
	Milestones     []PlanMilestone `json:"milestones"`
	StudyTips      []string        `json:"study_tips"`
}

// InsightItem 是跨论文分析得出的一条洞察。
type InsightItem struct {
	Type           string   `json:"type"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	RelevanceScore int      `json:"relevance_score"`
	RelatedPapers  []string `json:"related_papers"`
}

// PaperBrief 是生成计划和洞察时用到的论文概要。
type PaperBrief struct {
	Title    string
	Abstract string
}

// Generator 定义学习材料生成操作。远程调用失败返回 error；
// 模型输出无法解析为 JSON 时回退到文档化的默认骨架，不算失败。
type Generator interface {
	GenerateSummary(ctx context.Context, content, title string) (string, error)
	GenerateNotes(ctx context.Context, content, title string) (Notes, error)
	GenerateFlashcards(ctx context.Context, content, title string, num int) ([]FlashcardItem, error)
	GenerateMindMap(ctx context.Context, content, title string) (MindMapDoc, error)
	GeneratePlan(ctx context.Context, goal string, papers []PaperBrief, deadline string) (PlanDoc, error)
	AnalyzeInsights(ctx context.Context, papers []PaperBrief) ([]InsightItem, error)
}

type generator struct {
	llmClient llm.Client
}

// NewGenerator 创建学习材料生成器。
func NewGenerator(llmClient llm.Client) Generator {
	return &generator{llmClient: llmClient}
}

func (g *generator) chat(ctx context.Context, system, user string) (string, error) {
	messages := []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
	return g.llmClient.Chat(ctx, messages, nil)
}

func (g *generator) GenerateSummary(ctx context.Context, content, title string) (string, error) {
	prompt := fmt.Sprintf(summaryUserTemplate, title, truncate(content, summaryContentLimit))
	summary, err := g.chat(ctx, summarySystemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to generate summary: %w", err)
	}
	return summary, nil
}

func (g *generator) GenerateNotes(ctx context.Context, content, title string) (Notes, error) {
	prompt := fmt.Sprintf(notesUserTemplate, title, truncate(content, contentLimit))
	raw, err := g.chat(ctx, notesSystemPrompt, prompt)
	if err != nil {
		return Notes{}, fmt.Errorf("failed to generate study notes: %w", err)
	}

	var notes Notes
	if jsonErr := json.Unmarshal(extractJSON(raw), &notes); jsonErr != nil {
		log.Warnf("学习笔记 JSON 解析失败，回退到原文骨架: %v", jsonErr)
		return Notes{
			KeyConcepts:          []string{},
			MainPoints:           []string{raw},
			ImportantDefinitions: map[string]string{},
			Takeaways:            []string{},
			StudyQuestions:       []string{},
		}, nil
	}
	return notes, nil
}

func (g *generator) GenerateFlashcards(ctx context.Context, content, title string, num int) ([]FlashcardItem, error) {
	if num <= 0 {
		num = DefaultFlashcardNum
	}
	system := fmt.Sprintf(flashcardsSystemTemplate, num)
	prompt := fmt.Sprintf(flashcardsUserTemplate, title, truncate(content, contentLimit))
	raw, err := g.chat(ctx, system, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate flashcards: %w", err)
	}

	var cards []FlashcardItem
	if jsonErr := json.Unmarshal(extractJSON(raw), &cards); jsonErr != nil {
		log.Warnf("抽认卡 JSON 解析失败，回退到单卡骨架: %v", jsonErr)
		return []FlashcardItem{{
			Question:   "What is the main contribution of this paper?",
			Answer:     truncate(raw, 200),
			Difficulty: "medium",
			Category:   "concept",
		}}, nil
	}
	return cards, nil
}

func (g *generator) GenerateMindMap(ctx context.Context, content, title string) (MindMapDoc, error) {
	prompt := fmt.Sprintf(mindMapUserTemplate, title, truncate(content, contentLimit))
	raw, err := g.chat(ctx, mindMapSystemPrompt, prompt)
	if err != nil {
		return MindMapDoc{}, fmt.Errorf("failed to generate mind map: %w", err)
	}

	var doc MindMapDoc
	if jsonErr := json.Unmarshal(extractJSON(raw), &doc); jsonErr != nil {
		log.Warnf("思维导图 JSON 解析失败，回退到默认结构: %v", jsonErr)
		return MindMapDoc{
			Title:          title,
			CentralConcept: "Research Paper",
			Branches: []MindMapNode{{
				Name: "Main Content",
				Children: []MindMapNode{
					{Name: "Key Findings", Children: []MindMapNode{}},
					{Name: "Methodology", Children: []MindMapNode{}},
					{Name: "Conclusions", Children: []MindMapNode{}},
				},
			}},
		}, nil
	}
	return doc, nil
}

func (g *generator) GeneratePlan(ctx context.Context, goal string, papers []PaperBrief, deadline string) (PlanDoc, error) {
	if deadline == "" {
		deadline = "No specific deadline"
	}
	prompt := fmt.Sprintf(planUserTemplate, goal, formatPaperBriefs(papers, 200), deadline)
	raw, err := g.chat(ctx, planSystemPrompt, prompt)
	if err != nil {
		return PlanDoc{}, fmt.Errorf("failed to generate study plan: %w", err)
	}

	var plan PlanDoc
	if jsonErr := json.Unmarshal(extractJSON(raw), &plan); jsonErr != nil {
		log.Warnf("学习计划 JSON 解析失败，回退到基础计划: %v", jsonErr)
		titles := make([]string, 0, 2)
		for i, p := range papers {
			if i >= 2 {
				break
			}
			titles = append(titles, p.Title)
		}
		return PlanDoc{
			PlanTitle:     fmt.Sprintf("Study Plan: %s", goal),
			TotalDuration: "4 weeks",
			WeeklySchedule: []PlanWeek{{
				Week:           1,
				Focus:          "Getting started",
				Tasks:          []string{"Read available papers", "Take notes"},
				PapersToRead:   titles,
				EstimatedHours: 8,
			}},
			Milestones: []PlanMilestone{{Week: 1, Milestone: "Complete initial reading"}},
			StudyTips:  []string{"Take regular breaks", "Make notes while reading"},
		}, nil
	}
	return plan, nil
}

func (g *generator) AnalyzeInsights(ctx context.Context, papers []PaperBrief) ([]InsightItem, error) {
	prompt := fmt.Sprintf(insightsUserTemplate, formatPaperBriefs(papers, 300))
	raw, err := g.chat(ctx, insightsSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze insights: %w", err)
	}

	var insights []InsightItem
	if jsonErr := json.Unmarshal(extractJSON(raw), &insights); jsonErr != nil {
		log.Warnf("洞察 JSON 解析失败，回退到单条骨架: %v", jsonErr)
		titles := make([]string, 0, len(papers))
		for _, p := range papers {
			titles = append(titles, p.Title)
		}
		return []InsightItem{{
			Type:           "trend",
			Title:          "Research Analysis",
			Description:    truncate(raw, 500),
			RelevanceScore: 5,
			RelatedPapers:  titles,
		}}, nil
	}
	return insights, nil
}

func formatPaperBriefs(papers []PaperBrief, abstractLimit int) string {
	lines := make([]string, 0, len(papers))
	for _, p := range papers {
		title := p.Title
		if title == "" {
			title = "Unknown"
		}
		abstract := p.Abstract
		if abstract == "" {
			abstract = "No abstract"
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", title, truncate(abstract, abstractLimit)))
	}
	return strings.Join(lines, "\n")
}

// extractJSON 去掉模型输出中常见的 Markdown 代码围栏，返回可供解析的字节。
func extractJSON(raw string) []byte {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	return []byte(s)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
