package study

import (
	"context"
	"errors"
	"testing"

	"research-pilot-go/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	reply      string
	err        error
	lastSystem string
	lastUser   string
}

func (f *fakeLLM) Chat(_ context.Context, messages []llm.Message, _ *llm.GenerationParams) (string, error) {
	for _, m := range messages {
		switch m.Role {
		case "system":
			f.lastSystem = m.Content
		case "user":
			f.lastUser = m.Content
		}
	}
	return f.reply, f.err
}

func (f *fakeLLM) StreamChatMessages(context.Context, []llm.Message, *llm.GenerationParams, llm.MessageWriter) error {
	return nil
}

func TestGenerateSummary(t *testing.T) {
	fake := &fakeLLM{reply: "A structured summary."}
	g := NewGenerator(fake)

	summary, err := g.GenerateSummary(context.Background(), "paper content here", "My Paper")
	require.NoError(t, err)
	assert.Equal(t, "A structured summary.", summary)
	assert.Contains(t, fake.lastUser, "My Paper")
	assert.Contains(t, fake.lastUser, "paper content here")
}

func TestGenerateSummaryRemoteFailure(t *testing.T) {
	g := NewGenerator(&fakeLLM{err: errors.New("timeout")})
	_, err := g.GenerateSummary(context.Background(), "content", "title")
	assert.Error(t, err)
}

func TestGenerateNotesParsesJSON(t *testing.T) {
	fake := &fakeLLM{reply: `{
		"key_concepts": ["attention"],
		"main_points": ["self-attention replaces recurrence"],
		"important_definitions": {"attention": "weighted context aggregation"},
		"takeaways": ["simpler architectures can win"],
		"study_questions": ["why does attention scale better?"]
	}`}
	g := NewGenerator(fake)

	notes, err := g.GenerateNotes(context.Background(), "content", "title")
	require.NoError(t, err)
	assert.Equal(t, []string{"attention"}, notes.KeyConcepts)
	assert.Equal(t, "weighted context aggregation", notes.ImportantDefinitions["attention"])
}

func TestGenerateNotesFallbackOnParseFailure(t *testing.T) {
	fake := &fakeLLM{reply: "these are not json notes"}
	g := NewGenerator(fake)

	notes, err := g.GenerateNotes(context.Background(), "content", "title")
	require.NoError(t, err)
	assert.Empty(t, notes.KeyConcepts)
	require.Len(t, notes.MainPoints, 1)
	assert.Equal(t, "these are not json notes", notes.MainPoints[0])
	assert.NotNil(t, notes.ImportantDefinitions)
}

func TestGenerateFlashcards(t *testing.T) {
	fake := &fakeLLM{reply: `[
		{"question": "What is attention?", "answer": "A weighting mechanism.", "difficulty": "easy", "category": "definition"},
		{"question": "Why drop recurrence?", "answer": "Parallelism.", "difficulty": "hard", "category": "concept"}
	]`}
	g := NewGenerator(fake)

	cards, err := g.GenerateFlashcards(context.Background(), "content", "title", 8)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "What is attention?", cards[0].Question)
	assert.Contains(t, fake.lastSystem, "8 flashcards")
}

func TestGenerateFlashcardsFallback(t *testing.T) {
	fake := &fakeLLM{reply: "no json here"}
	g := NewGenerator(fake)

	cards, err := g.GenerateFlashcards(context.Background(), "content", "title", 0)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "What is the main contribution of this paper?", cards[0].Question)
	assert.Equal(t, "no json here", cards[0].Answer)
	assert.Equal(t, "medium", cards[0].Difficulty)
	assert.Contains(t, fake.lastSystem, "10 flashcards")
}

func TestGenerateFlashcardsStripsCodeFence(t *testing.T) {
	fake := &fakeLLM{reply: "```json\n[{\"question\": \"Q\", \"answer\": \"A\", \"difficulty\": \"easy\", \"category\": \"concept\"}]\n```"}
	g := NewGenerator(fake)

	cards, err := g.GenerateFlashcards(context.Background(), "content", "title", 5)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "Q", cards[0].Question)
}

func TestGenerateMindMapFallback(t *testing.T) {
	fake := &fakeLLM{reply: "prose instead of json"}
	g := NewGenerator(fake)

	doc, err := g.GenerateMindMap(context.Background(), "content", "Transformers")
	require.NoError(t, err)
	assert.Equal(t, "Transformers", doc.Title)
	assert.Equal(t, "Research Paper", doc.CentralConcept)
	require.Len(t, doc.Branches, 1)
	assert.Len(t, doc.Branches[0].Children, 3)
}

func TestGeneratePlanFallback(t *testing.T) {
	fake := &fakeLLM{reply: "not a plan"}
	g := NewGenerator(fake)

	papers := []PaperBrief{
		{Title: "Paper A", Abstract: "about a"},
		{Title: "Paper B", Abstract: "about b"},
		{Title: "Paper C", Abstract: "about c"},
	}
	plan, err := g.GeneratePlan(context.Background(), "learn transformers", papers, "")
	require.NoError(t, err)
	assert.Equal(t, "Study Plan: learn transformers", plan.PlanTitle)
	require.Len(t, plan.WeeklySchedule, 1)
	// 骨架计划最多引用前两篇论文
	assert.Equal(t, []string{"Paper A", "Paper B"}, plan.WeeklySchedule[0].PapersToRead)
	assert.Contains(t, fake.lastUser, "No specific deadline")
}

func TestAnalyzeInsights(t *testing.T) {
	fake := &fakeLLM{reply: `[{"type": "gap", "title": "Sparse evaluation", "description": "Few papers test at scale.", "relevance_score": 7, "related_papers": ["Paper A"]}]`}
	g := NewGenerator(fake)

	insights, err := g.AnalyzeInsights(context.Background(), []PaperBrief{{Title: "Paper A"}})
	require.NoError(t, err)
	require.Len(t, insights, 1)
	assert.Equal(t, "gap", insights[0].Type)
	assert.Equal(t, 7, insights[0].RelevanceScore)
}

func TestAnalyzeInsightsFallback(t *testing.T) {
	fake := &fakeLLM{reply: "freeform analysis text"}
	g := NewGenerator(fake)

	insights, err := g.AnalyzeInsights(context.Background(), []PaperBrief{{Title: "Paper A"}, {Title: "Paper B"}})
	require.NoError(t, err)
	require.Len(t, insights, 1)
	assert.Equal(t, "trend", insights[0].Type)
	assert.Equal(t, 5, insights[0].RelevanceScore)
	assert.Equal(t, []string{"Paper A", "Paper B"}, insights[0].RelatedPapers)
}
