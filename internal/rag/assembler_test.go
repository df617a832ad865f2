package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"research-pilot-go/internal/model"
	"research-pilot-go/internal/vectorstore"
	"research-pilot-go/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct{}

func (fakeEmbedder) CreateEmbedding(_ context.Context, text string) ([]float32, error) {
	if strings.Contains(text, "graph") {
		return []float32{0, 1}, nil
	}
	return []float32{1, 0}, nil
}

func (f fakeEmbedder) CreateEmbeddings(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v, _ := f.CreateEmbedding(context.Background(), t)
		out = append(out, v)
	}
	return out, nil
}

type fakeLLM struct {
	lastMessages []llm.Message
	reply        string
	err          error
}

func (f *fakeLLM) Chat(_ context.Context, messages []llm.Message, _ *llm.GenerationParams) (string, error) {
	f.lastMessages = messages
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeLLM) StreamChatMessages(context.Context, []llm.Message, *llm.GenerationParams, llm.MessageWriter) error {
	return nil
}

func populatedIndex(t *testing.T) *vectorstore.Index {
	t.Helper()
	idx := vectorstore.NewIndex(fakeEmbedder{}, vectorstore.NewMemoryBackend())
	require.True(t, idx.AddPaper(context.Background(), 1, "Neural Networks Survey",
		[]string{"neural networks are universal approximators", "training uses backpropagation"}, nil))
	require.True(t, idx.AddPaper(context.Background(), 2, "Graph Algorithms",
		[]string{"graph traversal via breadth first search"}, nil))
	return idx
}

func TestFormatContext(t *testing.T) {
	a := NewAssembler(populatedIndex(t), &fakeLLM{reply: "ok"}, 5)
	results := a.Retrieve(context.Background(), "neural networks", nil)
	require.NotEmpty(t, results)

	formatted := a.FormatContext(results)
	assert.Contains(t, formatted, "Context 1 (from 'Neural Networks Survey'):")
	assert.Contains(t, formatted, "neural networks are universal approximators")
}

func TestFormatContextEmpty(t *testing.T) {
	a := NewAssembler(populatedIndex(t), &fakeLLM{}, 5)
	assert.Equal(t, NoContextSentinel, a.FormatContext(nil))
}

func TestSourcesDeduplicatedByFirstOccurrence(t *testing.T) {
	a := NewAssembler(populatedIndex(t), &fakeLLM{}, 5)
	results := a.Retrieve(context.Background(), "neural networks", nil)
	require.GreaterOrEqual(t, len(results), 2)

	sources := a.Sources(results)
	assert.Equal(t, "Neural Networks Survey (Paper ID: 1)", sources[0])
	// 同一论文的多个分块只保留一条来源
	counts := make(map[string]int)
	for _, s := range sources {
		counts[s]++
	}
	for s, n := range counts {
		assert.Equal(t, 1, n, "duplicate source %q", s)
	}
}

func TestAnswerQuestion(t *testing.T) {
	fake := &fakeLLM{reply: "Neural networks approximate functions."}
	a := NewAssembler(populatedIndex(t), fake, 5)

	answer := a.AnswerQuestion(context.Background(), "what are neural networks", nil, nil)
	assert.Equal(t, "Neural networks approximate functions.", answer.Answer)
	assert.NotEmpty(t, answer.Context)
	assert.NotEmpty(t, answer.Sources)
	// num_sources 是检索到的分块数：来源去重后可能比它少
	assert.Equal(t, len(answer.Context), answer.NumSources)
	assert.GreaterOrEqual(t, answer.NumSources, len(answer.Sources))

	// 提示词包含检索到的上下文和问题
	last := fake.lastMessages[len(fake.lastMessages)-1]
	assert.Contains(t, last.Content, "neural networks are universal approximators")
	assert.Contains(t, last.Content, "what are neural networks")
}

func TestAnswerQuestionScopedToPaper(t *testing.T) {
	fake := &fakeLLM{reply: "About graphs."}
	a := NewAssembler(populatedIndex(t), fake, 5)

	paperID := uint(2)
	answer := a.AnswerQuestion(context.Background(), "graph question", &paperID, nil)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, "Graph Algorithms (Paper ID: 2)", answer.Sources[0])
}

func TestAnswerQuestionEmptyIndex(t *testing.T) {
	idx := vectorstore.NewIndex(fakeEmbedder{}, vectorstore.NewMemoryBackend())
	fake := &fakeLLM{reply: "I do not have enough context."}
	a := NewAssembler(idx, fake, 5)

	answer := a.AnswerQuestion(context.Background(), "anything", nil, nil)
	assert.Empty(t, answer.Context)
	assert.Empty(t, answer.Sources)
	assert.Zero(t, answer.NumSources)

	last := fake.lastMessages[len(fake.lastMessages)-1]
	assert.Contains(t, last.Content, NoContextSentinel)
}

func TestAnswerQuestionHistoryTruncated(t *testing.T) {
	fake := &fakeLLM{reply: "ok"}
	a := NewAssembler(populatedIndex(t), fake, 5)

	history := []model.ChatMessage{
		{Role: "user", Content: "turn one"},
		{Role: "assistant", Content: "turn two"},
		{Role: "user", Content: "turn three"},
		{Role: "assistant", Content: "turn four"},
		{Role: "user", Content: "turn five"},
	}
	a.AnswerQuestion(context.Background(), "question", nil, history)

	var contents []string
	for _, m := range fake.lastMessages {
		contents = append(contents, m.Content)
	}
	joined := strings.Join(contents, "\n")
	assert.NotContains(t, joined, "turn one")
	assert.NotContains(t, joined, "turn two")
	assert.Contains(t, joined, "turn three")
	assert.Contains(t, joined, "turn five")
}

func TestAnswerQuestionLLMFailure(t *testing.T) {
	fake := &fakeLLM{err: errors.New("model overloaded")}
	a := NewAssembler(populatedIndex(t), fake, 5)

	answer := a.AnswerQuestion(context.Background(), "what are neural networks", nil, nil)
	assert.Contains(t, answer.Answer, "model overloaded")
	assert.NotEmpty(t, answer.Sources)
}
