package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkShortTextReturnsSingleChunk(t *testing.T) {
	text := "A short paragraph that fits in one chunk."
	chunks := Chunk(text, 1000, 200)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestChunkEmptyText(t *testing.T) {
	assert.Empty(t, Chunk("", 1000, 200))
	assert.Empty(t, Chunk("   \n\t  ", 10, 2))
}

func TestChunkPrefersSentenceBoundary(t *testing.T) {
	sentence := strings.Repeat("a", 70) + ". "
	text := strings.Repeat(sentence, 10)
	chunks := Chunk(text, 100, 20)
	require.Greater(t, len(chunks), 1)
	// 除最后一块外，每块应在句末标点处结束
	for _, c := range chunks[:len(chunks)-1] {
		trimmed := strings.TrimRight(c, " ")
		assert.True(t, strings.HasSuffix(trimmed, "."), "chunk should end at sentence boundary: %q", c)
	}
}

func TestChunkFallsBackToSpaceBoundary(t *testing.T) {
	word := strings.Repeat("b", 30)
	text := strings.Repeat(word+" ", 20)
	chunks := Chunk(text, 100, 10)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks[:len(chunks)-1] {
		assert.False(t, strings.HasSuffix(c, "b"+word), "chunk should not split inside a word")
	}
}

func TestChunkHardCutWithoutBoundaries(t *testing.T) {
	text := strings.Repeat("x", 350)
	chunks := Chunk(text, 100, 20)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), 100)
	}
	assert.Equal(t, 100, len([]rune(chunks[0])))
}

func TestChunkTerminatesWhenOverlapExceedsSize(t *testing.T) {
	text := strings.Repeat("y", 500)
	// 步进保护保证即使 overlap >= size 也能终止
	assert.NotEmpty(t, Chunk(text, 50, 50))
	assert.NotEmpty(t, Chunk(text, 50, 200))
	assert.LessOrEqual(t, len(Chunk(text, 50, 200)), 500)
}

func TestChunkCoversAllContent(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 100; i++ {
		sb.WriteString("Sentence number ")
		sb.WriteString(strings.Repeat("w", i%7+1))
		sb.WriteString(". ")
	}
	text := sb.String()
	chunks := Chunk(text, 120, 30)
	require.NotEmpty(t, chunks)

	// 去掉重叠后拼接应覆盖原文的全部非空白内容
	joined := strings.Join(chunks, "")
	for _, token := range strings.Fields(text) {
		assert.Contains(t, joined, token)
	}
	for _, c := range chunks {
		assert.NotEmpty(t, strings.TrimSpace(c))
	}
}

func TestChunkRuneSafety(t *testing.T) {
	text := strings.Repeat("神经网络模型研究。", 100)
	chunks := Chunk(text, 50, 10)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		for _, r := range c {
			assert.NotEqual(t, rune(0xFFFD), r, "chunk contains replacement rune, multibyte character was split")
		}
	}
}

func TestChunkTrimsEachChunk(t *testing.T) {
	chunks := Chunk("  hello world  ", 1000, 200)
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello world", chunks[0])

	text := strings.Repeat(strings.Repeat("a", 70)+". ", 10)
	for _, c := range Chunk(text, 100, 20) {
		assert.Equal(t, strings.TrimSpace(c), c, "chunk carries surrounding whitespace: %q", c)
	}
}

func TestChunkSentenceBoundaryUsesPeriodOnly(t *testing.T) {
	// '!' 不作为句末边界：没有句号和空格时只能硬切
	text := strings.Repeat("x", 80) + "!" + strings.Repeat("x", 300)
	chunks := Chunk(text, 100, 20)
	require.NotEmpty(t, chunks)
	assert.Equal(t, 100, len([]rune(chunks[0])))
}

func TestChunkBoundaryMustPassMidpoint(t *testing.T) {
	// 句号恰好落在窗口中点时不被采用
	text := strings.Repeat("x", 50) + "." + strings.Repeat("x", 300)
	chunks := Chunk(text, 100, 20)
	require.NotEmpty(t, chunks)
	assert.Equal(t, 100, len([]rune(chunks[0])))
}

func TestPreprocess(t *testing.T) {
	in := "Deep  Learning\t\nfor   NLP: a survey! (2024) #$%"
	out := Preprocess(in)
	assert.Equal(t, "Deep Learning for NLP: a survey! (2024)", out)
}

func TestPreprocessKeepsBasicPunctuation(t *testing.T) {
	in := "a.b,c;d:e!f?g-h(i)j"
	assert.Equal(t, in, Preprocess(in))
}

func TestPreprocessReplacesRejectedRunes(t *testing.T) {
	// 被拒绝的字符替换为空格而不是直接删除，避免把相邻单词粘在一起
	assert.Equal(t, "foo bar", Preprocess("foo@bar"))
	assert.Equal(t, "a b c", Preprocess("a@b#c"))
}
