package extractor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `BERT: Pre-training of Deep Bidirectional Transformers

Ashish Vaswani, Noam Shazeer

Abstract
The dominant sequence transduction models are based on complex recurrent or
convolutional neural networks that include an encoder and a decoder. We propose
a new simple network architecture based solely on attention mechanisms.

Keywords: attention, transformers

1. Introduction
Recurrent neural networks have long been the dominant approach.
`

func TestExtractMetadataTitleWins(t *testing.T) {
	paper := Extract([]string{samplePage}, Metadata{Title: "A Metadata Title"})
	assert.Equal(t, "A Metadata Title", paper.Title)
}

func TestExtractTitleFromIndicators(t *testing.T) {
	paper := Extract([]string{samplePage}, Metadata{})
	assert.Equal(t, "BERT: Pre-training of Deep Bidirectional Transformers", paper.Title)
}

func TestExtractTitleIndicatorRejection(t *testing.T) {
	// 含邮箱、含四位数字、以句号结尾，只剩两个特征，不应被选为标题
	page := "contact author@example.com in 2024 somewhere.\nshort\nA Proper Looking Paper Title About Graphs\nrest"
	paper := Extract([]string{page}, Metadata{})
	assert.Equal(t, "A Proper Looking Paper Title About Graphs", paper.Title)
}

func TestExtractTitleFallbackChain(t *testing.T) {
	paper := Extract([]string{"x\ny\nz"}, Metadata{})
	assert.Equal(t, UnknownTitle, paper.Title)

	paper = Extract(nil, Metadata{})
	assert.Equal(t, UnknownTitle, paper.Title)
	assert.Equal(t, UnknownAuthors, paper.Authors)
	assert.Empty(t, paper.Abstract)
}

func TestExtractAuthors(t *testing.T) {
	paper := Extract([]string{samplePage}, Metadata{})
	assert.Equal(t, "Ashish Vaswani, Noam Shazeer", paper.Authors)
}

func TestExtractAuthorsMetadataWins(t *testing.T) {
	paper := Extract([]string{samplePage}, Metadata{Author: "Jane Doe"})
	assert.Equal(t, "Jane Doe", paper.Authors)
}

func TestExtractAuthorsPrefixPattern(t *testing.T) {
	page := "TITLE: A SYSTEMS VIEW\nAuthors: Alice Zhang and Bob Li\nmore text"
	paper := Extract([]string{page}, Metadata{})
	assert.Equal(t, "Alice Zhang and Bob Li", paper.Authors)
}

func TestExtractAuthorsReturnsCapturedPrefix(t *testing.T) {
	// 姓名对的前缀命中即可，行尾多余的机构信息不计入作者
	page := "RESNETS REVISITED\nJohn Smith, Jane Doe University of X\nmore text"
	paper := Extract([]string{page}, Metadata{})
	assert.Equal(t, "John Smith, Jane Doe", paper.Authors)
}

func TestExtractTitleWindowCountsBlankLines(t *testing.T) {
	// 空行占据行窗口名额：标题行落在前 10 行之外时不再被找到
	page := strings.Repeat("\n", 12) + "A Proper Looking Paper Title About Graphs"
	paper := Extract([]string{page}, Metadata{})
	assert.Equal(t, UnknownTitle, paper.Title)
}

func TestExtractAbstract(t *testing.T) {
	paper := Extract([]string{samplePage}, Metadata{})
	require.NotEmpty(t, paper.Abstract)
	assert.True(t, strings.HasPrefix(paper.Abstract, "The dominant sequence transduction models"))
	assert.NotContains(t, paper.Abstract, "Keywords")
	assert.NotContains(t, paper.Abstract, "\n")
}

func TestExtractAbstractLengthBounds(t *testing.T) {
	short := "Title Of The Paper Here\n\nAbstract\nToo short.\n\n1. Introduction\ntext"
	paper := Extract([]string{short}, Metadata{})
	assert.Empty(t, paper.Abstract)

	long := "Title Of The Paper Here\n\nAbstract\n" + strings.Repeat("word ", 500) + "\n\n1. Introduction\ntext"
	paper = Extract([]string{long}, Metadata{})
	assert.Empty(t, paper.Abstract)
}

func TestExtractAbstractRequiresLabelSeparator(t *testing.T) {
	// "Abstraction" 之类的词头不是标签，真正的 Abstract 仍应被找到
	page := "Abstraction Layers In Compilers\n\nAbstract\n" +
		"This paper surveys how modern compilers organize their intermediate representations across lowering stages.\n\nKeywords: compilers"
	paper := Extract([]string{page}, Metadata{})
	assert.Contains(t, paper.Abstract, "intermediate representations")
}

func TestExtractSummaryLabel(t *testing.T) {
	page := "Paper About Something Important\n\nSummary\n" +
		"This work studies the effect of pretraining scale on downstream task accuracy across benchmarks.\n\nIntroduction\ntext"
	paper := Extract([]string{page}, Metadata{})
	assert.Contains(t, paper.Abstract, "pretraining scale")
}

func TestExtractSections(t *testing.T) {
	paper := Extract([]string{samplePage}, Metadata{})
	require.NotEmpty(t, paper.Sections)

	var titles []string
	for _, s := range paper.Sections {
		titles = append(titles, s.Title)
	}
	assert.Contains(t, titles, "1. Introduction")

	for i := 1; i < len(paper.Sections); i++ {
		assert.Greater(t, paper.Sections[i].StartOffset, paper.Sections[i-1].StartOffset)
	}
}

func TestExtractSectionRunsToNextHeading(t *testing.T) {
	// 存在下一个标题时正文取到该标题为止，不受长度上限约束
	text := "1. Introduction\n" + strings.Repeat("a ", 1500) + "\n2. Methods\nshort"
	paper := Extract([]string{text}, Metadata{})
	require.NotEmpty(t, paper.Sections)
	assert.Greater(t, len(paper.Sections[0].Content), sectionContentCap)
}

func TestExtractSectionContentCap(t *testing.T) {
	text := "1. Introduction\n" + strings.Repeat("a ", 3000)
	paper := Extract([]string{text}, Metadata{})
	require.NotEmpty(t, paper.Sections)
	assert.LessOrEqual(t, len(paper.Sections[0].Content), sectionContentCap)
}

func TestExtractFullTextJoinsPages(t *testing.T) {
	paper := Extract([]string{"page one", "page two"}, Metadata{})
	assert.Equal(t, "page one\npage two", paper.FullText)
}
