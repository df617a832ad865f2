// Package extractor 从论文页面文本中提取结构化字段（标题、作者、摘要、章节）。
package extractor

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	// UnknownTitle 所有标题策略都失败时的兜底值
	UnknownTitle = "Unknown Title"
	// UnknownAuthors 所有作者策略都失败时的兜底值
	UnknownAuthors = "Unknown Authors"
)

// Metadata 是文件容器自带的元信息（如 PDF Info 字典）。
type Metadata struct {
	Title  string
	Author string
	Pages  int
}

// Section 表示论文中识别出的一个章节。
type Section struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	StartOffset int    `json:"start_offset"`
}

// ExtractedPaper 是结构化提取的结果，各字段均有兜底值，提取本身不失败。
type ExtractedPaper struct {
	Title    string
	Authors  string
	Abstract string
	Sections []Section
	FullText string
}

// titleStrategy 和下面的同类类型构成按序尝试的策略链，第一个命中的结果生效。
type titleStrategy func(meta Metadata, pages []string) (string, bool)
type authorStrategy func(meta Metadata, pages []string) (string, bool)

// Extract 对页面文本逐字段运行策略链。pages 为空时返回全兜底结果。
func Extract(pages []string, meta Metadata) ExtractedPaper {
	fullText := strings.Join(pages, "\n")

	paper := ExtractedPaper{
		Title:    UnknownTitle,
		Authors:  UnknownAuthors,
		FullText: fullText,
	}

	titleStrategies := []titleStrategy{titleFromMetadata, titleFromIndicators, titleFromFirstLongLine}
	for _, s := range titleStrategies {
		if title, ok := s(meta, pages); ok {
			paper.Title = title
			break
		}
	}

	authorStrategies := []authorStrategy{authorsFromMetadata, authorsFromPatterns}
	for _, s := range authorStrategies {
		if authors, ok := s(meta, pages); ok {
			paper.Authors = authors
			break
		}
	}

	paper.Abstract = extractAbstract(pages)
	paper.Sections = extractSections(fullText)
	return paper
}

func titleFromMetadata(meta Metadata, _ []string) (string, bool) {
	title := strings.TrimSpace(meta.Title)
	if len(title) > 3 {
		return title, true
	}
	return "", false
}

// titleFromIndicators 在首页前 10 行中找满足至少 3 个标题特征的行。
func titleFromIndicators(_ Metadata, pages []string) (string, bool) {
	for _, line := range firstLines(pages, 10) {
		n := len([]rune(line))
		if n < 10 || n > 200 {
			continue
		}
		if countTitleIndicators(line) >= 3 {
			return line, true
		}
	}
	return "", false
}

func titleFromFirstLongLine(_ Metadata, pages []string) (string, bool) {
	for _, line := range firstLines(pages, 5) {
		if len([]rune(line)) > 10 {
			return line, true
		}
	}
	return "", false
}

var (
	yearPattern  = regexp.MustCompile(`\b\d{4}\b`)
	emailPattern = regexp.MustCompile(`@|https?://|www\.`)
)

// countTitleIndicators 统计行满足的标题特征数：
// 首字母大写、不以句号结尾、含多个空格、不含四位数字、不含邮箱或 URL。
func countTitleIndicators(line string) int {
	count := 0
	runes := []rune(line)
	if len(runes) > 0 && unicode.IsUpper(runes[0]) {
		count++
	}
	if !strings.HasSuffix(line, ".") {
		count++
	}
	if strings.Count(line, " ") > 1 {
		count++
	}
	if !yearPattern.MatchString(line) {
		count++
	}
	if !emailPattern.MatchString(line) {
		count++
	}
	return count
}

func authorsFromMetadata(meta Metadata, _ []string) (string, bool) {
	author := strings.TrimSpace(meta.Author)
	if len(author) > 2 {
		return author, true
	}
	return "", false
}

var authorPatterns = []*regexp.Regexp{
	// "First Last, First Last" 前缀
	regexp.MustCompile(`^([A-Z][a-z]+ [A-Z][a-z]+(?:, [A-Z][a-z]+ [A-Z][a-z]+)*)`),
	// "J. Smith, A. Jones" 前缀
	regexp.MustCompile(`^([A-Z]\. [A-Z][a-z]+(?:, [A-Z]\. [A-Z][a-z]+)*)`),
	// "Authors: ..." / "By ..."
	regexp.MustCompile(`(?:Authors?|By):?\s*([A-Z][^.!?]*)`),
}

// authorsFromPatterns 在首页前 20 行中按模式族顺序匹配作者行。
// 模式只要求前缀命中，返回捕获组而不是整行。
func authorsFromPatterns(_ Metadata, pages []string) (string, bool) {
	for _, line := range firstLines(pages, 20) {
		for _, pattern := range authorPatterns {
			if m := pattern.FindStringSubmatch(line); m != nil {
				return strings.TrimSpace(m[1]), true
			}
		}
	}
	return "", false
}

var (
	// 标签后必须跟冒号或空白，避免把 "Abstraction" 之类的词头当成标签
	abstractLabelPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)abstract[:\s]`),
		regexp.MustCompile(`(?i)summary[:\s]`),
	}
	abstractEnders  = regexp.MustCompile(`(?im)^\s*(keywords?|index terms|1\.?\s|introduction)\b`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
	abstractMinLen  = 50
	abstractMaxLen  = 2000
	abstractTextCap = 5000
)

// extractAbstract 在前三页中查找 Abstract/Summary 标签并截取其后的段落。
// 截取的内容在空行或 Keywords/Introduction 等标记处结束，长度需在 [50, 2000] 内；
// 某处候选不满足长度要求时继续尝试同一标签的后续出现位置。
func extractAbstract(pages []string) string {
	var sb strings.Builder
	for i, page := range pages {
		if i >= 3 {
			break
		}
		sb.WriteString(page)
		sb.WriteString("\n")
		if i >= 1 && sb.Len() > abstractTextCap {
			break
		}
	}
	text := sb.String()

	for _, pattern := range abstractLabelPatterns {
		for _, loc := range pattern.FindAllStringIndex(text, -1) {
			rest := strings.TrimLeft(text[loc[1]:], ":— \t\n")

			end := len(rest)
			if blankIdx := strings.Index(rest, "\n\n"); blankIdx >= 0 {
				end = blankIdx
			}
			if endLoc := abstractEnders.FindStringIndex(rest); endLoc != nil && endLoc[0] < end {
				end = endLoc[0]
			}

			candidate := strings.TrimSpace(whitespaceRuns.ReplaceAllString(rest[:end], " "))
			n := len([]rune(candidate))
			if n >= abstractMinLen && n <= abstractMaxLen {
				return candidate
			}
		}
	}
	return ""
}

const sectionContentCap = 2000

var sectionPatterns = []*regexp.Regexp{
	// "1. Introduction" / "2.3 Experiments"
	regexp.MustCompile(`(?m)^\s*(\d+(?:\.\d+)*\.?\s+[A-Z][^\n]{2,80})\s*$`),
	// 全大写标题行
	regexp.MustCompile(`(?m)^\s*([A-Z][A-Z .\-]{3,60})\s*$`),
	// 常见章节词
	regexp.MustCompile(`(?mi)^\s*((?:introduction|related work|background|methods?|methodology|experiments?|results|discussion|conclusions?|references|acknowledgments?))\s*$`),
}

// extractSections 在全文中按标题模式族定位章节，正文截取到下一个任意族的标题。
func extractSections(fullText string) []Section {
	type headingMatch struct {
		start, end int
		title      string
	}
	var headings []headingMatch
	seen := make(map[int]bool)
	for _, pattern := range sectionPatterns {
		for _, loc := range pattern.FindAllStringSubmatchIndex(fullText, -1) {
			if seen[loc[2]] {
				continue
			}
			seen[loc[2]] = true
			headings = append(headings, headingMatch{
				start: loc[2],
				end:   loc[3],
				title: strings.TrimSpace(fullText[loc[2]:loc[3]]),
			})
		}
	}
	if len(headings) == 0 {
		return nil
	}

	// 按出现位置排序（插入排序，标题数量很小）
	for i := 1; i < len(headings); i++ {
		for j := i; j > 0 && headings[j-1].start > headings[j].start; j-- {
			headings[j-1], headings[j] = headings[j], headings[j-1]
		}
	}

	sections := make([]Section, 0, len(headings))
	for i, h := range headings {
		// 有下一个标题时正文一直取到它；只有没有后续标题时才按上限截断
		contentEnd := len(fullText)
		if i+1 < len(headings) {
			contentEnd = headings[i+1].start
		} else if contentEnd > h.end+sectionContentCap {
			contentEnd = h.end + sectionContentCap
		}
		content := strings.TrimSpace(fullText[h.end:contentEnd])
		sections = append(sections, Section{
			Title:       h.title,
			Content:     content,
			StartOffset: h.start,
		})
	}
	return sections
}

// firstLines 返回第一页前 n 行并逐行去除首尾空白。
// 按原始行窗口计数，空行占据名额但不会命中任何策略。
func firstLines(pages []string, n int) []string {
	if len(pages) == 0 {
		return nil
	}
	lines := strings.Split(pages[0], "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, strings.TrimSpace(line))
	}
	return out
}
