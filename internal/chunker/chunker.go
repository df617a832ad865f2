// Package chunker 将论文全文切分为带重叠窗口的检索分块。
package chunker

import (
	"strings"
	"unicode"
)

const (
	// DefaultChunkSize 默认分块长度（按 rune 计数）
	DefaultChunkSize = 1000
	// DefaultChunkOverlap 相邻分块的默认重叠长度
	DefaultChunkOverlap = 200
)

// Chunk 将文本切分为长度不超过 size 的分块，相邻分块重叠 overlap 个字符。
// 窗口后半段优先在句号处断开，其次在空格处断开，找不到则硬切；每块两端去除空白。
func Chunk(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}

	runes := []rune(text)
	total := len(runes)
	if total == 0 {
		return []string{}
	}
	if total <= size {
		trimmed := strings.TrimSpace(string(runes))
		if trimmed == "" {
			return []string{}
		}
		return []string{trimmed}
	}

	chunks := make([]string, 0, total/size+1)
	start := 0
	for start < total {
		end := start + size
		if end >= total {
			if c := strings.TrimSpace(string(runes[start:total])); c != "" {
				chunks = append(chunks, c)
			}
			break
		}

		// 边界必须落在窗口后半段（严格大于中点），否则退回硬切
		cut := end
		mid := start + size/2
		if idx := lastIndexRune(runes, start, end, '.'); idx > mid {
			cut = idx + 1
		} else if idx := lastIndexRune(runes, start, end, ' '); idx > mid {
			cut = idx
		}

		if c := strings.TrimSpace(string(runes[start:cut])); c != "" {
			chunks = append(chunks, c)
		}

		next := cut - overlap
		// 步进保护：重叠不小于分块时也必须前进，否则会死循环
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return chunks
}

// lastIndexRune 返回 [from, to) 区间内 r 最后一次出现的下标，没有则返回 -1。
func lastIndexRune(runes []rune, from, to int, r rune) int {
	for i := to - 1; i >= from; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}

// Preprocess 折叠空白并把基本标点集合之外的字符替换为空格，用于嵌入前的归一化。
func Preprocess(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	lastSpace := false
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || isKeptPunct(r) {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		// 空白和被拒绝的字符统一折叠为单个空格，避免相邻单词粘连
		if !lastSpace && b.Len() > 0 {
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

func isKeptPunct(r rune) bool {
	switch r {
	case '.', ',', ';', ':', '!', '?', '-', '(', ')':
		return true
	}
	return false
}
