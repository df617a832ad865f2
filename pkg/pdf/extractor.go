// Package pdf 封装了 PDF 文本与元数据的提取能力。
package pdf

import (
	"bytes"
	"fmt"

	"research-pilot-go/pkg/log"

	"github.com/ledongthuc/pdf"
)

// Metadata 是 PDF 容器自带的文档信息（Info 字典）。
// 字段缺失时保持零值，由上层的结构化抽取兜底。
type Metadata struct {
	Title  string
	Author string
	Pages  int
}

// Extractor 定义了 PDF 文本提取的接口，便于在测试中替换实现。
type Extractor interface {
	// ExtractPages 返回按页切分的纯文本。
	ExtractPages(data []byte) ([]string, error)
	// ExtractMetadata 返回容器级元数据，从不失败（解析异常时返回零值）。
	ExtractMetadata(data []byte) Metadata
}

type nativeExtractor struct{}

// NewExtractor 创建一个基于 ledongthuc/pdf 的进程内提取器。
func NewExtractor() Extractor {
	return &nativeExtractor{}
}

// ExtractPages 逐页提取纯文本，空页跳过但保留占位，保证页序与原文件一致。
func (e *nativeExtractor) ExtractPages(data []byte) ([]string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("创建 PDF reader 失败: %w", err)
	}

	totalPage := reader.NumPage()
	pages := make([]string, 0, totalPage)
	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			log.Warnf("[PDFExtractor] 第 %d 页为空页，跳过", pageIndex)
			pages = append(pages, "")
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("提取第 %d 页文本失败: %w", pageIndex, err)
		}
		pages = append(pages, text)
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("PDF 中未提取到任何页面")
	}
	return pages, nil
}

// ExtractMetadata 从 Trailer 的 Info 字典读取标题与作者。
func (e *nativeExtractor) ExtractMetadata(data []byte) Metadata {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		log.Warnf("[PDFExtractor] 读取 PDF 元数据失败: %v", err)
		return Metadata{}
	}

	meta := Metadata{Pages: reader.NumPage()}
	info := reader.Trailer().Key("Info")
	if info.IsNull() {
		return meta
	}
	if v := info.Key("Title"); v.Kind() == pdf.String {
		meta.Title = v.RawString()
	}
	if v := info.Key("Author"); v.Kind() == pdf.String {
		meta.Author = v.RawString()
	}
	return meta
}
