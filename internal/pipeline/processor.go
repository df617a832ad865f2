package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"research-pilot-go/internal/chunker"
	"research-pilot-go/internal/config"
	"research-pilot-go/internal/extractor"
	"research-pilot-go/internal/model"
	"research-pilot-go/internal/repository"
	"research-pilot-go/internal/study"
	"research-pilot-go/internal/vectorstore"
	"research-pilot-go/pkg/log"
	"research-pilot-go/pkg/pdf"
	"research-pilot-go/pkg/tasks"
)

// ObjectFetcher 按对象名获取文件内容，生产实现基于 MinIO。
type ObjectFetcher interface {
	Fetch(ctx context.Context, objectName string) ([]byte, error)
}

// ObjectFetcherFunc 让普通函数实现 ObjectFetcher。
type ObjectFetcherFunc func(ctx context.Context, objectName string) ([]byte, error)

func (f ObjectFetcherFunc) Fetch(ctx context.Context, objectName string) ([]byte, error) {
	return f(ctx, objectName)
}

// Processor 封装了单篇论文处理的所有依赖和逻辑。
type Processor struct {
	fetcher      ObjectFetcher
	pdfExtractor pdf.Extractor
	generator    study.Generator
	index        *vectorstore.Index
	paperRepo    repository.PaperRepository
	studyRepo    repository.StudyRepository
	cfg          config.PipelineConfig
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(
	fetcher ObjectFetcher,
	pdfExtractor pdf.Extractor,
	generator study.Generator,
	index *vectorstore.Index,
	paperRepo repository.PaperRepository,
	studyRepo repository.StudyRepository,
	cfg config.PipelineConfig,
) *Processor {
	return &Processor{
		fetcher:      fetcher,
		pdfExtractor: pdfExtractor,
		generator:    generator,
		index:        index,
		paperRepo:    paperRepo,
		studyRepo:    studyRepo,
		cfg:          cfg,
	}
}

// Process 是论文处理的主函数，依次执行结构提取、学习材料生成和向量索引。
func (p *Processor) Process(ctx context.Context, task tasks.PaperProcessingTask) error {
	log.Infof("[Processor] 开始处理论文, PaperID: %d", task.PaperID)

	paper, err := p.paperRepo.FindByID(task.PaperID)
	if err != nil {
		return fmt.Errorf("查找论文记录失败: %w", err)
	}

	// 步骤1: 下载文件并做结构化提取
	if err := p.extractStructure(ctx, paper); err != nil {
		return err
	}

	// 步骤2: 生成学习材料（单项生成失败降级为骨架，持久化失败才算整体失败）
	if err := p.generateArtifacts(ctx, paper); err != nil {
		return err
	}

	// 步骤3: 删除旧分块后重建向量索引
	if err := p.indexPaper(ctx, paper); err != nil {
		return err
	}

	log.Infof("[Processor] 论文 %d 处理完成", paper.ID)
	return nil
}

func (p *Processor) extractStructure(ctx context.Context, paper *model.Paper) error {
	log.Infof("[Processor] 步骤1: 下载并提取论文结构, Object: %s", paper.ObjectName)
	data, err := p.fetcher.Fetch(ctx, paper.ObjectName)
	if err != nil {
		log.Errorf("[Processor] 下载文件失败, Object: %s, Error: %v", paper.ObjectName, err)
		return fmt.Errorf("下载文件失败: %w", err)
	}
	if len(data) == 0 {
		return errors.New("文件内容为空")
	}

	pages, err := p.pdfExtractor.ExtractPages(data)
	if err != nil {
		log.Errorf("[Processor] 提取 PDF 页面失败, PaperID: %d, Error: %v", paper.ID, err)
		return fmt.Errorf("提取 PDF 页面失败: %w", err)
	}
	meta := p.pdfExtractor.ExtractMetadata(data)

	extracted := extractor.Extract(pages, extractor.Metadata{
		Title:  meta.Title,
		Author: meta.Author,
		Pages:  meta.Pages,
	})
	if extracted.FullText == "" {
		return errors.New("提取的文本内容为空")
	}
	log.Infof("[Processor] 步骤1: 提取成功, 标题: '%s', 全文长度: %d 字符",
		extracted.Title, utf8.RuneCountInString(extracted.FullText))

	sectionsJSON, err := json.Marshal(extracted.Sections)
	if err != nil {
		return fmt.Errorf("序列化章节失败: %w", err)
	}

	paper.Title = extracted.Title
	paper.Authors = extracted.Authors
	paper.Abstract = extracted.Abstract
	paper.FullText = extracted.FullText
	paper.Sections = string(sectionsJSON)
	if err := p.paperRepo.Update(paper); err != nil {
		return fmt.Errorf("保存提取结果失败: %w", err)
	}
	return nil
}

func (p *Processor) generateArtifacts(ctx context.Context, paper *model.Paper) error {
	log.Infof("[Processor] 步骤2: 为论文 %d 生成学习材料", paper.ID)

	// 重新处理时清理旧材料，避免重复累积
	if err := p.studyRepo.DeleteArtifactsByPaper(paper.ID); err != nil {
		log.Warnf("[Processor] 清理论文 %d 的旧学习材料失败: %v", paper.ID, err)
	}

	summary, err := p.generator.GenerateSummary(ctx, paper.FullText, paper.Title)
	if err != nil {
		log.Warnf("[Processor] 生成摘要失败, PaperID: %d: %v", paper.ID, err)
		summary = fmt.Sprintf("Error generating summary: %v", err)
	}

	notes, err := p.generator.GenerateNotes(ctx, paper.FullText, paper.Title)
	if err != nil {
		log.Warnf("[Processor] 生成学习笔记失败, PaperID: %d: %v", paper.ID, err)
		notes = study.Notes{
			KeyConcepts:          []string{},
			MainPoints:           []string{},
			ImportantDefinitions: map[string]string{},
			Takeaways:            []string{},
			StudyQuestions:       []string{},
		}
	}
	notesJSON, err := json.Marshal(notes)
	if err != nil {
		return fmt.Errorf("序列化学习笔记失败: %w", err)
	}
	takeawaysJSON, err := json.Marshal(notes.Takeaways)
	if err != nil {
		return fmt.Errorf("序列化要点失败: %w", err)
	}
	note := &model.Note{
		PaperID:      paper.ID,
		Title:        fmt.Sprintf("Study Notes: %s", paper.Title),
		Content:      string(notesJSON),
		Summary:      summary,
		KeyTakeaways: string(takeawaysJSON),
	}
	if err := p.studyRepo.CreateNote(note); err != nil {
		return fmt.Errorf("保存学习笔记失败: %w", err)
	}

	cards, err := p.generator.GenerateFlashcards(ctx, paper.FullText, paper.Title, p.cfg.FlashcardNum)
	if err != nil {
		log.Warnf("[Processor] 生成抽认卡失败, PaperID: %d: %v", paper.ID, err)
		cards = nil
	}
	if len(cards) > 0 {
		rows := make([]model.Flashcard, 0, len(cards))
		for _, c := range cards {
			rows = append(rows, model.Flashcard{
				PaperID:    paper.ID,
				Question:   c.Question,
				Answer:     c.Answer,
				Difficulty: c.Difficulty,
				Category:   c.Category,
			})
		}
		if err := p.studyRepo.CreateFlashcards(rows); err != nil {
			return fmt.Errorf("保存抽认卡失败: %w", err)
		}
	}

	mindMap, err := p.generator.GenerateMindMap(ctx, paper.FullText, paper.Title)
	if err != nil {
		log.Warnf("[Processor] 生成思维导图失败, PaperID: %d: %v", paper.ID, err)
		mindMap = study.MindMapDoc{Title: paper.Title, CentralConcept: "Research Paper"}
	}
	mindMapJSON, err := json.Marshal(mindMap)
	if err != nil {
		return fmt.Errorf("序列化思维导图失败: %w", err)
	}
	if err := p.studyRepo.CreateMindMap(&model.MindMap{
		PaperID:   paper.ID,
		Title:     fmt.Sprintf("Mind Map: %s", paper.Title),
		Structure: string(mindMapJSON),
	}); err != nil {
		return fmt.Errorf("保存思维导图失败: %w", err)
	}
	return nil
}

func (p *Processor) indexPaper(ctx context.Context, paper *model.Paper) error {
	log.Infof("[Processor] 步骤3: 为论文 %d 重建向量索引", paper.ID)

	// 先删后加，保证重新处理不产生重复分块
	if ok := p.index.DeletePaper(ctx, paper.ID); !ok {
		return errors.New("删除论文旧分块失败")
	}

	text := chunker.Preprocess(paper.FullText)
	chunks := chunker.Chunk(text, p.cfg.ChunkSize, p.cfg.ChunkOverlap)
	if len(chunks) == 0 {
		return errors.New("未生成任何文本分块")
	}
	log.Infof("[Processor] 步骤3: 文本分块完成, 共 %d 个分块", len(chunks))

	if ok := p.index.AddPaper(ctx, paper.ID, paper.Title, chunks, nil); !ok {
		return errors.New("写入向量索引失败")
	}
	return nil
}
