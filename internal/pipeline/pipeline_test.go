package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"research-pilot-go/internal/config"
	"research-pilot-go/internal/model"
	"research-pilot-go/internal/study"
	"research-pilot-go/internal/vectorstore"
	"research-pilot-go/pkg/pdf"
	"research-pilot-go/pkg/tasks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakePaperRepo struct {
	mu     sync.Mutex
	papers map[uint]*model.Paper
	// 记录状态变迁用于断言
	transitions map[uint][]string
}

func newFakePaperRepo() *fakePaperRepo {
	return &fakePaperRepo{papers: make(map[uint]*model.Paper), transitions: make(map[uint][]string)}
}

func (r *fakePaperRepo) Create(paper *model.Paper) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.papers[paper.ID] = paper
	return nil
}

func (r *fakePaperRepo) FindByID(paperID uint) (*model.Paper, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.papers[paperID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePaperRepo) FindByUser(uint, int, int) ([]model.Paper, int64, error) { return nil, 0, nil }
func (r *fakePaperRepo) FindByUserAndStatus(uint, string) ([]model.Paper, error) { return nil, nil }

func (r *fakePaperRepo) Update(paper *model.Paper) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *paper
	r.papers[paper.ID] = &cp
	return nil
}

func (r *fakePaperRepo) UpdateStatus(paperID uint, status string, errorDetail *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.papers[paperID]; ok {
		p.Status = status
		p.ErrorDetail = errorDetail
	}
	r.transitions[paperID] = append(r.transitions[paperID], status)
	return nil
}

func (r *fakePaperRepo) Delete(paperID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.papers, paperID)
	return nil
}

func (r *fakePaperRepo) CountByStatus() (map[string]int64, error) { return nil, nil }

func (r *fakePaperRepo) status(paperID uint) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.papers[paperID]; ok {
		return p.Status
	}
	return ""
}

func (r *fakePaperRepo) statusHistory(paperID uint) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.transitions[paperID]...)
}

type fakeStudyRepo struct {
	mu       sync.Mutex
	notes    []model.Note
	cards    []model.Flashcard
	mindMaps []model.MindMap
}

func (r *fakeStudyRepo) CreateNote(note *model.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, *note)
	return nil
}

func (r *fakeStudyRepo) FindNoteByPaper(uint) (*model.Note, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeStudyRepo) CreateFlashcards(cards []model.Flashcard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cards = append(r.cards, cards...)
	return nil
}

func (r *fakeStudyRepo) FindFlashcardsByPaper(uint) ([]model.Flashcard, error) { return nil, nil }

func (r *fakeStudyRepo) CreateMindMap(m *model.MindMap) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mindMaps = append(r.mindMaps, *m)
	return nil
}

func (r *fakeStudyRepo) FindMindMapByPaper(uint) (*model.MindMap, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeStudyRepo) DeleteArtifactsByPaper(uint) error                    { return nil }
func (r *fakeStudyRepo) CreateStudyPlan(*model.StudyPlan) error               { return nil }
func (r *fakeStudyRepo) FindStudyPlansByUser(uint) ([]model.StudyPlan, error) { return nil, nil }
func (r *fakeStudyRepo) CreateInsights([]model.Insight) error                 { return nil }
func (r *fakeStudyRepo) FindInsightsByUser(uint) ([]model.Insight, error)     { return nil, nil }

type fakePDFExtractor struct {
	pages []string
	err   error
}

func (f *fakePDFExtractor) ExtractPages([]byte) ([]string, error) { return f.pages, f.err }
func (f *fakePDFExtractor) ExtractMetadata([]byte) pdf.Metadata   { return pdf.Metadata{} }

type fakeGenerator struct{}

func (fakeGenerator) GenerateSummary(context.Context, string, string) (string, error) {
	return "summary", nil
}

func (fakeGenerator) GenerateNotes(context.Context, string, string) (study.Notes, error) {
	return study.Notes{MainPoints: []string{"point"}}, nil
}

func (fakeGenerator) GenerateFlashcards(context.Context, string, string, int) ([]study.FlashcardItem, error) {
	return []study.FlashcardItem{{Question: "q", Answer: "a", Difficulty: "easy", Category: "concept"}}, nil
}

func (fakeGenerator) GenerateMindMap(context.Context, string, string) (study.MindMapDoc, error) {
	return study.MindMapDoc{Title: "map"}, nil
}

func (fakeGenerator) GeneratePlan(context.Context, string, []study.PaperBrief, string) (study.PlanDoc, error) {
	return study.PlanDoc{}, nil
}

func (fakeGenerator) AnalyzeInsights(context.Context, []study.PaperBrief) ([]study.InsightItem, error) {
	return nil, nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) CreateEmbedding(context.Context, string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (fakeEmbedder) CreateEmbeddings(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

const paperPage = `A Study Of Pipelines In Systems

Authors: Test Person

Abstract
This paper studies how single worker ingestion pipelines behave under failure conditions and verifies their status transitions.

1. Introduction
Pipelines move papers from upload to ready.`

func newTestPipeline(t *testing.T, fetchErr error, pages []string, pageErr error) (*Pipeline, *fakePaperRepo, *fakeStudyRepo, *vectorstore.Index) {
	t.Helper()
	paperRepo := newFakePaperRepo()
	studyRepo := &fakeStudyRepo{}
	index := vectorstore.NewIndex(fakeEmbedder{}, vectorstore.NewMemoryBackend())

	fetcher := ObjectFetcherFunc(func(context.Context, string) ([]byte, error) {
		if fetchErr != nil {
			return nil, fetchErr
		}
		return []byte("%PDF-1.4 fake"), nil
	})
	processor := NewProcessor(
		fetcher,
		&fakePDFExtractor{pages: pages, err: pageErr},
		fakeGenerator{},
		index,
		paperRepo,
		studyRepo,
		config.PipelineConfig{ChunkSize: 1000, ChunkOverlap: 200, FlashcardNum: 8},
	)
	p := New(NewMemoryQueue(16), processor, paperRepo, 50*time.Millisecond)
	return p, paperRepo, studyRepo, index
}

func seedPaper(repo *fakePaperRepo, id uint) {
	_ = repo.Create(&model.Paper{
		ID:         id,
		UserID:     1,
		ObjectName: "papers/test.pdf",
		Status:     model.PaperStatusQueued,
	})
}

func waitForStatus(t *testing.T, repo *fakePaperRepo, paperID uint, want string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if repo.status(paperID) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("paper %d never reached status %q, last status %q", paperID, want, repo.status(paperID))
}

func TestPipelineProcessesToReady(t *testing.T) {
	p, paperRepo, studyRepo, index := newTestPipeline(t, nil, []string{paperPage}, nil)
	seedPaper(paperRepo, 1)

	p.Start()
	defer p.Stop()

	require.NoError(t, p.Enqueue(context.Background(), 1))
	waitForStatus(t, paperRepo, 1, model.PaperStatusReady)

	history := paperRepo.statusHistory(1)
	assert.Equal(t, []string{model.PaperStatusProcessing, model.PaperStatusReady}, history)

	paper, err := paperRepo.FindByID(1)
	require.NoError(t, err)
	assert.Equal(t, "A Study Of Pipelines In Systems", paper.Title)
	assert.Equal(t, "Test Person", paper.Authors)
	assert.NotEmpty(t, paper.Abstract)
	assert.Nil(t, paper.ErrorDetail)

	assert.Len(t, studyRepo.notes, 1)
	assert.Len(t, studyRepo.cards, 1)
	assert.Len(t, studyRepo.mindMaps, 1)

	stats := index.Stats(context.Background())
	assert.Positive(t, stats["total_chunks"])
}

func TestPipelineFetchFailureMarksError(t *testing.T) {
	p, paperRepo, _, _ := newTestPipeline(t, errors.New("object not found"), nil, nil)
	seedPaper(paperRepo, 1)

	p.Start()
	defer p.Stop()

	require.NoError(t, p.Enqueue(context.Background(), 1))
	waitForStatus(t, paperRepo, 1, model.PaperStatusError)

	paper, err := paperRepo.FindByID(1)
	require.NoError(t, err)
	require.NotNil(t, paper.ErrorDetail)
	assert.Contains(t, *paper.ErrorDetail, "object not found")
}

func TestPipelineExtractionFailureMarksError(t *testing.T) {
	p, paperRepo, studyRepo, _ := newTestPipeline(t, nil, nil, errors.New("corrupt pdf"))
	seedPaper(paperRepo, 1)

	p.Start()
	defer p.Stop()

	require.NoError(t, p.Enqueue(context.Background(), 1))
	waitForStatus(t, paperRepo, 1, model.PaperStatusError)

	// 提取失败时后续步骤不执行
	assert.Empty(t, studyRepo.notes)
}

func TestPipelineNeverStuckInProcessing(t *testing.T) {
	p, paperRepo, _, _ := newTestPipeline(t, nil, nil, errors.New("boom"))
	seedPaper(paperRepo, 1)
	seedPaper(paperRepo, 2)

	p.Start()
	require.NoError(t, p.Enqueue(context.Background(), 1))
	require.NoError(t, p.Enqueue(context.Background(), 2))
	waitForStatus(t, paperRepo, 1, model.PaperStatusError)
	waitForStatus(t, paperRepo, 2, model.PaperStatusError)
	p.Stop()

	for _, id := range []uint{1, 2} {
		assert.NotEqual(t, model.PaperStatusProcessing, paperRepo.status(id))
	}
}

func TestPipelineDeduplicatesEnqueue(t *testing.T) {
	p, paperRepo, _, _ := newTestPipeline(t, nil, []string{paperPage}, nil)
	seedPaper(paperRepo, 1)

	// 未启动 worker，重复入队应被去重为一个任务
	require.NoError(t, p.Enqueue(context.Background(), 1))
	require.NoError(t, p.Enqueue(context.Background(), 1))
	require.NoError(t, p.Enqueue(context.Background(), 1))

	p.Start()
	waitForStatus(t, paperRepo, 1, model.PaperStatusReady)
	p.Stop()

	// 只应有一轮 processing→ready
	assert.Equal(t, []string{model.PaperStatusProcessing, model.PaperStatusReady}, paperRepo.statusHistory(1))
}

func TestPipelineStopDrainsQueue(t *testing.T) {
	p, paperRepo, _, _ := newTestPipeline(t, nil, []string{paperPage}, nil)
	for i := uint(1); i <= 3; i++ {
		seedPaper(paperRepo, i)
		require.NoError(t, p.Enqueue(context.Background(), i))
	}

	p.Start()
	p.Stop()

	// Stop 返回后所有已入队任务都应处理完毕
	for i := uint(1); i <= 3; i++ {
		assert.Equal(t, model.PaperStatusReady, paperRepo.status(i), "paper %d", i)
	}
}

func TestPipelineStopWithoutStart(t *testing.T) {
	p, _, _, _ := newTestPipeline(t, nil, []string{paperPage}, nil)
	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked without a started worker")
	}
}

func TestProcessUnknownPaper(t *testing.T) {
	p, _, _, _ := newTestPipeline(t, nil, []string{paperPage}, nil)
	err := p.processor.Process(context.Background(), tasks.PaperProcessingTask{PaperID: 99})
	assert.Error(t, err)
}
