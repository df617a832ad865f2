package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"research-pilot-go/internal/model"
	"research-pilot-go/internal/repository"
	"research-pilot-go/pkg/log"
	"research-pilot-go/pkg/tasks"
)

// Pipeline 拥有任务队列和单个后台工作协程，串行处理论文摄取任务。
type Pipeline struct {
	queue       Queue
	processor   *Processor
	paperRepo   repository.PaperRepository
	dequeueWait time.Duration

	mu       sync.Mutex
	inFlight map[uint]struct{}

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
	started  bool
}

// New 创建摄取管线。dequeueWait 是空闲时单次出队的等待上限。
func New(queue Queue, processor *Processor, paperRepo repository.PaperRepository, dequeueWait time.Duration) *Pipeline {
	if dequeueWait <= 0 {
		dequeueWait = time.Second
	}
	return &Pipeline{
		queue:       queue,
		processor:   processor,
		paperRepo:   paperRepo,
		dequeueWait: dequeueWait,
		inFlight:    make(map[uint]struct{}),
		stopCh:      make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Enqueue 将论文加入处理队列。已在队列或处理中的论文会被去重，直接返回成功。
func (p *Pipeline) Enqueue(ctx context.Context, paperID uint) error {
	p.mu.Lock()
	if _, exists := p.inFlight[paperID]; exists {
		p.mu.Unlock()
		log.Infof("[Pipeline] 论文 %d 已在处理队列中，忽略重复入队", paperID)
		return nil
	}
	p.inFlight[paperID] = struct{}{}
	p.mu.Unlock()

	if err := p.queue.Enqueue(ctx, tasks.PaperProcessingTask{PaperID: paperID}); err != nil {
		p.clearInFlight(paperID)
		return fmt.Errorf("任务入队失败: %w", err)
	}
	log.Infof("[Pipeline] 论文 %d 已入队", paperID)
	return nil
}

// Start 启动后台工作协程。重复调用无效果。
func (p *Pipeline) Start() {
	if p.started {
		return
	}
	p.started = true
	go p.worker()
	log.Info("[Pipeline] 摄取管线已启动")
}

// Stop 请求停止并等待工作协程清空队列后退出。
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	if p.started {
		<-p.done
	}
	log.Info("[Pipeline] 摄取管线已停止")
}

// worker 循环出队并处理任务。收到停止信号后继续处理直到队列清空。
func (p *Pipeline) worker() {
	defer close(p.done)
	ctx := context.Background()
	for {
		task, err := p.queue.Dequeue(ctx, p.dequeueWait)
		if errors.Is(err, ErrQueueEmpty) {
			select {
			case <-p.stopCh:
				return
			default:
				continue
			}
		}
		if err != nil {
			log.Errorf("[Pipeline] 出队失败: %v", err)
			continue
		}
		p.handle(ctx, task)
	}
}

func (p *Pipeline) handle(ctx context.Context, task tasks.PaperProcessingTask) {
	defer p.clearInFlight(task.PaperID)

	if err := p.paperRepo.UpdateStatus(task.PaperID, model.PaperStatusProcessing, nil); err != nil {
		log.Errorf("[Pipeline] 更新论文 %d 状态为 processing 失败: %v", task.PaperID, err)
	}

	if err := p.processor.Process(ctx, task); err != nil {
		log.Errorf("[Pipeline] 处理论文 %d 失败: %v", task.PaperID, err)
		detail := err.Error()
		if updErr := p.paperRepo.UpdateStatus(task.PaperID, model.PaperStatusError, &detail); updErr != nil {
			log.Errorf("[Pipeline] 更新论文 %d 状态为 error 失败: %v", task.PaperID, updErr)
		}
		return
	}

	if err := p.paperRepo.UpdateStatus(task.PaperID, model.PaperStatusReady, nil); err != nil {
		log.Errorf("[Pipeline] 更新论文 %d 状态为 ready 失败: %v", task.PaperID, err)
	}
}

func (p *Pipeline) clearInFlight(paperID uint) {
	p.mu.Lock()
	delete(p.inFlight, paperID)
	p.mu.Unlock()
}
