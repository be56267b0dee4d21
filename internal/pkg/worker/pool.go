package worker

import (
	"Mallchat/internal/pkg/logger"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

var (
	ErrPoolClosed = errors.New("worker pool closed")
	ErrQueueFull  = errors.New("worker queue full")
)

// TaskFunc 投递到池中的任务
type TaskFunc func(ctx context.Context) error

type task struct {
	name    string
	traceID string
	fn      TaskFunc
}

// Pool 固定数量的 goroutine 消费有界队列
type Pool struct {
	tasks  chan task
	wg     sync.WaitGroup
	closed atomic.Bool
	mu     sync.RWMutex

	// 重试任务单独计数，避免占满消费 goroutine
	retrySem *semaphore.Weighted
	retryWg  sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewPool 启动 workers 个消费者
func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		tasks:    make(chan task, queueSize),
		retrySem: semaphore.NewWeighted(int64(workers) * 4),
		ctx:      ctx,
		cancel:   cancel,
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.loop()
	}
	return p
}

// Submit 非阻塞投递，队列满时丢弃；任务失败只记录日志，不会重新入队
func (p *Pool) Submit(ctx context.Context, name string, fn TaskFunc) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed.Load() {
		return ErrPoolClosed
	}

	select {
	case p.tasks <- task{name: name, traceID: logger.TraceID(ctx), fn: fn}:
		return nil
	default:
		log.ErrorContext(ctx, "worker queue full, task dropped", "task", name)
		return ErrQueueFull
	}
}

// Close 停止接收新任务，等待已入队任务和重试任务结束
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed.Swap(true) {
		p.mu.Unlock()
		return
	}
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
	p.cancel()
	p.retryWg.Wait()
}

func (p *Pool) loop() {
	defer p.wg.Done()
	for t := range p.tasks {
		ctx := context.Background()
		if t.traceID != "" {
			ctx = logger.WithTraceID(ctx, t.traceID)
		}
		if err := runSafely(ctx, t.fn); err != nil {
			log.ErrorContext(ctx, "worker task failed", "task", t.name, "err", err)
		}
	}
}

func runSafely(ctx context.Context, fn TaskFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			log.ErrorContext(ctx, "worker task panic", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	return fn(ctx)
}
