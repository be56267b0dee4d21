package worker

import (
	"Mallchat/internal/pkg/logger"
	"context"
	log "log/slog"
	"time"

	"golang.org/x/time/rate"
)

// RetryPolicy 外部依赖调用的重试策略
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// Limiter 每次尝试前等待令牌，可为空
	Limiter *rate.Limiter
}

func (r RetryPolicy) backoff(attempt int) time.Duration {
	delay := r.BaseDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	for i := 0; i < attempt; i++ {
		delay *= 2
		if r.MaxDelay > 0 && delay >= r.MaxDelay {
			return r.MaxDelay
		}
	}
	return delay
}

// SubmitRetry 投递一个失败即重试的任务，超过 MaxRetries 后放弃并记录日志
func (p *Pool) SubmitRetry(ctx context.Context, name string, fn TaskFunc, policy RetryPolicy) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed.Load() {
		return ErrPoolClosed
	}
	if !p.retrySem.TryAcquire(1) {
		log.ErrorContext(ctx, "retry slots exhausted, task dropped", "task", name)
		return ErrQueueFull
	}

	traceID := logger.TraceID(ctx)
	p.retryWg.Add(1)
	go func() {
		defer p.retryWg.Done()
		defer p.retrySem.Release(1)

		taskCtx := p.ctx
		if traceID != "" {
			taskCtx = logger.WithTraceID(taskCtx, traceID)
		}
		p.runWithRetry(taskCtx, name, fn, policy)
	}()
	return nil
}

func (p *Pool) runWithRetry(ctx context.Context, name string, fn TaskFunc, policy RetryPolicy) {
	for attempt := 0; ; attempt++ {
		if policy.Limiter != nil {
			if err := policy.Limiter.Wait(ctx); err != nil {
				log.WarnContext(ctx, "retry task cancelled", "task", name, "attempt", attempt, "err", err)
				return
			}
		}

		err := runSafely(ctx, fn)
		if err == nil {
			return
		}

		if attempt >= policy.MaxRetries {
			log.ErrorContext(ctx, "retry task abandoned", "task", name, "attempts", attempt+1, "err", err)
			return
		}

		delay := policy.backoff(attempt)
		log.WarnContext(ctx, "retry task failed, backing off", "task", name, "attempt", attempt+1, "delay", delay, "err", err)

		select {
		case <-ctx.Done():
			log.WarnContext(ctx, "retry task cancelled", "task", name, "attempt", attempt+1)
			return
		case <-time.After(delay):
		}
	}
}
