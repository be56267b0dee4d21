package event

import (
	"Mallchat/internal/pkg/worker"
	"context"
)

// LocalBus 进程内事件总线，事件在工作池中异步分发
type LocalBus struct {
	dispatcher *Dispatcher
	pool       *worker.Pool
}

func NewLocalBus(dispatcher *Dispatcher, pool *worker.Pool) *LocalBus {
	return &LocalBus{dispatcher: dispatcher, pool: pool}
}

func (s *LocalBus) Publish(ctx context.Context, topic, key string, payload any) error {
	evt, err := New(ctx, topic, key, payload)
	if err != nil {
		return err
	}
	return s.pool.Submit(ctx, "event:"+topic, func(taskCtx context.Context) error {
		return s.dispatcher.Dispatch(evt.Context(taskCtx), evt)
	})
}

// SyncBus 同步分发，供测试与单机调试使用
type SyncBus struct {
	dispatcher *Dispatcher
}

func NewSyncBus(dispatcher *Dispatcher) *SyncBus {
	return &SyncBus{dispatcher: dispatcher}
}

func (s *SyncBus) Publish(ctx context.Context, topic, key string, payload any) error {
	evt, err := New(ctx, topic, key, payload)
	if err != nil {
		return err
	}
	return s.dispatcher.Dispatch(evt.Context(ctx), evt)
}
