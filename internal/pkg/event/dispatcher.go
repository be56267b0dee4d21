package event

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"sync"
)

// Listener 事件监听器
type Listener func(ctx context.Context, evt *Event) error

type namedListener struct {
	name string
	fn   Listener
}

// Dispatcher 按注册顺序依次调用同一主题的全部监听器
type Dispatcher struct {
	mu        sync.RWMutex
	listeners map[string][]namedListener
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{listeners: make(map[string][]namedListener)}
}

// On 注册监听器，同一主题内按注册顺序执行
func (d *Dispatcher) On(topic, name string, fn Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[topic] = append(d.listeners[topic], namedListener{name: name, fn: fn})
}

// Dispatch 某个监听器失败不影响后续监听器，所有错误合并返回
func (d *Dispatcher) Dispatch(ctx context.Context, evt *Event) error {
	d.mu.RLock()
	listeners := d.listeners[evt.Topic]
	d.mu.RUnlock()

	if len(listeners) == 0 {
		log.DebugContext(ctx, "no listener for event", "topic", evt.Topic)
		return nil
	}

	var errs []error
	for _, l := range listeners {
		if err := l.fn(ctx, evt); err != nil {
			log.ErrorContext(ctx, "event listener failed", "topic", evt.Topic, "listener", l.name, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", l.name, err))
		}
	}
	return errors.Join(errs...)
}
