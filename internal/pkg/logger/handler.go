package logger

import (
	"context"
	"errors"
	log "log/slog"
)

// TeeHandler 将日志分发到多个 Handler，远端写失败不影响本地输出
type TeeHandler struct {
	handlers []log.Handler
}

func (s *TeeHandler) Enabled(ctx context.Context, level log.Level) bool {
	for _, h := range s.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (s *TeeHandler) Handle(ctx context.Context, r log.Record) error {
	var errs []error
	for _, h := range s.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *TeeHandler) WithAttrs(attrs []log.Attr) log.Handler {
	return s.each(func(h log.Handler) log.Handler { return h.WithAttrs(attrs) })
}

func (s *TeeHandler) WithGroup(name string) log.Handler {
	return s.each(func(h log.Handler) log.Handler { return h.WithGroup(name) })
}

func (s *TeeHandler) each(fn func(log.Handler) log.Handler) log.Handler {
	next := make([]log.Handler, len(s.handlers))
	for i, h := range s.handlers {
		next[i] = fn(h)
	}
	return &TeeHandler{handlers: next}
}

// RemoteFilterHandler 只上报带 trace_id 的记录，即请求、事件、任务和连接内产生的日志
type RemoteFilterHandler struct {
	next log.Handler
}

func (s *RemoteFilterHandler) Enabled(ctx context.Context, level log.Level) bool {
	return s.next.Enabled(ctx, level)
}

func (s *RemoteFilterHandler) Handle(ctx context.Context, r log.Record) error {
	if TraceID(ctx) == "" && !recordHasTrace(r) {
		return nil
	}
	return s.next.Handle(ctx, r)
}

func (s *RemoteFilterHandler) WithAttrs(attrs []log.Attr) log.Handler {
	return &RemoteFilterHandler{next: s.next.WithAttrs(attrs)}
}

func (s *RemoteFilterHandler) WithGroup(name string) log.Handler {
	return &RemoteFilterHandler{next: s.next.WithGroup(name)}
}

func recordHasTrace(r log.Record) bool {
	found := false
	r.Attrs(func(a log.Attr) bool {
		if a.Key == TraceIDKey && a.Value.String() != "" {
			found = true
			return false
		}
		return true
	})
	return found
}
