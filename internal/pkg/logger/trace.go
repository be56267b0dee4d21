package logger

import (
	"context"
	log "log/slog"

	"github.com/google/uuid"
)

// TraceIDKey 定义 Context 中的 Key
const TraceIDKey = "trace_id"

// ContextHandler 包装器，用于从 ctx 中提取 trace_id
type ContextHandler struct {
	log.Handler
}

func (h *ContextHandler) Handle(ctx context.Context, r log.Record) error {
	if ctx != nil {
		if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
			r.AddAttrs(log.String("trace_id", traceID))
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []log.Attr) log.Handler {
	return &ContextHandler{h.Handler.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) log.Handler {
	return &ContextHandler{h.Handler.WithGroup(name)}
}

// WithTraceID 把 trace_id 写入 ctx
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// TraceID 读取 ctx 中的 trace_id，不存在时返回空串
func TraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(TraceIDKey).(string)
	return id
}

// NewBackgroundContext 为后台任务生成带前缀 trace_id 的 ctx
func NewBackgroundContext(prefix string) context.Context {
	return WithTraceID(context.Background(), prefix+"-"+uuid.NewString())
}
