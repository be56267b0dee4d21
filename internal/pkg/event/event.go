package event

import (
	"Mallchat/internal/pkg/logger"
	"context"
	"time"

	"github.com/goccy/go-json"
)

// 领域事件主题
const (
	TopicMessageSend   = "message.send"
	TopicMessageRecall = "message.recall"
	TopicMessageMark   = "message.mark"
	TopicMemberChange  = "member.change"
	TopicFriendApply   = "friend.apply"
	TopicUserOnline    = "user.online"
	TopicUserOffline   = "user.offline"
)

// Event 事件信封，Payload 保持原始 JSON，本地总线与 Kafka 共用一种格式
type Event struct {
	Topic     string          `json:"topic"`
	Key       string          `json:"key"`
	TraceID   string          `json:"traceId,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	Payload   json.RawMessage `json:"payload"`
}

// New 构造事件，trace_id 取自 ctx
func New(ctx context.Context, topic, key string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Topic:     topic,
		Key:       key,
		TraceID:   logger.TraceID(ctx),
		CreatedAt: time.Now(),
		Payload:   data,
	}, nil
}

// Decode 解析 Payload
func (e *Event) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// Context 为事件处理派生带 trace_id 的 ctx
func (e *Event) Context(parent context.Context) context.Context {
	if e.TraceID == "" {
		return logger.WithTraceID(parent, "evt-"+e.Topic)
	}
	return logger.WithTraceID(parent, e.TraceID)
}

// Bus 事件总线
type Bus interface {
	Publish(ctx context.Context, topic, key string, payload any) error
}
