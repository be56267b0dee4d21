package kafka

import (
	"Mallchat/internal/pkg/event"
	"context"
	log "log/slog"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
)

// EventHandler 消费事件主题并交给本地 Dispatcher
type EventHandler struct {
	dispatcher *event.Dispatcher
}

func NewEventHandler(dispatcher *event.Dispatcher) *EventHandler {
	return &EventHandler{dispatcher: dispatcher}
}

func (h *EventHandler) Setup(sarama.ConsumerGroupSession) error {
	log.Info("event consumer setup")
	return nil
}

func (h *EventHandler) Cleanup(sarama.ConsumerGroupSession) error {
	log.Info("event consumer cleanup")
	return nil
}

func (h *EventHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	return pullMessageBatch(session, claim, h.handle)
}

// handle 无法解析的消息直接跳过，重试也不会成功
func (h *EventHandler) handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var evt event.Event
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		log.ErrorContext(ctx, "unmarshal event error", "offset", msg.Offset, "err", err)
		return nil
	}
	return h.dispatcher.Dispatch(evt.Context(ctx), &evt)
}
