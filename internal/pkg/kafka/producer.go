package kafka

import (
	"Mallchat/internal/api/config"
	"Mallchat/internal/pkg/event"
	"context"
	log "log/slog"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// EventBus 把领域事件写入 Kafka，由 ConsumerManager 在各实例上分发
type EventBus struct {
	producer sarama.SyncProducer
	topic    string
}

var _ event.Bus = (*EventBus)(nil)

func NewEventBus(cfg *config.Config) (*EventBus, error) {
	producer, err := sarama.NewSyncProducer(cfg.Kafka.Brokers, newSaramaConfig(cfg.Kafka))
	if err != nil {
		return nil, errors.Wrap(err, "create kafka producer")
	}
	return NewEventBusWithProducer(producer, cfg.KafkaEventConsumer.Topic), nil
}

func NewEventBusWithProducer(producer sarama.SyncProducer, topic string) *EventBus {
	return &EventBus{producer: producer, topic: topic}
}

func (b *EventBus) Publish(ctx context.Context, topic, key string, payload any) error {
	evt, err := event.New(ctx, topic, key, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: b.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
	}
	partition, offset, err := b.producer.SendMessage(msg)
	if err != nil {
		return errors.Wrapf(err, "publish event %s", topic)
	}
	log.DebugContext(ctx, "event published", "topic", topic, "key", key, "partition", partition, "offset", offset)
	return nil
}

func (b *EventBus) Close() error {
	return b.producer.Close()
}
