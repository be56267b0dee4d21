package kafka

import (
	"Mallchat/internal/api/config"
	"Mallchat/internal/pkg/event"
	"context"
	log "log/slog"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
)

// ConsumerManager 管理事件消费者组
type ConsumerManager struct {
	consumer sarama.ConsumerGroup
	handler  sarama.ConsumerGroupHandler
	topic    string
}

func NewConsumerManager(cfg *config.Config, dispatcher *event.Dispatcher) (*ConsumerManager, error) {
	consumer, err := sarama.NewConsumerGroup(cfg.Kafka.Brokers, cfg.KafkaEventConsumer.GroupID, newSaramaConfig(cfg.Kafka))
	if err != nil {
		return nil, errors.Wrap(err, "create kafka consumer group")
	}
	return &ConsumerManager{
		consumer: consumer,
		handler:  NewEventHandler(dispatcher),
		topic:    cfg.KafkaEventConsumer.Topic,
	}, nil
}

// Start 阻塞直到 ctx 结束
func (m *ConsumerManager) Start(ctx context.Context) error {
	go func() {
		for err := range m.consumer.Errors() {
			log.Error("Error from consumer", "err", err)
		}
	}()

	log.Info("Event consumer started", "topic", m.topic)
	for {
		if err := m.consumer.Consume(ctx, []string{m.topic}, m.handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			log.Error("Error from consumer", "err", err)
		}
		if ctx.Err() != nil {
			break
		}
	}

	log.Info("Kafka Manager shutting down...")
	if err := m.consumer.Close(); err != nil {
		log.Error("Failed to close event consumer", "err", err)
		return err
	}
	return nil
}
