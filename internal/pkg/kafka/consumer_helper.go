package kafka

import (
	"context"
	log "log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"
)

const (
	batchSize     = 32
	batchTimeout  = 1 * time.Second
	maxRetries    = 3
	retryInterval = 100 * time.Millisecond
)

type LogicFunc func(ctx context.Context, msg *sarama.ConsumerMessage) error

// pullMessageBatch 拉取一批消息并执行业务逻辑
func pullMessageBatch(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim, logic LogicFunc) error {
	batch := make([]*sarama.ConsumerMessage, 0, batchSize)
	ticker := time.NewTicker(batchTimeout)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				if len(batch) > 0 {
					processBatch(session, batch, logic)
				}
				return nil
			}
			batch = append(batch, msg)
			if len(batch) >= batchSize {
				processBatch(session, batch, logic)
				batch = make([]*sarama.ConsumerMessage, 0, batchSize)
				ticker.Reset(batchTimeout)
			}
		case <-ticker.C:
			if len(batch) > 0 {
				processBatch(session, batch, logic)
				batch = make([]*sarama.ConsumerMessage, 0, batchSize)
			}
		case <-session.Context().Done():
			return nil
		}
	}
}

// processBatch 同一分区的消息按 key 串行，不同 key 并发；失败最多重试 maxRetries 次后丢弃
func processBatch(session sarama.ConsumerGroupSession, messages []*sarama.ConsumerMessage, logic LogicFunc) {
	groups := make(map[string][]*sarama.ConsumerMessage)
	order := make([]string, 0)
	for _, msg := range messages {
		key := string(msg.Key)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], msg)
	}

	var wg sync.WaitGroup
	for _, key := range order {
		wg.Add(1)
		go func(msgs []*sarama.ConsumerMessage) {
			defer wg.Done()
			for _, m := range msgs {
				if !processWithRetry(session.Context(), m, logic) {
					return
				}
			}
		}(groups[key])
	}
	wg.Wait()

	if len(messages) > 0 {
		lastMsg := messages[len(messages)-1]
		session.MarkMessage(lastMsg, "")
	}
}

// processWithRetry 返回 false 表示会话已结束
func processWithRetry(ctx context.Context, msg *sarama.ConsumerMessage, logic LogicFunc) bool {
	interval := retryInterval
	for attempt := 0; ; attempt++ {
		err := logic(ctx, msg)
		if err == nil {
			return true
		}
		if attempt >= maxRetries {
			log.ErrorContext(ctx, "drop message after retries",
				"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "err", err)
			return true
		}
		log.WarnContext(ctx, "process message error", "attempt", attempt+1, "err", err)

		select {
		case <-ctx.Done():
			return false
		case <-time.After(interval):
		}
		interval *= 2
	}
}
