package kafka

import (
	"Mallchat/internal/api/config"
	"Mallchat/internal/pkg/event"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	ctx    context.Context
	mu     sync.Mutex
	marked []*sarama.ConsumerMessage
}

func (s *fakeSession) Claims() map[string][]int32               { return nil }
func (s *fakeSession) MemberID() string                         { return "member-1" }
func (s *fakeSession) GenerationID() int32                      { return 1 }
func (s *fakeSession) MarkOffset(string, int32, int64, string)  {}
func (s *fakeSession) Commit()                                  {}
func (s *fakeSession) ResetOffset(string, int32, int64, string) {}
func (s *fakeSession) Context() context.Context                 { return s.ctx }
func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, msg)
}

type fakeClaim struct {
	ch chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Topic() string                            { return "mallchat-event" }
func (c *fakeClaim) Partition() int32                         { return 0 }
func (c *fakeClaim) InitialOffset() int64                     { return 0 }
func (c *fakeClaim) HighWaterMarkOffset() int64               { return 0 }
func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.ch }

var testKafkaConfig = config.KafkaConfig{
	Consumer: config.ConsumerConfig{
		SessionTimeout:    30,
		HeartbeatInterval: 3,
		RebalanceTimeout:  60,
		MaxProcessingTime: 10,
	},
}

func encodeEvent(t *testing.T, topic, key string, payload any) *sarama.ConsumerMessage {
	t.Helper()
	evt, err := event.New(context.Background(), topic, key, payload)
	require.NoError(t, err)
	data, err := json.Marshal(evt)
	require.NoError(t, err)
	return &sarama.ConsumerMessage{Topic: "mallchat-event", Key: []byte(key), Value: data}
}

func TestEventBus_Publish(t *testing.T) {
	producer := mocks.NewSyncProducer(t, newSaramaConfig(testKafkaConfig))
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var evt event.Event
		if err := json.Unmarshal(val, &evt); err != nil {
			return err
		}
		if evt.Topic != event.TopicMessageSend || evt.Key != "room:1" {
			return fmt.Errorf("unexpected event %s/%s", evt.Topic, evt.Key)
		}
		return nil
	})
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	bus := NewEventBusWithProducer(producer, "mallchat-event")
	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, event.TopicMessageSend, "room:1", map[string]uint64{"msgId": 1}))

	err := bus.Publish(ctx, event.TopicMessageSend, "room:1", map[string]uint64{"msgId": 2})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, bus.Close())
}

func TestEventHandler_DispatchesBatch(t *testing.T) {
	dispatcher := event.NewDispatcher()
	var got []uint64
	var mu sync.Mutex
	dispatcher.On(event.TopicMessageSend, "collect", func(_ context.Context, evt *event.Event) error {
		var p struct {
			MsgID uint64 `json:"msgId"`
		}
		if err := evt.Decode(&p); err != nil {
			return err
		}
		mu.Lock()
		got = append(got, p.MsgID)
		mu.Unlock()
		return nil
	})

	session := &fakeSession{ctx: context.Background()}
	claim := &fakeClaim{ch: make(chan *sarama.ConsumerMessage, 4)}
	claim.ch <- encodeEvent(t, event.TopicMessageSend, "room:1", map[string]uint64{"msgId": 1})
	claim.ch <- &sarama.ConsumerMessage{Key: []byte("room:1"), Value: []byte("not json")}
	claim.ch <- encodeEvent(t, event.TopicMessageSend, "room:1", map[string]uint64{"msgId": 2})
	close(claim.ch)

	handler := NewEventHandler(dispatcher)
	require.NoError(t, handler.ConsumeClaim(session, claim))

	assert.Equal(t, []uint64{1, 2}, got)
	require.Len(t, session.marked, 1)
	assert.Equal(t, "room:1", string(session.marked[0].Key))
}

func TestProcessBatch_RetryThenDrop(t *testing.T) {
	session := &fakeSession{ctx: context.Background()}
	var calls atomic.Int32
	logic := func(context.Context, *sarama.ConsumerMessage) error {
		calls.Add(1)
		return errors.New("always fail")
	}
	msgs := []*sarama.ConsumerMessage{{Key: []byte("k"), Offset: 7}}
	processBatch(session, msgs, logic)

	assert.EqualValues(t, maxRetries+1, calls.Load())
	require.Len(t, session.marked, 1)
	assert.EqualValues(t, 7, session.marked[0].Offset)
}

func TestProcessBatch_StopsWhenSessionEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	session := &fakeSession{ctx: ctx}
	var calls atomic.Int32
	logic := func(context.Context, *sarama.ConsumerMessage) error {
		calls.Add(1)
		return errors.New("fail")
	}
	msgs := []*sarama.ConsumerMessage{{Key: []byte("k")}, {Key: []byte("k")}}
	processBatch(session, msgs, logic)
	assert.EqualValues(t, 1, calls.Load())
}
