package event

import (
	"Mallchat/internal/pkg/logger"
	"Mallchat/internal/pkg/worker"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type markPayload struct {
	MsgID uint64 `json:"msgId"`
}

func TestDispatch_RunsListenersInOrder(t *testing.T) {
	d := NewDispatcher()
	var order []string
	d.On(TopicMessageMark, "grant", func(ctx context.Context, evt *Event) error {
		order = append(order, "grant")
		return nil
	})
	d.On(TopicMessageMark, "push", func(ctx context.Context, evt *Event) error {
		order = append(order, "push")
		return nil
	})

	require.NoError(t, NewSyncBus(d).Publish(context.Background(), TopicMessageMark, "1", markPayload{MsgID: 1}))
	assert.Equal(t, []string{"grant", "push"}, order)
}

func TestDispatch_FailureDoesNotStopLaterListeners(t *testing.T) {
	d := NewDispatcher()
	var ran bool
	d.On(TopicUserOnline, "broken", func(ctx context.Context, evt *Event) error {
		return errors.New("db down")
	})
	d.On(TopicUserOnline, "push", func(ctx context.Context, evt *Event) error {
		ran = true
		return nil
	})

	err := NewSyncBus(d).Publish(context.Background(), TopicUserOnline, "1", nil)
	assert.Error(t, err)
	assert.True(t, ran)
}

func TestEvent_DecodeAndTrace(t *testing.T) {
	ctx := logger.WithTraceID(context.Background(), "trace-1")
	evt, err := New(ctx, TopicMessageMark, "9", markPayload{MsgID: 9})
	require.NoError(t, err)

	var p markPayload
	require.NoError(t, evt.Decode(&p))
	assert.Equal(t, uint64(9), p.MsgID)
	assert.Equal(t, "trace-1", logger.TraceID(evt.Context(context.Background())))
}

func TestLocalBus_DispatchesAsync(t *testing.T) {
	d := NewDispatcher()
	pool := worker.NewPool(2, 16)

	var wg sync.WaitGroup
	wg.Add(1)
	var got markPayload
	d.On(TopicMessageSend, "capture", func(ctx context.Context, evt *Event) error {
		defer wg.Done()
		return evt.Decode(&got)
	})

	require.NoError(t, NewLocalBus(d, pool).Publish(context.Background(), TopicMessageSend, "3", markPayload{MsgID: 3}))

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("event not dispatched")
	}
	pool.Close()
	assert.Equal(t, uint64(3), got.MsgID)
}
