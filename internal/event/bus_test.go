package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPublish_DeliversToTopicSubscribers(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var got []string
	bus.Subscribe("devices.updated", func(_ context.Context, e Event) {
		got = append(got, e.Topic)
	})
	bus.Subscribe("positions.updated", func(_ context.Context, _ Event) {
		t.Error("handler for another topic must not fire")
	})

	bus.Publish(context.Background(), Event{Topic: "devices.updated", Source: "test"})

	assert.Equal(t, []string{"devices.updated"}, got)
}

func TestPublish_SetsTimestamp(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var ts time.Time
	bus.Subscribe("t", func(_ context.Context, e Event) { ts = e.Timestamp })
	bus.Publish(context.Background(), Event{Topic: "t"})

	assert.False(t, ts.IsZero())
}

func TestSubscribeAll_ReceivesEveryTopic(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var topics []string
	bus.SubscribeAll(func(_ context.Context, e Event) { topics = append(topics, e.Topic) })

	bus.Publish(context.Background(), Event{Topic: "a"})
	bus.Publish(context.Background(), Event{Topic: "b"})

	assert.Equal(t, []string{"a", "b"}, topics)
}

func TestUnsubscribe_StopsDelivery(t *testing.T) {
	bus := NewBus(zap.NewNop())

	calls := 0
	unsubscribe := bus.Subscribe("t", func(_ context.Context, _ Event) { calls++ })
	unsubscribeAll := bus.SubscribeAll(func(_ context.Context, _ Event) { calls++ })

	bus.Publish(context.Background(), Event{Topic: "t"})
	unsubscribe()
	unsubscribeAll()
	bus.Publish(context.Background(), Event{Topic: "t"})

	assert.Equal(t, 2, calls)
}

func TestPublish_RecoversFromPanickingHandler(t *testing.T) {
	bus := NewBus(zap.NewNop())

	reached := false
	bus.Subscribe("t", func(_ context.Context, _ Event) { panic("boom") })
	bus.Subscribe("t", func(_ context.Context, _ Event) { reached = true })

	require.NotPanics(t, func() {
		bus.Publish(context.Background(), Event{Topic: "t"})
	})
	assert.True(t, reached, "handlers after a panicking one still run")
}

func TestPublishAsync_RunsHandlers(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var wg sync.WaitGroup
	wg.Add(2)
	bus.Subscribe("t", func(_ context.Context, _ Event) { wg.Done() })
	bus.SubscribeAll(func(_ context.Context, _ Event) { wg.Done() })

	bus.PublishAsync(context.Background(), Event{Topic: "t"})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("async handlers did not run")
	}
}
