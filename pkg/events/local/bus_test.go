package local

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veesix-networks/eoax/pkg/events"
)

var _ events.Bus = (*Bus)(nil)

func syncBus(t *testing.T, b *Bus) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, b.Sync(ctx))
}

func TestPublishPreservesOrder(t *testing.T) {
	b := NewBus()
	defer b.Close()

	var mu sync.Mutex
	var got []int
	b.Subscribe("t", func(e events.Event) {
		mu.Lock()
		got = append(got, e.Data.(int))
		mu.Unlock()
	})

	for i := 0; i < 100; i++ {
		b.Publish("t", events.Event{Data: i})
	}
	syncBus(t, b)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestPublishFillsDefaults(t *testing.T) {
	b := NewBus()
	defer b.Close()

	var got events.Event
	b.Subscribe("topic", func(e events.Event) { got = e })
	b.Publish("topic", events.Event{})
	syncBus(t, b)

	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "topic", got.Type)
	assert.False(t, got.Timestamp.IsZero())
}

func TestSubscribersRunInSubscriptionOrder(t *testing.T) {
	b := NewBus()
	defer b.Close()

	var order []string
	b.Subscribe("t", func(events.Event) { order = append(order, "first") })
	b.SubscribeAll(func(events.Event) { order = append(order, "all") })
	b.Subscribe("t", func(events.Event) { order = append(order, "second") })

	b.Publish("t", events.Event{})
	b.Publish("other", events.Event{})
	syncBus(t, b)

	assert.Equal(t, []string{"first", "all", "second", "all"}, order)
}

func TestUnsubscribe(t *testing.T) {
	b := NewBus()
	defer b.Close()

	count := 0
	s := b.Subscribe("t", func(events.Event) { count++ })
	b.Publish("t", events.Event{})
	syncBus(t, b)
	s.Unsubscribe()
	b.Publish("t", events.Event{})
	syncBus(t, b)

	assert.Equal(t, 1, count)
	assert.Empty(t, b.Stats().Topics)
}

func TestHandlerPanicDoesNotStopDelivery(t *testing.T) {
	b := NewBus()
	defer b.Close()

	delivered := 0
	b.Subscribe("t", func(events.Event) { panic("boom") })
	b.Subscribe("t", func(events.Event) { delivered++ })

	b.Publish("t", events.Event{})
	b.Publish("t", events.Event{})
	syncBus(t, b)

	assert.Equal(t, 2, delivered)
}

func TestPublishAfterCloseIsDropped(t *testing.T) {
	b := NewBus()
	require.NoError(t, b.Close())

	b.Publish("t", events.Event{})
	stats := b.Stats()
	assert.Equal(t, uint64(1), stats.Dropped)
	assert.Equal(t, uint64(0), stats.Published)
}

func TestDebugTopics(t *testing.T) {
	b := NewBus()
	defer b.Close()

	b.SetDebugTopics([]string{"b", "a"})
	assert.Equal(t, []string{"a", "b"}, b.DebugTopics())

	b.SetDebugTopics(nil)
	assert.Nil(t, b.DebugTopics())
}
