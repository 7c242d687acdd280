package alertbus

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"overwatch/pkg/shared"
)

// Without an EmbeddedNATS leg, Publish falls back to delivering directly to
// local subscribers (bus.go's documented fallback), which is what makes the
// Bus usable in isolation for these tests.
func newTestBus() *Bus {
	return NewBus(nil)
}

func TestBus_SubscriberReceivesPublishedEvent(t *testing.T) {
	t.Parallel()

	bus := newTestBus()
	sub := bus.Subscribe()
	defer sub.Cancel()

	alert := &shared.Alert{ID: 1, Severity: "High"}
	bus.Publish(shared.PushEvent{Type: shared.EventTypeAlert, Data: alert})

	select {
	case payload := <-sub.Events():
		var evt shared.PushEvent
		require.NoError(t, json.Unmarshal(payload, &evt))
		assert.Equal(t, shared.EventTypeAlert, evt.Type)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBus_EventsArriveInPublicationOrder(t *testing.T) {
	t.Parallel()

	// spec.md §8 "Subscriber ordering": events on a single subscription
	// appear in publication order.
	bus := newTestBus()
	sub := bus.Subscribe()
	defer sub.Cancel()

	for i := 0; i < 5; i++ {
		bus.Publish(shared.PushEvent{Type: shared.EventTypeTrackUpdate, Data: &shared.Flight{ID: int64(i)}})
	}

	for i := 0; i < 5; i++ {
		select {
		case payload := <-sub.Events():
			var evt shared.PushEvent
			require.NoError(t, json.Unmarshal(payload, &evt))
			data, ok := evt.Data.(map[string]interface{})
			require.True(t, ok)
			assert.Equal(t, float64(i), data["id"])
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
}

func TestBus_SlowSubscriberDropsWithoutBlockingPublisher(t *testing.T) {
	t.Parallel()

	// spec.md §4.6/§8 "Non-blocking publish": a full sink drops the event
	// for that subscriber only; the publisher never waits.
	bus := newTestBus()
	sub := bus.Subscribe()
	defer sub.Cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer+10; i++ {
			bus.Publish(shared.PushEvent{Type: shared.EventTypeTrackUpdate, Data: &shared.Flight{ID: int64(i)}})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber sink")
	}

	assert.Greater(t, sub.DropCount(), int64(0))
}

func TestBus_DropIsolatedPerSubscriber(t *testing.T) {
	t.Parallel()

	bus := newTestBus()
	slow := bus.Subscribe()
	fast := bus.Subscribe()
	defer slow.Cancel()
	defer fast.Cancel()

	for i := 0; i < subscriberBuffer+5; i++ {
		bus.Publish(shared.PushEvent{Type: shared.EventTypeTrackUpdate, Data: &shared.Flight{ID: int64(i)}})
		// drain "fast" after every publish so it never fills, while "slow"
		// is never drained and starts dropping once its buffer is full.
		<-fast.Events()
	}

	assert.Equal(t, int64(0), fast.DropCount())
	assert.Greater(t, slow.DropCount(), int64(0))
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()

	bus := newTestBus()
	sub := bus.Subscribe()
	sub.Cancel()

	_, ok := <-sub.Events()
	assert.False(t, ok, "events channel should be closed after Cancel")
	assert.Equal(t, 0, bus.SubscriberCount())
}
