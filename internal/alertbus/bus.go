package alertbus

import (
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"overwatch/pkg/shared"
)

const (
	subscriberBuffer = 64
	dropGraceWindow  = 30 * time.Second
)

// Subscription is the cancellable handle returned by Subscribe (spec.md
// §4.6 "Bus"). The id is a fresh uuid per Subscribe call rather than a
// sequence number so a subscriber handle stays unique and log-correlatable
// across process restarts and horizontally-scaled API instances, matching the teacher's
// use of uuid for entity/organization ids rather than sequence counters.
type Subscription struct {
	id     string
	events chan []byte
	drops  atomic.Int64
	full   atomic.Int64 // unix nanos of when the sink first became full; 0 = not full
	bus    *Bus
}

func (s *Subscription) ID() string            { return s.id }
func (s *Subscription) Events() <-chan []byte { return s.events }
func (s *Subscription) DropCount() int64      { return s.drops.Load() }

func (s *Subscription) Cancel() {
	s.bus.unsubscribe(s.id)
}

// Bus is the publish-subscribe fan-out for alert and track-update events.
// Publish never blocks on a subscriber: a full subscriber sink drops the
// event for that subscriber only (spec.md §4.6, §5).
type Bus struct {
	mu   sync.RWMutex
	subs map[string]*Subscription
	nats *EmbeddedNATS // optional durable leg; nil disables it
}

func NewBus(nats *EmbeddedNATS) *Bus {
	return &Bus{subs: make(map[string]*Subscription), nats: nats}
}

func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription{id: uuid.NewString(), events: make(chan []byte, subscriberBuffer), bus: b}
	b.subs[sub.id] = sub
	return sub
}

func (b *Bus) unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[id]; ok {
		close(sub.events)
		delete(b.subs, id)
	}
}

// Publish hands alert events (Data is a *shared.Alert) to the durable NATS
// leg, whose FanoutWorker loops them back into deliverRaw. Every other event,
// such as track updates, is delivered to local subscribers directly, as is
// an alert event whose NATS publish fails. When no NATS leg is configured
// (tests, or a deliberately standalone deployment) every event is delivered
// directly, so the Bus still works in isolation. It never blocks on a slow
// subscriber either way.
func (b *Bus) Publish(event shared.PushEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("alertbus: failed to marshal event: %v", err)
		return
	}

	if b.nats != nil {
		if a, ok := event.Data.(*shared.Alert); ok {
			if err := b.nats.PublishAlert(event, a); err == nil {
				return
			}
			log.Printf("alertbus: nats publish failed, delivering locally: %v", err)
		}
	}

	b.deliverRaw(payload)
}

// deliverRaw fans an already-marshaled payload out to local subscribers
// without touching the NATS leg, used by FanoutWorker to avoid re-publishing
// what it just consumed.
func (b *Bus) deliverRaw(payload []byte) {
	now := time.Now()

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		select {
		case sub.events <- payload:
			sub.full.Store(0)
		default:
			sub.drops.Add(1)
			if sub.full.Load() == 0 {
				sub.full.Store(now.UnixNano())
			}
		}
	}
}

// OverdueSubscriptions returns subscribers whose sink has been continuously
// full for longer than the grace window, candidates for disconnection
// (spec.md §4.6 "disconnected").
func (b *Bus) OverdueSubscriptions() []*Subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var overdue []*Subscription
	now := time.Now()
	for _, sub := range b.subs {
		since := sub.full.Load()
		if since != 0 && now.Sub(time.Unix(0, since)) > dropGraceWindow {
			overdue = append(overdue, sub)
		}
	}
	return overdue
}

func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
