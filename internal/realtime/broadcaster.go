package realtime

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is the envelope pushed over a live channel.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent builds an event envelope stamped with a fresh id and the current
// time.
func NewEvent(eventType string, data any) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// subscriberBuffer is the per-subscriber channel depth. A subscriber that
// falls this far behind starts losing events; the persisted record is the
// catch-up path.
const subscriberBuffer = 16

// Broadcaster fans events out to every subscriber of a topic. Delivery is
// fire-and-forget: there are no acknowledgements and no retries, and a
// subscriber whose buffer is full is skipped silently.
type Broadcaster struct {
	registry *Registry

	mu   sync.RWMutex
	subs map[string]map[int64][]chan Event
}

// NewBroadcaster creates a broadcaster that consults the given registry for
// topic membership.
func NewBroadcaster(registry *Registry) *Broadcaster {
	return &Broadcaster{
		registry: registry,
		subs:     make(map[string]map[int64][]chan Event),
	}
}

// Subscribe opens a live channel for the user on the topic and registers the
// membership. The returned cancel func closes the channel and unregisters;
// it is safe to call more than once.
func (b *Broadcaster) Subscribe(topicID string, userID int64) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	members, ok := b.subs[topicID]
	if !ok {
		members = make(map[int64][]chan Event)
		b.subs[topicID] = members
	}
	members[userID] = append(members[userID], ch)
	b.mu.Unlock()

	b.registry.Register(topicID, userID)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			channels := b.subs[topicID][userID]
			for i, c := range channels {
				if c == ch {
					channels = append(channels[:i], channels[i+1:]...)
					break
				}
			}
			if len(channels) == 0 {
				delete(b.subs[topicID], userID)
				if len(b.subs[topicID]) == 0 {
					delete(b.subs, topicID)
				}
			} else {
				b.subs[topicID][userID] = channels
			}
			b.mu.Unlock()

			// The user stays registered while they hold other streams on
			// the same topic.
			b.mu.RLock()
			_, stillSubscribed := b.subs[topicID][userID]
			b.mu.RUnlock()
			if !stillSubscribed {
				b.registry.Unregister(topicID, userID)
			}

			close(ch)
		})
	}

	return ch, cancel
}

// Broadcast sends the event to every member currently registered on the
// topic. A full subscriber buffer drops the event for that subscriber; the
// recipient reconciles via persisted records on next retrieval.
func (b *Broadcaster) Broadcast(topicID string, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for userID, channels := range b.subs[topicID] {
		if !b.registry.IsConnected(topicID, userID) {
			continue
		}
		for _, ch := range channels {
			select {
			case ch <- event:
			default:
				slog.Debug("dropped event for slow subscriber",
					"topic", topicID, "user_id", userID, "event_type", event.Type)
			}
		}
	}
}
