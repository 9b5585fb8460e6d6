package events

import (
	"log/slog"
	"sync"

	"github.com/whisperhq/whisperd/internal/model"
)

// Buffer size for each subscriber's channel
const subscriberBufferSize = 256

// Bus fans registry events out to in-process subscribers. Publishers call
// Publish after their storage write has committed; a mutation and its
// event form one logical unit, so nothing is published for failed writes.
type Bus struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	logger *slog.Logger
}

// Subscription receives events on C until Unsubscribe is called
type Subscription struct {
	C chan model.Event
}

// NewBus creates a new event bus
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		subs:   make(map[*Subscription]struct{}),
		logger: logger.With(slog.String("component", "event-bus")),
	}
}

// Subscribe registers a new subscriber
func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{
		C: make(chan model.Event, subscriberBufferSize),
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	count := len(b.subs)
	b.mu.Unlock()

	b.logger.Debug("subscriber added", slog.Int("total_subscribers", count))
	return sub
}

// Unsubscribe removes a subscriber and closes its channel
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	if _, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		close(sub.C)
	}
	count := len(b.subs)
	b.mu.Unlock()

	b.logger.Debug("subscriber removed", slog.Int("total_subscribers", count))
}

// Publish delivers an event to all current subscribers. Slow subscribers
// with a full buffer are skipped rather than blocking the publisher.
func (b *Bus) Publish(event model.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	dropped := 0
	for sub := range b.subs {
		select {
		case sub.C <- event:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		b.logger.Warn("event dropped - subscriber buffer full",
			slog.String("event_type", string(event.Type)),
			slog.Int("dropped", dropped))
	}
}
