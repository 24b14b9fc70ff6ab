package event

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const subscriberBuffer = 256

type subscription struct {
	name    string
	ch      chan Event
	dropped atomic.Int64
}

// InMemoryBus fans events out to buffered subscriber channels inside one
// process. The zero value is not usable; call NewBus.
type InMemoryBus struct {
	mu     sync.RWMutex
	subs   map[*subscription]struct{}
	closed bool
}

func NewBus() *InMemoryBus {
	return &InMemoryBus{subs: make(map[*subscription]struct{})}
}

// Publish stamps e with an id and timestamp when missing and hands it to
// every subscriber. It never blocks: a subscriber with a full buffer misses
// the event.
func (b *InMemoryBus) Publish(e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		select {
		case sub.ch <- e:
		default:
			sub.dropped.Add(1)
			slog.Warn("event dropped", "subscriber", sub.name, "type", e.Type, "event_id", e.ID)
		}
	}
}

// Subscribe registers a named consumer. The returned function closes the
// channel; calling it more than once is harmless. Subscribing to a closed bus
// yields an already-closed channel.
func (b *InMemoryBus) Subscribe(name string) (<-chan Event, func()) {
	sub := &subscription{name: name, ch: make(chan Event, subscriberBuffer)}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	return sub.ch, func() { b.remove(sub) }
}

func (b *InMemoryBus) remove(sub *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub]; !ok {
		return
	}
	delete(b.subs, sub)
	close(sub.ch)
	b.logDrops(sub)
}

// Close ends every subscription. Later publishes are discarded.
func (b *InMemoryBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		delete(b.subs, sub)
		close(sub.ch)
		b.logDrops(sub)
	}
}

func (b *InMemoryBus) logDrops(sub *subscription) {
	if n := sub.dropped.Load(); n > 0 {
		slog.Warn("subscriber missed events", "subscriber", sub.name, "dropped", n)
	}
}

// Dropped counts events lost by the live subscribers.
func (b *InMemoryBus) Dropped() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var total int64
	for sub := range b.subs {
		total += sub.dropped.Load()
	}
	return total
}
