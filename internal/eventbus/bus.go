// Package eventbus implements the §5/§9 broadcast event bus: "a slow
// subscriber must never stall the executor... bounded per-subscriber
// buffer with a lag/dropped signal." It is grounded on the teacher's
// ObserverManager (internal/infrastructure/monitoring/observer.go), which
// fans events out to every observer synchronously on the publisher's own
// goroutine — exactly the stall risk this package exists to avoid. The
// Notify-by-broadcast shape is kept; delivery is made asynchronous and
// bounded.
package eventbus

import (
	"sync"
	"sync/atomic"

	"github.com/flowcore/flowcore/internal/domain"
)

// DefaultBufferSize is the per-subscriber channel capacity.
const DefaultBufferSize = 256

// Subscription is a live handle a caller drains via Events() and releases
// via Close().
type Subscription struct {
	id      uint64
	events  chan domain.Event
	dropped atomic.Uint64
	bus     *Bus
}

// Events returns the channel to range over for delivered events. The
// channel is closed when the subscription is closed.
func (s *Subscription) Events() <-chan domain.Event { return s.events }

// Dropped returns the number of events dropped for this subscriber because
// its buffer was full — the "lag/dropped" signal §9 requires.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

// Close unregisters the subscription and closes its channel. Safe to call
// more than once.
func (s *Subscription) Close() { s.bus.unsubscribe(s.id) }

// Bus is a multi-producer, multi-subscriber broadcaster. Publish never
// blocks on a slow subscriber: a full buffer increments that subscriber's
// drop counter instead of blocking the publisher.
type Bus struct {
	mu         sync.RWMutex
	subs       map[uint64]*Subscription
	nextID     uint64
	bufferSize int
}

func New() *Bus { return NewWithBufferSize(DefaultBufferSize) }

func NewWithBufferSize(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Bus{subs: make(map[uint64]*Subscription), bufferSize: bufferSize}
}

// Subscribe registers a new subscriber and returns its handle.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &Subscription{id: b.nextID, events: make(chan domain.Event, b.bufferSize), bus: b}
	b.subs[sub.id] = sub
	return sub
}

func (b *Bus) unsubscribe(id uint64) {
	b.mu.Lock()
	sub, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
	}
	b.mu.Unlock()
	if ok {
		close(sub.events)
	}
}

// Publish fans event out to every current subscriber without blocking.
func (b *Bus) Publish(event domain.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		select {
		case sub.events <- event:
		default:
			sub.dropped.Add(1)
		}
	}
}

// SubscriberCount reports the current number of live subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
