// Package eventbus carries dispatch lifecycle events between the engine
// and in-process listeners.
package eventbus

import "sync"

// Event is any value published on the bus.
type Event any

// EventBus is the engine-facing side of the bus. The dispatch engine
// publishes lifecycle events on it; the messaging layer and tests
// subscribe.
type EventBus interface {
	Publish(Event)
	Subscribe(opts ...SubOption) *Subscription
	Close()
}

// SubOption tunes a subscription at creation time.
type SubOption func(*Subscription)

// WithBuffer sets the subscription's channel capacity. Values below 1
// are raised to 1.
func WithBuffer(n int) SubOption {
	return func(s *Subscription) {
		if n < 1 {
			n = 1
		}
		s.buf = n
	}
}

const defaultBuffer = 16

// Subscription is one listener's attachment to the bus. Delivery is
// best effort: a subscriber with a full buffer misses the event rather
// than stalling dispatch, and the miss is counted.
type Subscription struct {
	bus  *Bus
	buf  int
	ch   chan Event
	once sync.Once

	mu      sync.Mutex
	dropped uint64
}

// C returns the receive channel. It is closed when the subscription is
// cancelled or the bus shuts down.
func (s *Subscription) C() <-chan Event { return s.ch }

// Dropped reports how many events this subscriber missed to a full
// buffer.
func (s *Subscription) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Cancel detaches the subscription and closes its channel. Safe to call
// more than once.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.bus.remove(s)
		close(s.ch)
	})
}

// Bus is the in-process EventBus implementation.
type Bus struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	closed bool
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[*Subscription]struct{})}
}

// Publish offers the event to every live subscription without blocking.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for s := range b.subs {
		select {
		case s.ch <- e:
		default:
			s.mu.Lock()
			s.dropped++
			s.mu.Unlock()
		}
	}
}

// Subscribe attaches a new listener. Subscribing to a closed bus yields
// an already-cancelled subscription whose channel is closed.
func (b *Bus) Subscribe(opts ...SubOption) *Subscription {
	s := &Subscription{bus: b, buf: defaultBuffer}
	for _, opt := range opts {
		opt(s)
	}
	s.ch = make(chan Event, s.buf)
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		s.once.Do(func() { close(s.ch) })
		return s
	}
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

func (b *Bus) remove(s *Subscription) {
	b.mu.Lock()
	delete(b.subs, s)
	b.mu.Unlock()
}

// Close shuts the bus down and closes every subscriber channel.
// Subsequent publishes are discarded.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = make(map[*Subscription]struct{})
	b.mu.Unlock()
	for s := range subs {
		s.once.Do(func() { close(s.ch) })
	}
}
