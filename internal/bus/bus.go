// Package bus is the in-process publish/subscribe channel for "item added"
// events.
//
// Delivery is at-most-once and live only: Publish reaches the subscribers
// attached at that moment, nothing is buffered for late subscribers, and
// nothing is replayed.
//
// Each subscriber owns an unbounded FIFO, so Publish never blocks and never
// drops. The open risk is a stalled subscriber growing its queue without
// limit; bounding the queue and disconnecting on overflow is deferred
// hardening. Subscription.Len exposes the depth so growth is observable.
package bus

import (
	"context"
	"iter"
	"sync"

	"github.com/roach88/todosync/internal/queue"
	"github.com/roach88/todosync/internal/todo"
)

// Bus fans events out to every live subscriber.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]*Subscription
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[uint64]*Subscription)}
}

// Publish delivers ev to every subscriber attached right now and returns
// the number of subscribers that received it.
func (b *Bus) Publish(ev todo.Event) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for _, sub := range b.subs {
		if sub.q.Push(ev) {
			delivered++
		}
	}
	return delivered
}

// Subscribe attaches a new subscriber. It sees only events published
// after this call returns.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{id: b.nextID, bus: b, q: queue.New[todo.Event]()}
	b.subs[sub.id] = sub
	return sub
}

// Subscribers returns the number of attached subscribers.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Bus) detach(id uint64) {
	b.mu.Lock()
	delete(b.subs, id)
	b.mu.Unlock()
}

// Subscription is one subscriber's live view of the bus.
type Subscription struct {
	id   uint64
	bus  *Bus
	q    *queue.Queue[todo.Event]
	once sync.Once
}

// Next blocks until an event arrives, the subscription is closed, or ctx
// is done. The bool is false in the latter two cases.
func (s *Subscription) Next(ctx context.Context) (todo.Event, bool) {
	for {
		if ev, ok := s.q.TryPop(); ok {
			return ev, true
		}
		if s.q.Closed() {
			return todo.Event{}, false
		}
		select {
		case <-ctx.Done():
			return todo.Event{}, false
		case <-s.q.Wait():
		}
	}
}

// Events returns the subscription as a lazy, infinite sequence. It ends
// when the subscription is closed or ctx is done.
//
//	for ev := range sub.Events(ctx) {
//	    ...
//	}
func (s *Subscription) Events(ctx context.Context) iter.Seq[todo.Event] {
	return func(yield func(todo.Event) bool) {
		for {
			ev, ok := s.Next(ctx)
			if !ok || !yield(ev) {
				return
			}
		}
	}
}

// Len returns the number of undelivered events.
func (s *Subscription) Len() int {
	return s.q.Len()
}

// Close detaches from the bus and discards pending events. Idempotent.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.detach(s.id)
		s.q.Close()
	})
}
