// Package bus is the in-process publish/subscribe register for live update
// events. Callbacks for one event run synchronously in registration order;
// a failing callback is isolated from the rest and from the publisher.
package bus

import (
	"sync"

	recoverpkg "github.com/taskpond/realtime/recover"
)

var _ IBus = (*Bus)(nil)

// Handler receives the payload of a published event.
type Handler func(payload any)

// IBus defines the event bus contract.
type IBus interface {
	Subscribe(name string, fn Handler) (cancel func())
	Publish(name string, payload any)
	SubscriberCount(name string) int
}

// subscriber pairs a handler with a removal id.
type subscriber struct {
	id uint64
	fn Handler
}

// Bus maps event names to ordered subscriber lists.
type Bus struct {
	mu   sync.Mutex
	seq  uint64
	subs map[string][]subscriber
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		subs: make(map[string][]subscriber),
	}
}

// Subscribe registers a callback under name and returns a cancel capability
// that removes exactly that registration. Cancel is idempotent.
func (b *Bus) Subscribe(name string, fn Handler) func() {
	b.mu.Lock()
	b.seq++
	id := b.seq
	b.subs[name] = append(b.subs[name], subscriber{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.subs[name]
		for i, s := range list {
			if s.id == id {
				b.subs[name] = append(list[:i:i], list[i+1:]...)
				if len(b.subs[name]) == 0 {
					delete(b.subs, name)
				}
				return
			}
		}
	}
}

// Publish invokes every registered callback for name in registration order.
// A panicking callback is logged and skipped; remaining callbacks still run.
// Publishing with zero subscribers is a no-op.
func (b *Bus) Publish(name string, payload any) {
	b.mu.Lock()
	list := append([]subscriber(nil), b.subs[name]...)
	b.mu.Unlock()

	for _, s := range list {
		b.invoke(name, s.fn, payload)
	}
}

func (b *Bus) invoke(name string, fn Handler, payload any) {
	defer recoverpkg.RecoverWithContext("bus", name, payload)
	fn(payload)
}

// SubscriberCount returns the number of callbacks registered for name.
func (b *Bus) SubscriberCount(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[name])
}
