package bus

import (
	"context"
	"sync"
)

// Message is a broadcast notification. Type is an open enum.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type Handler func(ctx context.Context, msg Message)

// Bus delivers every published message to all current subscribers of one
// execution context. Delivery is synchronous and in subscription order.
type Bus struct {
	mu   sync.RWMutex
	next uint64
	subs map[uint64]Handler
	// order keeps delivery deterministic across map iteration.
	order []uint64
}

func New() *Bus {
	return &Bus{subs: make(map[uint64]Handler)}
}

// Subscribe registers h and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	b.subs[id] = h
	b.order = append(b.order, id)

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

// SubscribeTypes is Subscribe filtered to the given message types.
func (b *Bus) SubscribeTypes(h Handler, types ...string) func() {
	want := make(map[string]struct{}, len(types))
	for _, t := range types {
		want[t] = struct{}{}
	}

	return b.Subscribe(func(ctx context.Context, msg Message) {
		if _, ok := want[msg.Type]; ok {
			h(ctx, msg)
		}
	})
}

// Publish is fire-and-forget: handlers see the message, nothing is returned.
// Handlers may publish or subscribe without deadlocking.
func (b *Bus) Publish(ctx context.Context, msg Message) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.order))
	for _, id := range b.order {
		handlers = append(handlers, b.subs[id])
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, msg)
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subs, id)
	for i, v := range b.order {
		if v == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}
