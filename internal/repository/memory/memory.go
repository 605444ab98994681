package memory

import (
	"context"
	"sync"

	"github.com/kirinyoku/moodcafe/internal/store"
)

const changeBuffer = 256

// Shared is one storage area visible to several execution contexts, the way
// browser tabs of one origin share localStorage.
type Shared struct {
	mu       sync.Mutex
	data     map[string][]byte
	contexts map[int]*Context
	next     int
}

func NewShared() *Shared {
	return &Shared{
		data:     make(map[string][]byte),
		contexts: make(map[int]*Context),
	}
}

// Context opens a new execution context bound to the shared area.
func (s *Shared) Context() *Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := &Context{
		shared:  s,
		id:      s.next,
		changes: make(chan store.Change, changeBuffer),
	}
	s.contexts[c.id] = c
	s.next++

	return c
}

// Context is a store.Backend for a single execution context. Writes made
// through it are announced to every other context of the same Shared.
type Context struct {
	shared  *Shared
	id      int
	changes chan store.Change
}

func (c *Context) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.shared.mu.Lock()
	defer c.shared.mu.Unlock()

	v, ok := c.shared.data[key]
	if !ok {
		return nil, false, nil
	}

	return clone(v), true, nil
}

func (c *Context) Set(_ context.Context, key string, value []byte) error {
	c.shared.mu.Lock()
	defer c.shared.mu.Unlock()

	c.shared.data[key] = clone(value)

	for id, other := range c.shared.contexts {
		if id == c.id {
			continue
		}
		// best effort: a context that stopped draining loses notifications
		select {
		case other.changes <- store.Change{Key: key, Value: clone(value)}:
		default:
		}
	}

	return nil
}

func (c *Context) Watch(ctx context.Context, fn func(ctx context.Context, ch store.Change)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ch := <-c.changes:
			fn(ctx, ch)
		}
	}
}

// Deliver synchronously hands every queued notification to fn and returns
// how many were delivered.
func (c *Context) Deliver(ctx context.Context, fn func(ctx context.Context, ch store.Change)) int {
	n := 0
	for {
		select {
		case ch := <-c.changes:
			fn(ctx, ch)
			n++
		default:
			return n
		}
	}
}

// Close detaches the context; it receives no further notifications.
func (c *Context) Close() {
	c.shared.mu.Lock()
	defer c.shared.mu.Unlock()

	delete(c.shared.contexts, c.id)
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp
}
