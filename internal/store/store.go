package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kirinyoku/moodcafe/internal/domain"
	"golang.org/x/sync/singleflight"
)

// Keys of the two persisted documents. Each ledger owns exactly one.
const (
	KeyBookings = "moodCafeBookings"
	KeyAdmin    = "moodCafeAdminData"
)

// Change is one element of a backend's change feed.
type Change struct {
	Key   string
	Value []byte
}

// Backend is the durable side of the store. Watch blocks until ctx is done
// and reports only changes written by other execution contexts.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Watch(ctx context.Context, fn func(ctx context.Context, c Change)) error
}

// Store keeps a context-local mirror of every document it has read or
// written in front of a Backend. Reads are served from the mirror, so a
// remote write becomes visible only after it is mirrored in.
type Store struct {
	backend Backend
	logger  *slog.Logger

	mu     sync.RWMutex
	mirror map[string][]byte
	sf     singleflight.Group
}

func New(backend Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Store{
		backend: backend,
		logger:  logger,
		mirror:  make(map[string][]byte),
	}
}

func (s *Store) Backend() Backend {
	return s.backend
}

// Raw returns the serialized document for key.
func (s *Store) Raw(ctx context.Context, key string) ([]byte, bool, error) {
	const op = "store.Store.Raw"

	s.mu.RLock()
	v, ok := s.mirror[key]
	s.mu.RUnlock()
	if ok {
		return v, true, nil
	}

	res, err, _ := s.sf.Do(key, func() (any, error) {
		b, ok, err := s.backend.Get(ctx, key)
		if err != nil || !ok {
			return nil, err
		}

		s.mu.Lock()
		if cur, exists := s.mirror[key]; exists {
			b = cur
		} else {
			s.mirror[key] = b
		}
		s.mu.Unlock()

		return b, nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	b, _ := res.([]byte)
	if b == nil {
		return nil, false, nil
	}

	return b, true, nil
}

// Exists reports whether key holds any data.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := s.Raw(ctx, key)
	return ok, err
}

// Save serializes v and fully rewrites key. Concurrent writers from other
// contexts are last-write-wins.
func (s *Store) Save(ctx context.Context, key string, v any) error {
	const op = "store.Store.Save"

	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.backend.Set(ctx, key, b); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	s.mirror[key] = b
	s.mu.Unlock()

	return nil
}

// Mirror replaces the local copy of key without touching the backend.
func (s *Store) Mirror(key string, raw []byte) {
	cp := make([]byte, len(raw))
	copy(cp, raw)

	s.mu.Lock()
	s.mirror[key] = cp
	s.mu.Unlock()
}

// Load decodes the document under key. Absent, empty, null or malformed
// data yields def(); only backend failures are returned as errors.
func Load[T any](ctx context.Context, s *Store, key string, def func() T) (T, error) {
	const op = "store.Load"

	raw, ok, err := s.Raw(ctx, key)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%s: %w", op, err)
	}

	trimmed := bytes.TrimSpace(raw)
	if !ok || len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return def(), nil
	}

	var out T
	if err := json.Unmarshal(trimmed, &out); err != nil {
		s.logger.Warn("using default data",
			slog.String("key", key),
			slog.Any("error", fmt.Errorf("%w: %v", domain.ErrMalformedStore, err)),
		)
		return def(), nil
	}

	return out, nil
}
