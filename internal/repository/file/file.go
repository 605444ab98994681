package file

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/kirinyoku/moodcafe/internal/store"
)

const ext = ".json"

// Store keeps one JSON document per key in a directory. Other processes
// sharing the directory see writes through the fsnotify-based Watch.
type Store struct {
	dir    string
	logger *slog.Logger

	mu      sync.Mutex
	written map[string][sha256.Size]byte
}

func New(dir string, logger *slog.Logger) (*Store, error) {
	const op = "file.New"

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Store{
		dir:     dir,
		logger:  logger,
		written: make(map[string][sha256.Size]byte),
	}, nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+ext)
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	const op = "file.Store.Get"

	b, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	return b, true, nil
}

// Set replaces the document with a temp file + rename so readers never
// observe a partial write.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	const op = "file.Store.Set"

	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	s.written[key] = sha256.Sum256(value)
	s.mu.Unlock()

	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Store) Watch(ctx context.Context, fn func(ctx context.Context, c store.Change)) error {
	const op = "file.Store.Watch"

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer w.Close()

	if err := w.Add(s.dir); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("file watcher error", slog.String("dir", s.dir), slog.Any("error", err))
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}

			key, ok := keyFromPath(ev.Name)
			if !ok {
				continue
			}

			b, err := os.ReadFile(ev.Name)
			if err != nil {
				continue
			}

			if s.ownWrite(key, b) {
				continue
			}

			fn(ctx, store.Change{Key: key, Value: b})
		}
	}
}

func (s *Store) ownWrite(key string, b []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum, ok := s.written[key]
	return ok && sum == sha256.Sum256(b)
}

func keyFromPath(p string) (string, bool) {
	base := filepath.Base(p)
	if !strings.HasSuffix(base, ext) {
		return "", false
	}

	key := strings.TrimSuffix(base, ext)
	if key == "" {
		return "", false
	}

	return key, true
}
