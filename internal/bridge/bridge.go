package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kirinyoku/moodcafe/internal/bus"
	"github.com/kirinyoku/moodcafe/internal/domain"
	"github.com/kirinyoku/moodcafe/internal/store"
)

// Decoder turns a raw document into the payload re-broadcast locally.
type Decoder func(raw []byte) (any, error)

type route struct {
	msgType string
	decode  Decoder
}

// Bridge relays changes written by other execution contexts into this one:
// it mirrors the new document into the local store and re-publishes it on
// the local bus with the same type a local write would have used.
type Bridge struct {
	store  *store.Store
	bus    *bus.Bus
	logger *slog.Logger

	mu     sync.RWMutex
	routes map[string]route
}

func New(s *store.Store, b *bus.Bus, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Bridge{
		store:  s,
		bus:    b,
		logger: logger,
		routes: make(map[string]route),
	}
}

// Watch registers key; changes to unregistered keys are ignored.
func (br *Bridge) Watch(key, msgType string, decode Decoder) {
	br.mu.Lock()
	defer br.mu.Unlock()

	br.routes[key] = route{msgType: msgType, decode: decode}
}

// WatchLedgers registers the booking and admin documents.
func (br *Bridge) WatchLedgers() {
	br.Watch(store.KeyBookings, domain.TypeBookingDataUpdate, DecodeBookingData)
	br.Watch(store.KeyAdmin, domain.TypeDataUpdate, DecodeAdminData)
}

// Handle processes one external change notification. A payload that fails
// to parse is logged and dropped; local state is left untouched.
func (br *Bridge) Handle(ctx context.Context, c store.Change) {
	br.mu.RLock()
	r, ok := br.routes[c.Key]
	br.mu.RUnlock()
	if !ok {
		return
	}

	payload, err := r.decode(c.Value)
	if err != nil {
		br.logger.Warn("dropping sync notification",
			slog.String("key", c.Key),
			slog.Any("error", fmt.Errorf("%w: %v", domain.ErrSyncParse, err)),
		)
		return
	}

	br.store.Mirror(c.Key, c.Value)
	br.bus.Publish(ctx, bus.Message{Type: r.msgType, Payload: payload})
}

// Run consumes the backend change feed until ctx is done.
func (br *Bridge) Run(ctx context.Context) error {
	const op = "bridge.Bridge.Run"

	br.logger.Info("sync bridge started")

	if err := br.store.Backend().Watch(ctx, br.Handle); err != nil && ctx.Err() == nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func DecodeBookingData(raw []byte) (any, error) {
	var data domain.BookingData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func DecodeAdminData(raw []byte) (any, error) {
	var data domain.AdminData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return domain.DataUpdatePayload{Data: data}, nil
}
