package monitor

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/kirinyoku/moodcafe/internal/bus"
	"github.com/kirinyoku/moodcafe/internal/domain"
)

// OrderSource provides the synchronized order list popular items are
// replayed from.
type OrderSource interface {
	Data(ctx context.Context) (domain.AdminData, error)
}

type recompute uint8

const (
	recomputeMenu recompute = iota + 1
	recomputeOrders
	recomputeUsers
	recomputePageViews
	recomputeErrors
)

// Monitor aggregates live metrics from ledger broadcasts. It never
// broadcasts from an input handler: inputs only queue work, and Tick turns
// everything queued since the previous tick into one metricsUpdate.
type Monitor struct {
	cfg    Config
	orders OrderSource
	bus    *bus.Bus

	mu          sync.Mutex
	activeUsers map[string]struct{}
	pageViews   int64
	peakHours   [24]int
	popular     []domain.ItemCount
	errors      []domain.ErrorEntry

	queue map[recompute]struct{}

	pending    *bus.Message
	pendingDue time.Time

	lastPageView time.Time
	lastError    time.Time
	lastCleanup  time.Time
	updatedAt    time.Time
}

func New(orders OrderSource, b *bus.Bus, cfg Config) *Monitor {
	cfg = cfg.withDefaults()

	return &Monitor{
		cfg:         cfg,
		orders:      orders,
		bus:         b,
		activeUsers: make(map[string]struct{}),
		popular:     []domain.ItemCount{},
		errors:      []domain.ErrorEntry{},
		queue:       make(map[recompute]struct{}),
		lastCleanup: cfg.Clock.Now(),
	}
}

// Subscribe feeds every broadcast on b into HandleUpdate.
func (m *Monitor) Subscribe(b *bus.Bus) func() {
	return b.Subscribe(m.HandleUpdate)
}

// HandleUpdate accepts a ledger broadcast. Admin changes are debounced:
// a change replaces any change still waiting, and is processed once no
// newer one has arrived for Config.Debounce. User activity is applied at
// once. Other types are ignored.
func (m *Monitor) HandleUpdate(_ context.Context, msg bus.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch msg.Type {
	case domain.TypeUserActivity:
		m.trackActivity(msg.Payload)
	case domain.TypeMenuAdd, domain.TypeMenuUpdate, domain.TypeMenuRemove,
		domain.TypeOrderAdd, domain.TypeDataUpdate,
		domain.TypeUserAdd, domain.TypeUserUpdate, domain.TypeUserRemove:
		cp := msg
		m.pending = &cp
		m.pendingDue = m.cfg.Clock.Now().Add(m.cfg.Debounce)
	}
}

// RecordPageView counts a page view unless one was counted less than
// Config.PageViewThrottle ago. Dropped views are not queued.
func (m *Monitor) RecordPageView() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.cfg.Clock.Now()
	if !m.lastPageView.IsZero() && now.Sub(m.lastPageView) < m.cfg.PageViewThrottle {
		return false
	}

	m.lastPageView = now
	m.pageViews++
	m.queue[recomputePageViews] = struct{}{}

	return true
}

// RecordError logs msg unless another error was logged within
// Config.ErrorCooldown.
func (m *Monitor) RecordError(msg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.cfg.Clock.Now()
	if !m.lastError.IsZero() && now.Sub(m.lastError) <= m.cfg.ErrorCooldown {
		return false
	}

	m.lastError = now
	m.errors = append(m.errors, domain.ErrorEntry{Timestamp: now, Message: msg})
	if len(m.errors) > m.cfg.MaxErrors {
		m.errors = m.errors[len(m.errors)-m.cfg.MaxErrors:]
	}
	m.queue[recomputeErrors] = struct{}{}

	return true
}

// Tick runs one scheduler pass and reports whether metrics were broadcast.
func (m *Monitor) Tick(ctx context.Context) bool {
	now := m.cfg.Clock.Now()

	m.mu.Lock()
	if m.pending != nil && !now.Before(m.pendingDue) {
		msg := *m.pending
		m.pending = nil
		m.process(msg, now)
	}

	if now.Sub(m.lastCleanup) >= m.cfg.CleanupInterval {
		m.cleanup(now)
		m.lastCleanup = now
	}

	if len(m.queue) == 0 {
		m.mu.Unlock()
		return false
	}

	_, menu := m.queue[recomputeMenu]
	_, orders := m.queue[recomputeOrders]
	clear(m.queue)
	m.mu.Unlock()

	var popular []domain.ItemCount
	if menu || orders {
		popular = m.popularItems(ctx)
	}

	m.mu.Lock()
	if popular != nil {
		m.popular = popular
	}
	m.updatedAt = now
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	m.bus.Publish(ctx, bus.Message{Type: domain.TypeMetricsUpdate, Payload: snapshot})

	return true
}

// Run drives Tick every Config.Frame until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := m.cfg.Clock.NewTicker(m.cfg.Frame)
	defer ticker.Stop()

	m.cfg.Logger.Info("metrics monitor started", slog.Duration("frame", m.cfg.Frame))

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			m.Tick(ctx)
		}
	}
}

func (m *Monitor) Snapshot() domain.Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.snapshotLocked()
}

func (m *Monitor) snapshotLocked() domain.Metrics {
	popular := make([]domain.ItemCount, len(m.popular))
	copy(popular, m.popular)

	from := max(0, len(m.errors)-m.cfg.RecentErrors)
	recent := make([]domain.ErrorEntry, len(m.errors)-from)
	copy(recent, m.errors[from:])

	return domain.Metrics{
		ActiveUsers:  len(m.activeUsers),
		PageViews:    m.pageViews,
		PeakHours:    m.peakHours,
		PopularItems: popular,
		RecentErrors: recent,
		UpdatedAt:    m.updatedAt,
	}
}

func (m *Monitor) process(msg bus.Message, now time.Time) {
	switch msg.Type {
	case domain.TypeMenuAdd, domain.TypeMenuUpdate, domain.TypeMenuRemove:
		m.queue[recomputeMenu] = struct{}{}
	case domain.TypeOrderAdd:
		m.peakHours[now.Hour()]++
		m.queue[recomputeOrders] = struct{}{}
	case domain.TypeDataUpdate:
		m.queue[recomputeOrders] = struct{}{}
	case domain.TypeUserAdd, domain.TypeUserUpdate, domain.TypeUserRemove:
		m.queue[recomputeUsers] = struct{}{}
	}
}

func (m *Monitor) trackActivity(payload any) {
	var a domain.UserActivity
	switch p := payload.(type) {
	case domain.UserActivity:
		a = p
	case *domain.UserActivity:
		if p == nil {
			return
		}
		a = *p
	default:
		return
	}

	switch a.Type {
	case domain.ActivityLogin:
		m.activeUsers[a.UserID] = struct{}{}
	case domain.ActivityLogout:
		delete(m.activeUsers, a.UserID)
	default:
		return
	}
	m.queue[recomputeUsers] = struct{}{}
}

// cleanup drops errors older than the retention window and enforces the cap.
func (m *Monitor) cleanup(now time.Time) {
	kept := m.errors[:0]
	for _, e := range m.errors {
		if now.Sub(e.Timestamp) < m.cfg.ErrorRetention {
			kept = append(kept, e)
		}
	}
	if len(kept) > m.cfg.MaxErrors {
		kept = kept[len(kept)-m.cfg.MaxErrors:]
	}
	m.errors = kept
}

// popularItems replays every order's line items and keeps the top N names.
func (m *Monitor) popularItems(ctx context.Context) []domain.ItemCount {
	if m.orders == nil {
		return nil
	}

	data, err := m.orders.Data(ctx)
	if err != nil {
		m.cfg.Logger.Warn("failed to load orders for metrics", slog.Any("error", err))
		return nil
	}

	counts := make(map[string]int)
	for _, o := range data.Orders {
		for _, it := range o.Items {
			counts[it.Name]++
		}
	}

	items := make([]domain.ItemCount, 0, len(counts))
	for name, n := range counts {
		items = append(items, domain.ItemCount{Name: name, Count: n})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		return items[i].Name < items[j].Name
	})

	if len(items) > m.cfg.TopItems {
		items = items[:m.cfg.TopItems]
	}

	return items
}
