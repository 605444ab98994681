package admin

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/kirinyoku/moodcafe/internal/bus"
	"github.com/kirinyoku/moodcafe/internal/domain"
	"github.com/kirinyoku/moodcafe/internal/store"
)

// SyncMode selects how booking projections land in the order list.
type SyncMode string

const (
	// SyncMerge replaces booking-sourced orders by id and keeps orders
	// entered through the admin ledger.
	SyncMerge SyncMode = "merge"
	// SyncReplace overwrites the whole order list with the projection.
	SyncReplace SyncMode = "replace"
)

const dateLayout = "2006-01-02"

var csvHeader = []string{"id", "name", "email", "role", "joinDate", "status"}

type IDGenerator interface {
	Next() int64
}

type Config struct {
	SyncMode SyncMode
	Clock    clockwork.Clock
	Logger   *slog.Logger
}

// Service is the admin ledger. It owns the menu, users and orders and
// persists them as a single document.
type Service struct {
	store  *store.Store
	bus    *bus.Bus
	ids    IDGenerator
	mode   SyncMode
	clock  clockwork.Clock
	logger *slog.Logger

	mu sync.Mutex
}

func New(s *store.Store, b *bus.Bus, ids IDGenerator, cfg Config) *Service {
	if cfg.SyncMode != SyncReplace {
		cfg.SyncMode = SyncMerge
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	return &Service{
		store:  s,
		bus:    b,
		ids:    ids,
		mode:   cfg.SyncMode,
		clock:  cfg.Clock,
		logger: cfg.Logger,
	}
}

// Init writes the initial admin document when none exists. seedFile, if
// set, replaces the built-in defaults.
func (s *Service) Init(ctx context.Context, seedFile string) error {
	const op = "service.admin.Init"

	s.mu.Lock()
	ok, err := s.store.Exists(ctx, store.KeyAdmin)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", op, err)
	}
	if ok {
		s.mu.Unlock()
		return nil
	}

	data := DefaultData()
	if seedFile != "" {
		seeded, err := readSeedFile(seedFile)
		if err != nil {
			s.logger.Error("failed to load seed file, using defaults",
				slog.String("path", seedFile),
				slog.Any("error", err),
			)
		} else {
			data = seeded
		}
	}

	data, err = s.save(ctx, data)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.publish(ctx, data)

	return nil
}

func (s *Service) Data(ctx context.Context) (domain.AdminData, error) {
	const op = "service.admin.Data"

	data, err := s.load(ctx)
	if err != nil {
		return domain.AdminData{}, fmt.Errorf("%s: %w", op, err)
	}

	return data, nil
}

func (s *Service) AddUser(ctx context.Context, u domain.User) (domain.User, error) {
	const op = "service.admin.AddUser"

	err := s.mutate(ctx, func(data *domain.AdminData) (bus.Message, error) {
		u.ID = s.ids.Next()
		if u.Status == "" {
			u.Status = domain.UserActive
		}
		if u.JoinDate == "" {
			u.JoinDate = s.today()
		}
		data.Users = append(data.Users, u)

		return bus.Message{Type: domain.TypeUserAdd, Payload: domain.UserAddPayload{User: u}}, nil
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

func (s *Service) AddOrder(ctx context.Context, o domain.Order) (domain.Order, error) {
	const op = "service.admin.AddOrder"

	err := s.mutate(ctx, func(data *domain.AdminData) (bus.Message, error) {
		o.ID = s.ids.Next()
		if o.Date == "" {
			o.Date = s.today()
		}
		if o.Status == "" {
			o.Status = domain.OrderCompleted
		}
		if o.Source == "" {
			o.Source = domain.OrderSourceAdmin
		}
		data.Orders = append(data.Orders, o)

		return bus.Message{Type: domain.TypeOrderAdd, Payload: domain.OrderAddPayload{Order: o}}, nil
	})
	if err != nil {
		return domain.Order{}, fmt.Errorf("%s: %w", op, err)
	}

	return o, nil
}

func (s *Service) AddMenuItem(ctx context.Context, item domain.MenuItem) (domain.MenuItem, error) {
	const op = "service.admin.AddMenuItem"

	err := s.mutate(ctx, func(data *domain.AdminData) (bus.Message, error) {
		item.ID = s.ids.Next()
		if item.Status == "" {
			item.Status = domain.MenuItemAvailable
		}
		data.MenuItems = append(data.MenuItems, item)

		return bus.Message{Type: domain.TypeMenuAdd, Payload: domain.MenuAddPayload{Item: item}}, nil
	})
	if err != nil {
		return domain.MenuItem{}, fmt.Errorf("%s: %w", op, err)
	}

	return item, nil
}

// UpdateMenuItem merges the non-nil fields of upd into the item.
//
// Returns:
//   - domain.MenuItem: the item after the update.
//   - error: MenuItemNotFoundError (domain.ErrNotFound) if id is unknown;
//     nothing is saved or broadcast in that case.
func (s *Service) UpdateMenuItem(ctx context.Context, id int64, upd domain.MenuItemUpdate) (domain.MenuItem, error) {
	const op = "service.admin.UpdateMenuItem"

	var updated domain.MenuItem
	err := s.mutate(ctx, func(data *domain.AdminData) (bus.Message, error) {
		for i := range data.MenuItems {
			if data.MenuItems[i].ID == id {
				data.MenuItems[i] = upd.Apply(data.MenuItems[i])
				updated = data.MenuItems[i]

				return bus.Message{
					Type:    domain.TypeMenuUpdate,
					Payload: domain.MenuUpdatePayload{ItemID: id, Updates: upd},
				}, nil
			}
		}
		return bus.Message{}, MenuItemNotFoundError{ItemID: id}
	})
	if err != nil {
		return domain.MenuItem{}, fmt.Errorf("%s: %w", op, err)
	}

	return updated, nil
}

func (s *Service) RemoveMenuItem(ctx context.Context, id int64) error {
	const op = "service.admin.RemoveMenuItem"

	err := s.mutate(ctx, func(data *domain.AdminData) (bus.Message, error) {
		idx := -1
		for i := range data.MenuItems {
			if data.MenuItems[i].ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return bus.Message{}, MenuItemNotFoundError{ItemID: id}
		}
		data.MenuItems = append(data.MenuItems[:idx], data.MenuItems[idx+1:]...)

		return bus.Message{Type: domain.TypeMenuRemove, Payload: domain.MenuRemovePayload{ItemID: id}}, nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Service) UpdateUser(ctx context.Context, id int64, upd domain.UserUpdate) (domain.User, error) {
	const op = "service.admin.UpdateUser"

	var updated domain.User
	err := s.mutate(ctx, func(data *domain.AdminData) (bus.Message, error) {
		for i := range data.Users {
			if data.Users[i].ID == id {
				data.Users[i] = upd.Apply(data.Users[i])
				updated = data.Users[i]

				return bus.Message{
					Type:    domain.TypeUserUpdate,
					Payload: domain.UserUpdatePayload{UserID: id, Updates: upd},
				}, nil
			}
		}
		return bus.Message{}, UserNotFoundError{UserID: id}
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return updated, nil
}

func (s *Service) RemoveUser(ctx context.Context, id int64) error {
	const op = "service.admin.RemoveUser"

	err := s.mutate(ctx, func(data *domain.AdminData) (bus.Message, error) {
		idx := -1
		for i := range data.Users {
			if data.Users[i].ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return bus.Message{}, UserNotFoundError{UserID: id}
		}
		data.Users = append(data.Users[:idx], data.Users[idx+1:]...)

		return bus.Message{Type: domain.TypeUserRemove, Payload: domain.UserRemovePayload{UserID: id}}, nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// SyncBookings projects bookings into the order list and saves. Only
// dataUpdate is broadcast; a projection is not an orderAdd.
func (s *Service) SyncBookings(ctx context.Context, bookings domain.BookingData) error {
	const op = "service.admin.SyncBookings"

	projected := make([]domain.Order, 0, len(bookings.Bookings))
	for _, b := range bookings.Bookings {
		projected = append(projected, s.project(b))
	}

	s.mu.Lock()
	data, err := s.load(ctx)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", op, err)
	}

	switch s.mode {
	case SyncReplace:
		data.Orders = projected
	default:
		data.Orders = mergeOrders(data.Orders, projected)
	}

	data, err = s.save(ctx, data)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.publish(ctx, data)

	return nil
}

// Subscribe keeps the order list in step with the booking ledger.
func (s *Service) Subscribe(b *bus.Bus) func() {
	return b.SubscribeTypes(func(ctx context.Context, msg bus.Message) {
		data, ok := msg.Payload.(domain.BookingData)
		if !ok {
			return
		}
		if err := s.SyncBookings(ctx, data); err != nil {
			s.logger.Error("failed to sync bookings into orders", slog.Any("error", err))
		}
	}, domain.TypeBookingDataUpdate)
}

// ExportUsersCSV writes the user list as CSV. Every data field is quoted.
func (s *Service) ExportUsersCSV(ctx context.Context, w io.Writer) error {
	const op = "service.admin.ExportUsersCSV"

	data, err := s.load(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := io.WriteString(w, strings.Join(csvHeader, ",")+"\n"); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for _, u := range data.Users {
		row := []string{strconv.FormatInt(u.ID, 10), u.Name, u.Email, u.Role, u.JoinDate, string(u.Status)}
		for i, f := range row {
			row[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
		}
		if _, err := io.WriteString(w, strings.Join(row, ",")+"\n"); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	return nil
}

func (s *Service) project(b domain.Booking) domain.Order {
	date := b.Date
	if date == "" {
		date = s.today()
	}

	return domain.Order{
		ID:     b.ID,
		User:   b.UserName,
		Total:  b.Total,
		Date:   date,
		Status: domain.OrderStatus(b.Status),
		Source: domain.OrderSourceBooking,
	}
}

// mergeOrders keeps admin-entered orders in place, updates projected orders
// by id and appends new ones. Booking orders absent from the projection are
// dropped.
func mergeOrders(current, projected []domain.Order) []domain.Order {
	byID := make(map[int64]domain.Order, len(projected))
	for _, o := range projected {
		byID[o.ID] = o
	}

	out := make([]domain.Order, 0, len(current)+len(projected))
	seen := make(map[int64]struct{}, len(projected))
	for _, o := range current {
		if p, ok := byID[o.ID]; ok {
			out = append(out, p)
			seen[o.ID] = struct{}{}
			continue
		}
		if o.Source == domain.OrderSourceBooking {
			continue
		}
		out = append(out, o)
	}

	for _, o := range projected {
		if _, ok := seen[o.ID]; !ok {
			out = append(out, o)
		}
	}

	return out
}

// mutate loads the document, applies fn and saves it only if fn succeeds.
// dataUpdate and then fn's typed event are published after the lock is
// released.
func (s *Service) mutate(ctx context.Context, fn func(data *domain.AdminData) (bus.Message, error)) error {
	s.mu.Lock()

	data, err := s.load(ctx)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	event, err := fn(&data)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	data, err = s.save(ctx, data)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.publish(ctx, data)
	s.bus.Publish(ctx, event)

	return nil
}

func (s *Service) load(ctx context.Context) (domain.AdminData, error) {
	data, err := store.Load(ctx, s.store, store.KeyAdmin, DefaultData)
	if err != nil {
		return domain.AdminData{}, err
	}
	normalize(&data)
	return data, nil
}

func (s *Service) save(ctx context.Context, data domain.AdminData) (domain.AdminData, error) {
	normalize(&data)
	data.Stats = RecalculateStats(data)

	if err := s.store.Save(ctx, store.KeyAdmin, data); err != nil {
		return domain.AdminData{}, err
	}

	return data, nil
}

func (s *Service) publish(ctx context.Context, data domain.AdminData) {
	s.bus.Publish(ctx, bus.Message{Type: domain.TypeDataUpdate, Payload: domain.DataUpdatePayload{Data: data}})
}

func (s *Service) today() string {
	return s.clock.Now().Format(dateLayout)
}
