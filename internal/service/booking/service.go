package booking

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/kirinyoku/moodcafe/internal/bus"
	"github.com/kirinyoku/moodcafe/internal/domain"
	"github.com/kirinyoku/moodcafe/internal/store"
)

type IDGenerator interface {
	Next() int64
}

type Config struct {
	Clock clockwork.Clock
}

// Service is the booking ledger: the only writer of zones, events and
// bookings. Every mutation rewrites the whole bookings document and then
// broadcasts it as bookingDataUpdate.
type Service struct {
	store *store.Store
	bus   *bus.Bus
	ids   IDGenerator
	clock clockwork.Clock

	mu sync.Mutex
}

func New(s *store.Store, b *bus.Bus, ids IDGenerator, cfg Config) *Service {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}

	return &Service{
		store: s,
		bus:   b,
		ids:   ids,
		clock: cfg.Clock,
	}
}

type ZoneRequest struct {
	ZoneID   string
	UserName string
	Email    string
	Date     string
	Time     string
	Seats    int
}

type EventRequest struct {
	EventID     string
	UserName    string
	Email       string
	TicketCount int
}

// Init seeds the default zones and events if nothing is stored yet.
func (s *Service) Init(ctx context.Context) error {
	const op = "service.booking.Init"

	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.store.Exists(ctx, store.KeyBookings)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if ok {
		return nil
	}

	data := SeedData()
	if err := s.store.Save(ctx, store.KeyBookings, data); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.bus.Publish(ctx, bus.Message{Type: domain.TypeBookingDataUpdate, Payload: data})

	return nil
}

// BookZone books seats in a zone.
//
// Parameters:
//   - ctx: request-scoped context.
//   - req: zone id, requester, date/time slot and number of seats.
//
// Returns:
//   - *domain.Booking: the confirmed booking, total = zone price × seats.
//   - error: ZoneNotFoundError (domain.ErrNotFound) if the zone is unknown.
//   - error: CapacityExceededError (domain.ErrCapacityExceeded) if seats > capacity.
//   - error: domain.ErrInvalidQuantity if seats is not positive.
func (s *Service) BookZone(ctx context.Context, req ZoneRequest) (*domain.Booking, error) {
	const op = "service.booking.BookZone"

	if req.Seats <= 0 {
		return nil, fmt.Errorf("%s: %w", op, domain.ErrInvalidQuantity)
	}

	var booking domain.Booking

	data, err := s.mutate(ctx, func(data *domain.BookingData) error {
		zone, ok := findZone(data.Zones, req.ZoneID)
		if !ok {
			return ZoneNotFoundError{ZoneID: req.ZoneID}
		}

		if req.Seats > zone.Capacity {
			return CapacityExceededError{
				ZoneID:   zone.ID,
				Seats:    req.Seats,
				Capacity: zone.Capacity,
			}
		}

		booking = domain.Booking{
			ID:        s.ids.Next(),
			Kind:      domain.BookingZone,
			ZoneID:    zone.ID,
			ZoneName:  zone.Name,
			UserName:  req.UserName,
			Email:     req.Email,
			Date:      req.Date,
			Time:      req.Time,
			Seats:     req.Seats,
			Total:     zone.Price * float64(req.Seats),
			Status:    domain.BookingConfirmed,
			CreatedAt: s.clock.Now().UTC(),
		}
		data.Bookings = append(data.Bookings, booking)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.bus.Publish(ctx, bus.Message{Type: domain.TypeBookingDataUpdate, Payload: data})

	return &booking, nil
}

// BookEvent sells tickets for an event. The booked counter and the new
// booking are persisted in the same write.
//
// Returns:
//   - *domain.Booking: the confirmed booking, total = event price × tickets.
//   - error: EventNotFoundError (domain.ErrNotFound) if the event is unknown.
//   - error: EventFullError (domain.ErrEventFull) if booked + tickets > capacity.
//   - error: domain.ErrInvalidQuantity if the ticket count is not positive.
func (s *Service) BookEvent(ctx context.Context, req EventRequest) (*domain.Booking, error) {
	const op = "service.booking.BookEvent"

	if req.TicketCount <= 0 {
		return nil, fmt.Errorf("%s: %w", op, domain.ErrInvalidQuantity)
	}

	var booking domain.Booking

	data, err := s.mutate(ctx, func(data *domain.BookingData) error {
		idx := findEvent(data.Events, req.EventID)
		if idx < 0 {
			return EventNotFoundError{EventID: req.EventID}
		}
		event := &data.Events[idx]

		if event.Booked+req.TicketCount > event.Capacity {
			return EventFullError{
				EventID:   event.ID,
				Requested: req.TicketCount,
				Remaining: event.Remaining(),
			}
		}

		booking = domain.Booking{
			ID:          s.ids.Next(),
			Kind:        domain.BookingEvent,
			EventID:     event.ID,
			EventTitle:  event.Title,
			UserName:    req.UserName,
			Email:       req.Email,
			TicketCount: req.TicketCount,
			Total:       event.Price * float64(req.TicketCount),
			Status:      domain.BookingConfirmed,
			CreatedAt:   s.clock.Now().UTC(),
		}
		event.Booked += req.TicketCount
		data.Bookings = append(data.Bookings, booking)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.bus.Publish(ctx, bus.Message{Type: domain.TypeBookingDataUpdate, Payload: data})

	return &booking, nil
}

func (s *Service) Data(ctx context.Context) (domain.BookingData, error) {
	const op = "service.booking.Data"

	data, err := store.Load(ctx, s.store, store.KeyBookings, emptyData)
	if err != nil {
		return domain.BookingData{}, fmt.Errorf("%s: %w", op, err)
	}

	return data, nil
}

func (s *Service) Bookings(ctx context.Context) ([]domain.Booking, error) {
	data, err := s.Data(ctx)
	if err != nil {
		return nil, err
	}
	return nonNil(data.Bookings), nil
}

func (s *Service) Zones(ctx context.Context) ([]domain.Zone, error) {
	data, err := s.Data(ctx)
	if err != nil {
		return nil, err
	}
	return nonNil(data.Zones), nil
}

func (s *Service) Events(ctx context.Context) ([]domain.Event, error) {
	data, err := s.Data(ctx)
	if err != nil {
		return nil, err
	}
	return nonNil(data.Events), nil
}

// mutate runs fn on a fresh copy of the document and saves it only if fn
// succeeds. A rejected mutation leaves the store untouched.
func (s *Service) mutate(ctx context.Context, fn func(data *domain.BookingData) error) (domain.BookingData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := store.Load(ctx, s.store, store.KeyBookings, emptyData)
	if err != nil {
		return domain.BookingData{}, err
	}

	if err := fn(&data); err != nil {
		return domain.BookingData{}, err
	}

	if err := s.store.Save(ctx, store.KeyBookings, data); err != nil {
		return domain.BookingData{}, err
	}

	return data, nil
}

func findZone(zones []domain.Zone, id string) (domain.Zone, bool) {
	for _, z := range zones {
		if z.ID == id {
			return z, true
		}
	}
	return domain.Zone{}, false
}

func findEvent(events []domain.Event, id string) int {
	for i := range events {
		if events[i].ID == id {
			return i
		}
	}
	return -1
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
