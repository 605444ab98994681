package service

import (
	"github.com/jonboulle/clockwork"
	"github.com/kirinyoku/moodcafe/internal/bus"
	"github.com/kirinyoku/moodcafe/internal/service/admin"
	"github.com/kirinyoku/moodcafe/internal/service/booking"
	"github.com/kirinyoku/moodcafe/internal/service/monitor"
	"github.com/kirinyoku/moodcafe/internal/service/payment"
	"github.com/kirinyoku/moodcafe/internal/store"
)

type IDGenerator interface {
	Next() int64
}

type Services struct {
	Booking *booking.Service
	Admin   *admin.Service
	Monitor *monitor.Monitor
	Payment *payment.Service
}

type Config struct {
	Clock   clockwork.Clock
	Admin   admin.Config
	Monitor monitor.Config
}

// NewServices builds the ledgers of one execution context and subscribes
// the admin ledger and the monitor to its bus.
func NewServices(st *store.Store, b *bus.Bus, ids IDGenerator, cfg Config) *Services {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Admin.Clock == nil {
		cfg.Admin.Clock = cfg.Clock
	}
	if cfg.Monitor.Clock == nil {
		cfg.Monitor.Clock = cfg.Clock
	}

	adm := admin.New(st, b, ids, cfg.Admin)
	mon := monitor.New(adm, b, cfg.Monitor)

	adm.Subscribe(b)
	mon.Subscribe(b)

	return &Services{
		Booking: booking.New(st, b, ids, booking.Config{Clock: cfg.Clock}),
		Admin:   adm,
		Monitor: mon,
		Payment: payment.New(cfg.Clock),
	}
}
