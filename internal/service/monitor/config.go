package monitor

import (
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

type Config struct {
	// Debounce is the quiet period after the last admin change before it
	// is processed.
	Debounce time.Duration
	// PageViewThrottle is the minimum gap between two counted page views.
	PageViewThrottle time.Duration
	// ErrorCooldown is how long further errors are ignored after one is logged.
	ErrorCooldown   time.Duration
	ErrorRetention  time.Duration
	MaxErrors       int
	CleanupInterval time.Duration
	TopItems        int
	RecentErrors    int
	// Frame is the tick period of Run.
	Frame time.Duration

	Clock  clockwork.Clock
	Logger *slog.Logger
}

func DefaultConfig() Config {
	return Config{
		Debounce:         250 * time.Millisecond,
		PageViewThrottle: time.Second,
		ErrorCooldown:    5 * time.Second,
		ErrorRetention:   time.Hour,
		MaxErrors:        100,
		CleanupInterval:  5 * time.Minute,
		TopItems:         10,
		RecentErrors:     5,
		Frame:            16 * time.Millisecond,
	}
}

// withDefaults fills every zero field from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()

	if c.Debounce <= 0 {
		c.Debounce = d.Debounce
	}
	if c.PageViewThrottle <= 0 {
		c.PageViewThrottle = d.PageViewThrottle
	}
	if c.ErrorCooldown <= 0 {
		c.ErrorCooldown = d.ErrorCooldown
	}
	if c.ErrorRetention <= 0 {
		c.ErrorRetention = d.ErrorRetention
	}
	if c.MaxErrors <= 0 {
		c.MaxErrors = d.MaxErrors
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = d.CleanupInterval
	}
	if c.TopItems <= 0 {
		c.TopItems = d.TopItems
	}
	if c.RecentErrors <= 0 {
		c.RecentErrors = d.RecentErrors
	}
	if c.Frame <= 0 {
		c.Frame = d.Frame
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}

	return c
}
