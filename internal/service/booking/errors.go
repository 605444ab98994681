package booking

import (
	"fmt"

	"github.com/kirinyoku/moodcafe/internal/domain"
)

type ZoneNotFoundError struct {
	ZoneID string
}

func (e ZoneNotFoundError) Error() string {
	return fmt.Sprintf("zone not found: %s", e.ZoneID)
}

func (e ZoneNotFoundError) Is(target error) bool {
	return target == domain.ErrNotFound
}

type EventNotFoundError struct {
	EventID string
}

func (e EventNotFoundError) Error() string {
	return fmt.Sprintf("event not found: %s", e.EventID)
}

func (e EventNotFoundError) Is(target error) bool {
	return target == domain.ErrNotFound
}

type CapacityExceededError struct {
	ZoneID   string
	Seats    int
	Capacity int
}

func (e CapacityExceededError) Error() string {
	return fmt.Sprintf("exceeds zone capacity: %d seats requested, zone %s holds %d", e.Seats, e.ZoneID, e.Capacity)
}

func (e CapacityExceededError) Is(target error) bool {
	return target == domain.ErrCapacityExceeded
}

type EventFullError struct {
	EventID   string
	Requested int
	Remaining int
}

func (e EventFullError) Error() string {
	return fmt.Sprintf("event is full: %d tickets requested, %d left for %s", e.Requested, e.Remaining, e.EventID)
}

func (e EventFullError) Is(target error) bool {
	return target == domain.ErrEventFull
}
