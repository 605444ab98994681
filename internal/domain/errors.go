package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrCapacityExceeded = errors.New("exceeds zone capacity")
	ErrEventFull        = errors.New("event is full")
	ErrInvalidQuantity  = errors.New("quantity must be positive")

	// ErrMalformedStore and ErrSyncParse are only ever logged; the caller
	// receives a default value or the notification is dropped.
	ErrMalformedStore = errors.New("malformed store data")
	ErrSyncParse      = errors.New("failed to parse sync notification")
)
