package httpgin

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	redisx "github.com/kirinyoku/moodcafe/internal/redis"
	"github.com/kirinyoku/moodcafe/internal/service/booking"
)

const idemLockTTL = 60 * time.Second

type IdempotencyStore interface {
	AcquireLock(ctx context.Context, key string, lockTTL time.Duration) (bool, error)
	SaveResult(ctx context.Context, key string, jsonPayload string) error
	GetResult(ctx context.Context, key string) (string, bool, error)
	Release(ctx context.Context, key string) error
}

// withIdempotency runs create at most once per Idempotency-Key and replays
// the stored 201 body for repeats. Without a store or a key it just runs
// create.
func withIdempotency(
	c *gin.Context,
	idem IdempotencyStore,
	kind string,
	create func() (any, error),
) {
	ctx := c.Request.Context()

	idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	var idemStorageKey string
	if idem != nil && idemKey != "" {
		idemStorageKey = redisx.KeyIdemBooking(kind, idemKey)

		if payload, ok, _ := idem.GetResult(ctx, idemStorageKey); ok {
			replay(c, idemKey, payload)
			return
		}

		locked, err := idem.AcquireLock(ctx, idemStorageKey, idemLockTTL)
		if err != nil {
			respondErr(c, err)
			return
		}
		if !locked {
			if payload, ok, _ := idem.GetResult(ctx, idemStorageKey); ok {
				replay(c, idemKey, payload)
				return
			}
			c.Header("Retry-After", "1")
			c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})
			return
		}
	}

	resp, err := create()
	if err != nil {
		if idemStorageKey != "" {
			_ = idem.Release(ctx, idemStorageKey)
		}
		respondErr(c, err)
		return
	}

	if idemStorageKey != "" {
		b, _ := json.Marshal(resp)
		_ = idem.SaveResult(ctx, idemStorageKey, string(b))
		c.Header("Idempotency-Key", idemKey)
	}

	c.JSON(http.StatusCreated, resp)
}

func replay(c *gin.Context, idemKey, payload string) {
	c.Header("Idempotency-Key", idemKey)
	c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
}

func bookingZoneRequest(req BookZoneRequest) booking.ZoneRequest {
	return booking.ZoneRequest{
		ZoneID:   req.ZoneID,
		UserName: req.UserName,
		Email:    req.Email,
		Date:     req.Date,
		Time:     req.Time,
		Seats:    req.Seats,
	}
}

func bookingEventRequest(req BookEventRequest) booking.EventRequest {
	return booking.EventRequest{
		EventID:     req.EventID,
		UserName:    req.UserName,
		Email:       req.Email,
		TicketCount: req.TicketCount,
	}
}
