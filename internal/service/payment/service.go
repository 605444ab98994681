package payment

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const (
	ModeDemo        = "demo"
	DefaultCurrency = "inr"
)

var ErrInvalidAmount = errors.New("invalid amount")

// Intent is what a client needs to confirm a payment.
type Intent struct {
	ClientSecret string `json:"clientSecret"`
	ID           string `json:"id"`
	Amount       int64  `json:"amount,omitempty"`
	Currency     string `json:"currency,omitempty"`
	Mode         string `json:"mode"`
}

// Service issues demo payment intents. No payment provider is contacted.
type Service struct {
	clock clockwork.Clock
}

func New(clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{clock: clock}
}

// CreateIntent converts amount from major to minor units and returns a
// demo client secret.
func (s *Service) CreateIntent(amount float64, currency string) (Intent, error) {
	const op = "service.payment.CreateIntent"

	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return Intent{}, fmt.Errorf("%s: %w", op, ErrInvalidAmount)
	}

	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		currency = DefaultCurrency
	}

	intent := s.Stub()
	intent.Amount = int64(math.Round(amount * 100))
	intent.Currency = currency

	return intent, nil
}

// Stub returns an intent with no amount, for callers that send no order
// details at all.
func (s *Service) Stub() Intent {
	ms := strconv.FormatInt(s.clock.Now().UnixMilli(), 10)

	return Intent{
		ClientSecret: "pi_demo_client_secret_" + ms,
		ID:           "pi_demo_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Mode:         ModeDemo,
	}
}
