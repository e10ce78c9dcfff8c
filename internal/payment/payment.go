package payment

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"movebooking/internal/validate"
)

type Method string

const (
	MethodMpesa        Method = "mpesa"
	MethodCard         Method = "card"
	MethodBankTransfer Method = "bank_transfer"
	MethodCash         Method = "cash"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

var (
	ErrNotFound          = errors.New("payment not found")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrInvalidTransition = errors.New("invalid payment status transition")
	ErrReferenceTaken    = errors.New("payment reference already used")
)

var methods = []string{string(MethodMpesa), string(MethodCard), string(MethodBankTransfer), string(MethodCash)}

var statuses = []string{string(StatusPending), string(StatusCompleted), string(StatusFailed), string(StatusRefunded)}

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusCompleted, StatusFailed, StatusRefunded:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown payment status: %s", s)
	}
}

var allowedTransitions = map[Status]map[Status]bool{
	StatusPending:   {StatusCompleted: true, StatusFailed: true},
	StatusCompleted: {StatusRefunded: true},
	StatusFailed:    {},
	StatusRefunded:  {},
}

func CanTransition(from, to Status) bool {
	m, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return m[to]
}

const amountScale = 2

type Payment struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	BookingID   *string         `json:"booking_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Method      Method          `json:"method"`
	Status      Status          `json:"status"`
	Reference   *string         `json:"reference,omitempty"`
	Description *string         `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type CreateRequest struct {
	BookingID   *string          `json:"booking_id"`
	Amount      *decimal.Decimal `json:"amount"`
	Currency    string           `json:"currency"`
	Method      string           `json:"method"`
	Reference   *string          `json:"reference"`
	Description *string          `json:"description"`
}

// Normalize validates the request; the payment always starts pending.
func (r CreateRequest) Normalize(defaultCurrency string) (Payment, error) {
	if r.Amount == nil {
		return Payment{}, validate.Failed("amount is required")
	}
	amt := *r.Amount
	if !amt.IsPositive() {
		return Payment{}, validate.Failed("amount must be greater than 0")
	}
	if !amt.Equal(amt.Round(amountScale)) {
		return Payment{}, validate.Failed("amount must have at most %d decimal places", amountScale)
	}

	p := Payment{
		BookingID:   trimmedOrNil(r.BookingID),
		Amount:      amt.Round(amountScale),
		Currency:    strings.ToUpper(strings.TrimSpace(r.Currency)),
		Method:      Method(strings.TrimSpace(r.Method)),
		Status:      StatusPending,
		Reference:   trimmedOrNil(r.Reference),
		Description: trimmedOrNil(r.Description),
	}
	if p.Currency == "" {
		p.Currency = defaultCurrency
	}

	err := validate.First(
		validate.OneOf("method", string(p.Method), methods...),
		currency(p.Currency),
	)
	if err == nil && p.BookingID != nil {
		err = validate.UUID("booking_id", *p.BookingID)
	}
	if err == nil && p.Reference != nil {
		err = validate.MaxLen("reference", *p.Reference, 100)
	}
	if err == nil && p.Description != nil {
		err = validate.MaxLen("description", *p.Description, 500)
	}
	return p, err
}

func ParseStatusInput(raw string) (Status, error) {
	s, err := ParseStatus(strings.TrimSpace(raw))
	if err != nil {
		return "", validate.Failed("status must be one of %s", strings.Join(statuses, ", "))
	}
	return s, nil
}

func currency(c string) error {
	if len(c) != 3 {
		return validate.Failed("currency must be a 3-letter ISO code")
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return validate.Failed("currency must be a 3-letter ISO code")
		}
	}
	return nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
