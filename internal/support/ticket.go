package support

import (
	"errors"
	"strings"
	"time"

	"movebooking/internal/validate"
)

var (
	ErrNotFound        = errors.New("support ticket not found")
	ErrBookingNotFound = errors.New("booking not found")
)

var (
	categories = []string{"general", "booking", "payment", "complaint"}
	priorities = []string{"low", "medium", "high"}
	// Tickets have no workflow; any listed status may follow any other.
	statuses = []string{"open", "in_progress", "resolved", "closed"}
)

const StatusOpen = "open"

type Ticket struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	BookingID     *string   `json:"booking_id,omitempty"`
	Subject       string    `json:"subject"`
	Message       string    `json:"message"`
	Category      string    `json:"category"`
	Priority      string    `json:"priority"`
	Status        string    `json:"status"`
	AdminResponse *string   `json:"admin_response,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type CreateRequest struct {
	Subject   string  `json:"subject"`
	Message   string  `json:"message"`
	Category  string  `json:"category"`
	Priority  string  `json:"priority"`
	BookingID *string `json:"booking_id"`
}

func (r CreateRequest) Normalize() (Ticket, error) {
	t := Ticket{
		Subject:  strings.TrimSpace(r.Subject),
		Message:  strings.TrimSpace(r.Message),
		Category: strings.TrimSpace(r.Category),
		Priority: strings.TrimSpace(r.Priority),
		Status:   StatusOpen,
	}
	if t.Category == "" {
		t.Category = "general"
	}
	if t.Priority == "" {
		t.Priority = "medium"
	}
	if r.BookingID != nil {
		if id := strings.TrimSpace(*r.BookingID); id != "" {
			t.BookingID = &id
		}
	}

	err := validate.First(
		validate.Required("subject", t.Subject),
		validate.MaxLen("subject", t.Subject, 200),
		validate.Required("message", t.Message),
		validate.MaxLen("message", t.Message, 5000),
		validate.OneOf("category", t.Category, categories...),
		validate.OneOf("priority", t.Priority, priorities...),
	)
	if err == nil && t.BookingID != nil {
		err = validate.UUID("booking_id", *t.BookingID)
	}
	return t, err
}

// AdminPatch is the staff update; nil fields are left alone.
type AdminPatch struct {
	Status        *string `json:"status"`
	Priority      *string `json:"priority"`
	AdminResponse *string `json:"admin_response"`
}

func (p AdminPatch) Apply(cur Ticket) (Ticket, error) {
	if p.Status == nil && p.Priority == nil && p.AdminResponse == nil {
		return cur, validate.Failed("no fields to update")
	}
	next := cur
	if p.Status != nil {
		next.Status = strings.TrimSpace(*p.Status)
		if err := validate.OneOf("status", next.Status, statuses...); err != nil {
			return cur, err
		}
	}
	if p.Priority != nil {
		next.Priority = strings.TrimSpace(*p.Priority)
		if err := validate.OneOf("priority", next.Priority, priorities...); err != nil {
			return cur, err
		}
	}
	if p.AdminResponse != nil {
		resp := strings.TrimSpace(*p.AdminResponse)
		if err := validate.MaxLen("admin_response", resp, 5000); err != nil {
			return cur, err
		}
		if resp == "" {
			next.AdminResponse = nil
		} else {
			next.AdminResponse = &resp
		}
	}
	return next, nil
}
