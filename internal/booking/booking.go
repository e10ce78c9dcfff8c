package booking

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"movebooking/internal/team"
	"movebooking/internal/validate"
)

var (
	ErrNotFound          = errors.New("booking not found")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrVersionConflict   = errors.New("booking was modified concurrently")
	ErrNotEditable       = errors.New("booking can no longer be edited")
	ErrTeamInactive      = team.ErrInactive
)

// Date is a calendar date without a zone, YYYY-MM-DD on the wire.
type Date struct {
	time.Time
}

func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string { return d.Format(validate.DateLayout) }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := time.Parse(validate.DateLayout, s)
	if err != nil {
		return err
	}
	*d = Date{t}
	return nil
}

type Booking struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	ServiceType   string    `json:"service_type"`
	ServiceID     *string   `json:"service_id,omitempty"`
	FloorLevel    *int      `json:"floor_level,omitempty"`
	AddOns        []string  `json:"add_ons"`
	FromLocation  string    `json:"from_location"`
	ToLocation    string    `json:"to_location"`
	BookingDate   Date      `json:"booking_date"`
	Notes         *string   `json:"notes,omitempty"`
	Status        Status    `json:"status"`
	EstimatedCost *int64    `json:"estimated_cost"`
	TeamID        *string   `json:"team_id,omitempty"`
	AssignedDate  *Date     `json:"assigned_date,omitempty"`
	Version       int       `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Actor identifies who caused a write.
type Actor struct {
	UserID string
	Role   string
}

// Scope restricts reads and writes to one owner. The zero Scope means any owner.
type Scope struct {
	OwnerID string
}

func OwnedBy(userID string) Scope { return Scope{OwnerID: userID} }

var AnyOwner = Scope{}

// Event describes a mutation for the timeline, the audit log and the broker.
type Event struct {
	Type    string
	Summary string
	Data    map[string]any
}

// Change is what a MutateFunc wants persisted. Booking carries the desired
// state; id, user_id, version and timestamps are owned by the store.
type Change struct {
	Booking Booking
	Event   Event
	// LockTeam makes the store re-check Booking.TeamID under a share lock
	// before writing.
	LockTeam bool
}

// MutateFunc decides a change against the row as locked in the transaction.
// Returning an error aborts the write.
type MutateFunc func(current Booking) (Change, error)
