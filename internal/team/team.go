package team

import (
	"errors"
	"strings"
	"time"

	"movebooking/internal/validate"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

var (
	ErrNotFound          = errors.New("team not found")
	ErrNameTaken         = errors.New("team name already in use")
	ErrHasActiveBookings = errors.New("team has active bookings")
	ErrInactive          = errors.New("team is inactive")
)

type Team struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	LeaderName  string    `json:"leader_name"`
	Phone       *string   `json:"phone,omitempty"`
	MemberCount int       `json:"member_count"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (t Team) IsActive() bool { return t.Status == StatusActive }

type CreateRequest struct {
	Name        string  `json:"name"`
	LeaderName  string  `json:"leader_name"`
	Phone       *string `json:"phone"`
	MemberCount int     `json:"member_count"`
	Status      string  `json:"status"`
}

// Normalize trims input and applies defaults. The result is ready to insert.
func (r CreateRequest) Normalize() (Team, error) {
	t := Team{
		Name:        strings.TrimSpace(r.Name),
		LeaderName:  strings.TrimSpace(r.LeaderName),
		Phone:       trimmedOrNil(r.Phone),
		MemberCount: r.MemberCount,
		Status:      Status(strings.TrimSpace(r.Status)),
	}
	if t.Status == "" {
		t.Status = StatusActive
	}
	err := validate.First(
		validate.Required("name", t.Name),
		validate.MaxLen("name", t.Name, 100),
		validate.Required("leader_name", t.LeaderName),
		validate.MaxLen("leader_name", t.LeaderName, 100),
		memberCount(t.MemberCount),
		validate.OneOf("status", string(t.Status), string(StatusActive), string(StatusInactive)),
	)
	return t, err
}

type PatchRequest struct {
	Name        *string `json:"name"`
	LeaderName  *string `json:"leader_name"`
	Phone       *string `json:"phone"`
	MemberCount *int    `json:"member_count"`
	Status      *string `json:"status"`
}

// Apply returns cur with the patch applied, or a validation error.
func (p PatchRequest) Apply(cur Team) (Team, error) {
	if p.Name == nil && p.LeaderName == nil && p.Phone == nil && p.MemberCount == nil && p.Status == nil {
		return cur, validate.Failed("no fields to update")
	}
	next := cur
	if p.Name != nil {
		next.Name = strings.TrimSpace(*p.Name)
	}
	if p.LeaderName != nil {
		next.LeaderName = strings.TrimSpace(*p.LeaderName)
	}
	if p.Phone != nil {
		next.Phone = trimmedOrNil(p.Phone)
	}
	if p.MemberCount != nil {
		next.MemberCount = *p.MemberCount
	}
	if p.Status != nil {
		next.Status = Status(strings.TrimSpace(*p.Status))
	}
	err := validate.First(
		validate.Required("name", next.Name),
		validate.MaxLen("name", next.Name, 100),
		validate.Required("leader_name", next.LeaderName),
		memberCount(next.MemberCount),
		validate.OneOf("status", string(next.Status), string(StatusActive), string(StatusInactive)),
	)
	return next, err
}

func memberCount(n int) error {
	if n < 1 {
		return validate.Failed("member_count must be at least 1")
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
