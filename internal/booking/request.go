package booking

import (
	"errors"
	"strings"

	"movebooking/internal/catalog"
	"movebooking/internal/validate"
)

const (
	CodeEstimateMismatch    = "ESTIMATE_MISMATCH"
	CodeServiceTypeMismatch = "SERVICE_TYPE_MISMATCH"
	CodeUnknownService      = "UNKNOWN_SERVICE"

	maxLocationLen = 300
	maxNotesLen    = 2000
)

type CreateRequest struct {
	ServiceType   string   `json:"service_type"`
	FromLocation  string   `json:"from_location"`
	ToLocation    string   `json:"to_location"`
	BookingDate   string   `json:"booking_date"`
	Notes         *string  `json:"notes,omitempty"`
	EstimatedCost *int64   `json:"estimated_cost,omitempty"`
	ServiceID     *string  `json:"service_id,omitempty"`
	FloorLevel    *int     `json:"floor_level,omitempty"`
	AddOns        []string `json:"add_ons,omitempty"`
}

// Normalize validates the request and returns the booking to insert (status
// pending, no id yet). When service_id is set the server's quote is
// authoritative for the estimate and the title.
func (r CreateRequest) Normalize(cat *catalog.Catalog) (Booking, error) {
	b := Booking{
		ServiceType:   strings.TrimSpace(r.ServiceType),
		FromLocation:  strings.TrimSpace(r.FromLocation),
		ToLocation:    strings.TrimSpace(r.ToLocation),
		Notes:         trimmedOrNil(r.Notes),
		Status:        StatusPending,
		EstimatedCost: r.EstimatedCost,
		AddOns:        []string{},
	}

	if err := validate.First(
		validate.Required("from_location", b.FromLocation),
		validate.MaxLen("from_location", b.FromLocation, maxLocationLen),
		validate.Required("to_location", b.ToLocation),
		validate.MaxLen("to_location", b.ToLocation, maxLocationLen),
		validate.Required("booking_date", r.BookingDate),
	); err != nil {
		return Booking{}, err
	}
	d, err := validate.Date("booking_date", r.BookingDate)
	if err != nil {
		return Booking{}, err
	}
	b.BookingDate = NewDate(d)

	if b.Notes != nil {
		if err := validate.MaxLen("notes", *b.Notes, maxNotesLen); err != nil {
			return Booking{}, err
		}
	}
	if r.EstimatedCost != nil && *r.EstimatedCost < 0 {
		return Booking{}, validate.Failed("estimated_cost must be >= 0")
	}
	if r.FloorLevel != nil {
		if err := catalog.CheckFloorLevel(*r.FloorLevel); err != nil {
			return Booking{}, err
		}
	}

	serviceID := ""
	if r.ServiceID != nil {
		serviceID = strings.TrimSpace(*r.ServiceID)
	}
	if serviceID == "" {
		if len(r.AddOns) > 0 {
			return Booking{}, validate.Failed("add_ons require service_id")
		}
		if err := validate.Required("service_type", b.ServiceType); err != nil {
			return Booking{}, err
		}
		b.FloorLevel = r.FloorLevel
		return b, nil
	}

	o, err := cat.ByID(serviceID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return Booking{}, validate.New(CodeUnknownService, "unknown service_id")
		}
		return Booking{}, err
	}
	floor := 0
	if r.FloorLevel != nil {
		floor = *r.FloorLevel
	}
	draft, err := catalog.DraftFor(o, floor, r.AddOns)
	if err != nil {
		return Booking{}, err
	}
	sub := draft.Submission()

	if b.ServiceType != "" && b.ServiceType != sub.ServiceType {
		return Booking{}, validate.New(CodeServiceTypeMismatch, "service_type must match the selected service")
	}
	if r.EstimatedCost != nil && *r.EstimatedCost != sub.EstimatedCost {
		return Booking{}, validate.New(CodeEstimateMismatch, "estimated_cost does not match the current price of the selected service")
	}

	b.ServiceType = sub.ServiceType
	b.ServiceID = &sub.ServiceID
	b.FloorLevel = &sub.FloorLevel
	b.AddOns = sub.AddOns
	cost := sub.EstimatedCost
	b.EstimatedCost = &cost
	return b, nil
}

// RequestFromDraft turns a priced draft into a create request.
func RequestFromDraft(d *catalog.Draft, from, to, date string, notes *string) CreateRequest {
	sub := d.Submission()
	return CreateRequest{
		ServiceType:   sub.ServiceType,
		FromLocation:  from,
		ToLocation:    to,
		BookingDate:   date,
		Notes:         notes,
		EstimatedCost: &sub.EstimatedCost,
		ServiceID:     &sub.ServiceID,
		FloorLevel:    &sub.FloorLevel,
		AddOns:        sub.AddOns,
	}
}

// PatchRequest holds the fields an owner may edit while the booking is pending.
type PatchRequest struct {
	FromLocation *string `json:"from_location"`
	ToLocation   *string `json:"to_location"`
	BookingDate  *string `json:"booking_date"`
	Notes        *string `json:"notes"`
	Version      *int    `json:"version"`
}

func (p PatchRequest) apply(cur Booking) (Booking, map[string]any, error) {
	if p.FromLocation == nil && p.ToLocation == nil && p.BookingDate == nil && p.Notes == nil {
		return cur, nil, validate.Failed("no fields to update")
	}
	next := cur
	changed := map[string]any{}
	if p.FromLocation != nil {
		next.FromLocation = strings.TrimSpace(*p.FromLocation)
		changed["from_location"] = next.FromLocation
	}
	if p.ToLocation != nil {
		next.ToLocation = strings.TrimSpace(*p.ToLocation)
		changed["to_location"] = next.ToLocation
	}
	if p.BookingDate != nil {
		d, err := validate.Date("booking_date", *p.BookingDate)
		if err != nil {
			return cur, nil, err
		}
		next.BookingDate = NewDate(d)
		changed["booking_date"] = next.BookingDate.String()
	}
	if p.Notes != nil {
		next.Notes = trimmedOrNil(p.Notes)
		changed["notes"] = next.Notes
	}

	err := validate.First(
		validate.Required("from_location", next.FromLocation),
		validate.MaxLen("from_location", next.FromLocation, maxLocationLen),
		validate.Required("to_location", next.ToLocation),
		validate.MaxLen("to_location", next.ToLocation, maxLocationLen),
	)
	if err == nil && next.Notes != nil {
		err = validate.MaxLen("notes", *next.Notes, maxNotesLen)
	}
	return next, changed, err
}

type StatusRequest struct {
	Status  string `json:"status"`
	Version *int   `json:"version"`
}

type AdminStatusRequest struct {
	Status  string `json:"status"`
	Version *int   `json:"version"`
	Reason  string `json:"reason"`
}

type AssignTeamRequest struct {
	TeamID       string  `json:"team_id"`
	AssignedDate *string `json:"assigned_date"`
	Version      *int    `json:"version"`
}

func parseStatus(raw string) (Status, error) {
	s, err := ParseStatus(strings.TrimSpace(raw))
	if err != nil {
		return "", validate.Failed("status must be one of %s", strings.Join(statusStrings(), ", "))
	}
	return s, nil
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
