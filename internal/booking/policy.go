package booking

import (
	"fmt"
	"time"

	"movebooking/internal/events"
)

func checkVersion(cur Booking, expected *int) error {
	if expected != nil && *expected != cur.Version {
		return ErrVersionConflict
	}
	return nil
}

// ChangeStatus moves the booking along the lifecycle graph.
func ChangeStatus(next Status, expectedVersion *int, reason string) MutateFunc {
	return func(cur Booking) (Change, error) {
		if err := checkVersion(cur, expectedVersion); err != nil {
			return Change{}, err
		}
		if !CanTransition(cur.Status, next) {
			return Change{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cur.Status, next)
		}
		b := cur
		b.Status = next

		data := map[string]any{"from": cur.Status, "to": next}
		if reason != "" {
			data["reason"] = reason
		}
		return Change{
			Booking: b,
			Event:   Event{Type: events.TypeStatus, Summary: fmt.Sprintf("Status changed to %s", next), Data: data},
		}, nil
	}
}

// AssignTeam puts a crew on the booking. Pending bookings become confirmed;
// confirmed bookings stay confirmed. The assigned date defaults to the booking date.
func AssignTeam(teamID string, assignedDate *time.Time, expectedVersion *int) MutateFunc {
	return func(cur Booking) (Change, error) {
		if err := checkVersion(cur, expectedVersion); err != nil {
			return Change{}, err
		}
		if cur.Status != StatusPending && cur.Status != StatusConfirmed {
			return Change{}, fmt.Errorf("%w: cannot assign a team while %s", ErrInvalidTransition, cur.Status)
		}

		d := cur.BookingDate
		if assignedDate != nil {
			d = NewDate(*assignedDate)
		}
		b := cur
		b.Status = StatusConfirmed
		b.TeamID = &teamID
		b.AssignedDate = &d

		data := map[string]any{"team_id": teamID, "assigned_date": d.String(), "from": cur.Status, "to": StatusConfirmed}
		if cur.TeamID != nil {
			data["previous_team_id"] = *cur.TeamID
		}
		return Change{
			Booking:  b,
			Event:    Event{Type: events.TypeTeamAssigned, Summary: "Team assigned", Data: data},
			LockTeam: true,
		}, nil
	}
}

// Edit applies owner changes. Only pending bookings are editable.
func Edit(p PatchRequest) MutateFunc {
	return func(cur Booking) (Change, error) {
		if err := checkVersion(cur, p.Version); err != nil {
			return Change{}, err
		}
		if cur.Status != StatusPending {
			return Change{}, ErrNotEditable
		}
		next, changed, err := p.apply(cur)
		if err != nil {
			return Change{}, err
		}
		return Change{
			Booking: next,
			Event:   Event{Type: events.TypeUpdated, Summary: "Booking details updated", Data: changed},
		}, nil
	}
}
