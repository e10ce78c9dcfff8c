package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"movebooking/internal/audit"
	"movebooking/internal/events"
	"movebooking/internal/listing"
	"movebooking/internal/team"
	"movebooking/pkg/db"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

var _ Store = (*Repository)(nil)

const bookingColumns = `
id, user_id, service_type, service_id, floor_level, add_ons, from_location, to_location,
booking_date, notes, status, estimated_cost, team_id, assigned_date, version, created_at, updated_at`

func scanBooking(row pgx.Row) (*Booking, error) {
	var (
		b            Booking
		bookingDate  time.Time
		assignedDate *time.Time
	)
	if err := row.Scan(
		&b.ID, &b.UserID, &b.ServiceType, &b.ServiceID, &b.FloorLevel, &b.AddOns, &b.FromLocation, &b.ToLocation,
		&bookingDate, &b.Notes, &b.Status, &b.EstimatedCost, &b.TeamID, &assignedDate, &b.Version, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	b.BookingDate = NewDate(bookingDate)
	if assignedDate != nil {
		d := NewDate(*assignedDate)
		b.AssignedDate = &d
	}
	if b.AddOns == nil {
		b.AddOns = []string{}
	}
	return &b, nil
}

// ownerClause extends a `WHERE id = $1` query with the owner check.
func ownerClause(scope Scope) (string, []any) {
	if scope.OwnerID == "" {
		return "", nil
	}
	return " AND user_id = $2", []any{scope.OwnerID}
}

func (r *Repository) Create(ctx context.Context, b Booking, actor Actor) (*Booking, error) {
	var out *Booking
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		const q = `
INSERT INTO bookings (id, user_id, service_type, service_id, floor_level, add_ons, from_location, to_location,
                      booking_date, notes, status, estimated_cost)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING ` + bookingColumns
		created, err := scanBooking(tx.QueryRow(ctx, q,
			uuid.NewString(), b.UserID, b.ServiceType, b.ServiceID, b.FloorLevel, b.AddOns, b.FromLocation, b.ToLocation,
			b.BookingDate.Time, b.Notes, string(StatusPending), b.EstimatedCost,
		))
		if err != nil {
			return err
		}
		out = created

		data := map[string]any{"service_type": created.ServiceType, "estimated_cost": created.EstimatedCost}
		if err := events.Insert(ctx, tx, created.ID, events.TypeCreated, "Booking created", actor.Role, created.CreatedAt, data); err != nil {
			return err
		}
		return audit.Insert(ctx, tx, audit.Actor(actor.Role, actor.UserID), audit.EntityBooking, created.ID, events.TypeCreated, data)
	})
	return out, err
}

func (r *Repository) Get(ctx context.Context, scope Scope, id string) (*Booking, error) {
	if uuid.Validate(id) != nil {
		return nil, ErrNotFound
	}
	clause, args := ownerClause(scope)
	return scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`+clause, append([]any{id}, args...)...))
}

func (r *Repository) List(ctx context.Context, q *listing.Query) ([]Booking, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM bookings`+q.WhereSQL(), q.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page, args := q.PageSQL()
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings`+q.WhereSQL()+page, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *b)
	}
	return out, total, rows.Err()
}

// Mutate holds the row lock for the whole check-then-write, so two concurrent
// transitions from the same status cannot both succeed.
func (r *Repository) Mutate(ctx context.Context, scope Scope, id string, actor Actor, fn MutateFunc) (*Booking, error) {
	if uuid.Validate(id) != nil {
		return nil, ErrNotFound
	}
	var out *Booking
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		clause, args := ownerClause(scope)
		cur, err := scanBooking(tx.QueryRow(ctx,
			`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`+clause+` FOR UPDATE`,
			append([]any{id}, args...)...,
		))
		if err != nil {
			return err
		}

		ch, err := fn(*cur)
		if err != nil {
			return err
		}
		next := ch.Booking
		if ch.LockTeam && next.TeamID != nil {
			if err := team.LockActive(ctx, tx, *next.TeamID); err != nil {
				return err
			}
		}

		var assigned *time.Time
		if next.AssignedDate != nil {
			assigned = &next.AssignedDate.Time
		}
		const q = `
UPDATE bookings
SET from_location = $1, to_location = $2, booking_date = $3, notes = $4, status = $5,
    team_id = $6, assigned_date = $7, version = version + 1, updated_at = NOW()
WHERE id = $8
RETURNING ` + bookingColumns
		updated, err := scanBooking(tx.QueryRow(ctx, q,
			next.FromLocation, next.ToLocation, next.BookingDate.Time, next.Notes, string(next.Status),
			next.TeamID, assigned, cur.ID,
		))
		if err != nil {
			return err
		}
		out = updated

		if err := events.Insert(ctx, tx, cur.ID, ch.Event.Type, ch.Event.Summary, actor.Role, updated.UpdatedAt, ch.Event.Data); err != nil {
			return err
		}
		return audit.Insert(ctx, tx, audit.Actor(actor.Role, actor.UserID), audit.EntityBooking, cur.ID, ch.Event.Type, ch.Event.Data)
	})
	return out, err
}

func (r *Repository) Delete(ctx context.Context, scope Scope, id string, actor Actor) error {
	if uuid.Validate(id) != nil {
		return ErrNotFound
	}
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		clause, args := ownerClause(scope)
		var status Status
		err := tx.QueryRow(ctx, `DELETE FROM bookings WHERE id = $1`+clause+` RETURNING status`, append([]any{id}, args...)...).Scan(&status)
		if err != nil {
			if db.IsNoRows(err) {
				return ErrNotFound
			}
			return err
		}
		return audit.Insert(ctx, tx, audit.Actor(actor.Role, actor.UserID), audit.EntityBooking, id, "BOOKING_DELETED", map[string]any{"status": status})
	})
}

func (r *Repository) Events(ctx context.Context, id string) ([]events.Event, error) {
	return events.ListByBooking(ctx, r.db, id)
}
