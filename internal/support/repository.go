package support

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"movebooking/internal/audit"
	"movebooking/internal/listing"
	"movebooking/pkg/db"
)

type Store interface {
	Create(ctx context.Context, actor string, t Ticket) (*Ticket, error)
	Get(ctx context.Context, ownerID, id string) (*Ticket, error)
	List(ctx context.Context, q *listing.Query) ([]Ticket, int, error)
	Update(ctx context.Context, actor, id string, patch AdminPatch) (*Ticket, error)
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

var _ Store = (*Repository)(nil)

const ticketColumns = `id, user_id, booking_id, subject, message, category, priority, status, admin_response, created_at, updated_at`

func scanTicket(row pgx.Row) (*Ticket, error) {
	var t Ticket
	if err := row.Scan(&t.ID, &t.UserID, &t.BookingID, &t.Subject, &t.Message, &t.Category, &t.Priority, &t.Status, &t.AdminResponse, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *Repository) Create(ctx context.Context, actor string, t Ticket) (*Ticket, error) {
	var out *Ticket
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if t.BookingID != nil {
			var ok bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1 AND user_id = $2)`, *t.BookingID, t.UserID).Scan(&ok); err != nil {
				return err
			}
			if !ok {
				return ErrBookingNotFound
			}
		}

		const q = `
INSERT INTO support_tickets (user_id, booking_id, subject, message, category, priority, status)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + ticketColumns
		created, err := scanTicket(tx.QueryRow(ctx, q, t.UserID, t.BookingID, t.Subject, t.Message, t.Category, t.Priority, t.Status))
		if err != nil {
			return err
		}
		out = created
		return audit.Insert(ctx, tx, actor, audit.EntityTicket, created.ID, "TICKET_CREATED", map[string]any{
			"category": created.Category, "priority": created.Priority,
		})
	})
	return out, err
}

// Get scopes by owner unless ownerID is empty.
func (r *Repository) Get(ctx context.Context, ownerID, id string) (*Ticket, error) {
	if ownerID == "" {
		return scanTicket(r.db.QueryRow(ctx, `SELECT `+ticketColumns+` FROM support_tickets WHERE id = $1`, id))
	}
	return scanTicket(r.db.QueryRow(ctx, `SELECT `+ticketColumns+` FROM support_tickets WHERE id = $1 AND user_id = $2`, id, ownerID))
}

func (r *Repository) List(ctx context.Context, q *listing.Query) ([]Ticket, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM support_tickets`+q.WhereSQL(), q.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	page, args := q.PageSQL()
	rows, err := r.db.Query(ctx, `SELECT `+ticketColumns+` FROM support_tickets`+q.WhereSQL()+page, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *t)
	}
	return out, total, rows.Err()
}

func (r *Repository) Update(ctx context.Context, actor, id string, patch AdminPatch) (*Ticket, error) {
	var out *Ticket
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		cur, err := scanTicket(tx.QueryRow(ctx, `SELECT `+ticketColumns+` FROM support_tickets WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		next, err := patch.Apply(*cur)
		if err != nil {
			return err
		}

		const q = `
UPDATE support_tickets
SET status = $1, priority = $2, admin_response = $3, updated_at = NOW()
WHERE id = $4
RETURNING ` + ticketColumns
		updated, err := scanTicket(tx.QueryRow(ctx, q, next.Status, next.Priority, next.AdminResponse, id))
		if err != nil {
			return err
		}
		out = updated

		meta := map[string]any{}
		if cur.Status != next.Status {
			meta["status"] = map[string]string{"from": cur.Status, "to": next.Status}
		}
		if cur.Priority != next.Priority {
			meta["priority"] = map[string]string{"from": cur.Priority, "to": next.Priority}
		}
		if patch.AdminResponse != nil {
			meta["responded"] = next.AdminResponse != nil
		}
		return audit.Insert(ctx, tx, actor, audit.EntityTicket, id, "TICKET_UPDATED", meta)
	})
	return out, err
}
