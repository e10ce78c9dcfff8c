package payment

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"movebooking/internal/audit"
	"movebooking/internal/events"
	"movebooking/internal/listing"
	"movebooking/pkg/db"
)

// Callback is a verified provider notification.
type Callback struct {
	Source      string
	EventID     string
	PayloadHash string
	Reference   string
	Status      Status
}

type CallbackResult struct {
	Duplicate bool
	Applied   bool
	PaymentID string
	Reason    string
}

type Store interface {
	Create(ctx context.Context, p Payment, actor string) (*Payment, error)
	Get(ctx context.Context, ownerID, id string) (*Payment, error)
	List(ctx context.Context, q *listing.Query) ([]Payment, int, error)
	UpdateStatus(ctx context.Context, id string, next Status, actor, reason string) (*Payment, error)
	ApplyCallback(ctx context.Context, cb Callback) (CallbackResult, error)
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

var _ Store = (*Repository)(nil)

const paymentColumns = `id, user_id, booking_id, amount::text, currency, method, status, reference, description, created_at, updated_at`

func scanPayment(row pgx.Row) (*Payment, error) {
	var (
		p      Payment
		amount string
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.BookingID, &amount, &p.Currency, &p.Method, &p.Status, &p.Reference, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, err
	}
	p.Amount = amt
	return &p, nil
}

// Create checks that a referenced booking belongs to the payer before inserting.
func (r *Repository) Create(ctx context.Context, p Payment, actor string) (*Payment, error) {
	var out *Payment
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if p.BookingID != nil {
			var owner string
			if err := tx.QueryRow(ctx, `SELECT user_id FROM bookings WHERE id = $1`, *p.BookingID).Scan(&owner); err != nil {
				if db.IsNoRows(err) {
					return ErrBookingNotFound
				}
				return err
			}
			if owner != p.UserID {
				return ErrBookingNotFound
			}
		}

		const q = `
INSERT INTO payments (user_id, booking_id, amount, currency, method, status, reference, description)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + paymentColumns
		created, err := scanPayment(tx.QueryRow(ctx, q,
			p.UserID, p.BookingID, p.Amount.StringFixed(amountScale), p.Currency, string(p.Method), string(StatusPending), p.Reference, p.Description,
		))
		if err != nil {
			if db.IsUniqueViolation(err) {
				return ErrReferenceTaken
			}
			return err
		}
		out = created
		return audit.Insert(ctx, tx, actor, audit.EntityPayment, created.ID, "PAYMENT_CREATED", map[string]any{
			"amount": created.Amount.StringFixed(amountScale), "currency": created.Currency, "method": created.Method,
		})
	})
	return out, err
}

func (r *Repository) Get(ctx context.Context, ownerID, id string) (*Payment, error) {
	if ownerID == "" {
		return scanPayment(r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
	}
	return scanPayment(r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1 AND user_id = $2`, id, ownerID))
}

func (r *Repository) List(ctx context.Context, q *listing.Query) ([]Payment, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM payments`+q.WhereSQL(), q.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	page, args := q.PageSQL()
	rows, err := r.db.Query(ctx, `SELECT `+paymentColumns+` FROM payments`+q.WhereSQL()+page, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	return out, total, rows.Err()
}

func (r *Repository) UpdateStatus(ctx context.Context, id string, next Status, actor, reason string) (*Payment, error) {
	var out *Payment
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		p, err := transition(ctx, tx, `WHERE id = $1`, id, next, actor, reason)
		out = p
		return err
	})
	return out, err
}

// ApplyCallback records the provider event once and applies its status when the
// transition is allowed. Replays and disallowed transitions are not errors.
func (r *Repository) ApplyCallback(ctx context.Context, cb Callback) (CallbackResult, error) {
	var res CallbackResult
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		const qEvent = `
INSERT INTO webhook_events (source, event_id, payload_hash, processed_at)
VALUES ($1, $2, $3, NOW())
`
		if _, err := tx.Exec(ctx, qEvent, cb.Source, cb.EventID, cb.PayloadHash); err != nil {
			if db.IsUniqueViolation(err) {
				res.Duplicate = true
				return pgx.ErrTxCommitRollback
			}
			return err
		}

		p, err := transition(ctx, tx, `WHERE reference = $1`, cb.Reference, cb.Status, "webhook:"+cb.Source, "")
		switch {
		case err == ErrNotFound:
			res.Reason = "unknown reference"
			return nil
		case err == ErrInvalidTransition:
			res.Reason = "transition not allowed"
			return nil
		case err != nil:
			return err
		}
		res.Applied = true
		res.PaymentID = p.ID
		return nil
	})
	if err == pgx.ErrTxCommitRollback {
		return res, nil
	}
	return res, err
}

func transition(ctx context.Context, tx pgx.Tx, where string, key string, next Status, actor, reason string) (*Payment, error) {
	cur, err := scanPayment(tx.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments `+where+` FOR UPDATE`, key))
	if err != nil {
		return nil, err
	}
	if !CanTransition(cur.Status, next) {
		return nil, ErrInvalidTransition
	}

	updated, err := scanPayment(tx.QueryRow(ctx,
		`UPDATE payments SET status = $1, updated_at = NOW() WHERE id = $2 RETURNING `+paymentColumns,
		string(next), cur.ID,
	))
	if err != nil {
		return nil, err
	}

	meta := map[string]any{"from": cur.Status, "to": next}
	if reason != "" {
		meta["reason"] = reason
	}
	if err := audit.Insert(ctx, tx, actor, audit.EntityPayment, cur.ID, "PAYMENT_STATUS_CHANGED", meta); err != nil {
		return nil, err
	}
	if cur.BookingID != nil {
		data := map[string]any{"payment_id": cur.ID, "amount": cur.Amount.StringFixed(amountScale), "status": next}
		summary := "Payment " + string(next)
		if err := events.Insert(ctx, tx, *cur.BookingID, events.TypePayment, summary, actor, time.Now(), data); err != nil {
			return nil, err
		}
	}
	return updated, nil
}
