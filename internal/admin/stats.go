// Package admin serves the staff dashboard aggregates.
package admin

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"movebooking/internal/api"
	"movebooking/internal/booking"
)

const recentWindow = 30 * 24 * time.Hour

type Stats struct {
	BookingsByStatus map[booking.Status]int `json:"bookings_by_status"`
	TotalBookings    int                    `json:"total_bookings"`
	RecentBookings   int                    `json:"bookings_last_30_days"`
	TotalUsers       int                    `json:"total_users"`
	OpenTickets      int                    `json:"open_tickets"`
	Revenue          decimal.Decimal        `json:"completed_revenue"`
}

type Store interface {
	Stats(ctx context.Context, since time.Time) (*Stats, error)
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Stats fails if any aggregate fails; nothing is defaulted to zero except
// statuses that have no bookings.
func (r *Repository) Stats(ctx context.Context, since time.Time) (*Stats, error) {
	s := &Stats{BookingsByStatus: ZeroCounts()}

	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM bookings GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count bookings by status: %w", err)
	}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return nil, err
		}
		st, err := booking.ParseStatus(status)
		if err != nil {
			rows.Close()
			return nil, err
		}
		s.BookingsByStatus[st] = n
		s.TotalBookings += n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM bookings WHERE created_at >= $1`, since).Scan(&s.RecentBookings); err != nil {
		return nil, fmt.Errorf("count recent bookings: %w", err)
	}
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&s.TotalUsers); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM support_tickets WHERE status = 'open'`).Scan(&s.OpenTickets); err != nil {
		return nil, fmt.Errorf("count open tickets: %w", err)
	}

	var revenue string
	if err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0)::text FROM payments WHERE status = 'completed'`).Scan(&revenue); err != nil {
		return nil, fmt.Errorf("sum revenue: %w", err)
	}
	if s.Revenue, err = decimal.NewFromString(revenue); err != nil {
		return nil, fmt.Errorf("parse revenue %q: %w", revenue, err)
	}
	return s, nil
}

// ZeroCounts has an entry for every booking status.
func ZeroCounts() map[booking.Status]int {
	m := make(map[booking.Status]int, len(booking.Statuses))
	for _, st := range booking.Statuses {
		m[st] = 0
	}
	return m
}

type Handlers struct {
	Stats Store
	Now   func() time.Time
}

func (h Handlers) Get(w http.ResponseWriter, r *http.Request) {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	s, err := h.Stats.Stats(r.Context(), now().Add(-recentWindow))
	if err != nil {
		api.Fail(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, s)
}
