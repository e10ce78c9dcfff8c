package team

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"movebooking/internal/audit"
	"movebooking/internal/listing"
	"movebooking/pkg/db"
)

// Store is what the handlers need; *Repository implements it.
type Store interface {
	List(ctx context.Context, q *listing.Query) ([]Team, int, error)
	Get(ctx context.Context, id string) (*Team, error)
	Create(ctx context.Context, actor string, t Team) (*Team, error)
	Update(ctx context.Context, actor, id string, patch PatchRequest) (*Team, error)
	Delete(ctx context.Context, actor, id string) error
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const teamColumns = `id, name, leader_name, phone, member_count, status, created_at, updated_at`

func scanTeam(row pgx.Row) (*Team, error) {
	var t Team
	if err := row.Scan(&t.ID, &t.Name, &t.LeaderName, &t.Phone, &t.MemberCount, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *Repository) List(ctx context.Context, q *listing.Query) ([]Team, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM teams`+q.WhereSQL(), q.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page, args := q.PageSQL()
	rows, err := r.db.Query(ctx, `SELECT `+teamColumns+` FROM teams`+q.WhereSQL()+page, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *t)
	}
	return out, total, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id string) (*Team, error) {
	return scanTeam(r.db.QueryRow(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = $1`, id))
}

func (r *Repository) Create(ctx context.Context, actor string, t Team) (*Team, error) {
	var out *Team
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		const q = `
INSERT INTO teams (name, leader_name, phone, member_count, status)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + teamColumns
		created, err := scanTeam(tx.QueryRow(ctx, q, t.Name, t.LeaderName, t.Phone, t.MemberCount, t.Status))
		if err != nil {
			if db.IsUniqueViolation(err) {
				return ErrNameTaken
			}
			return err
		}
		out = created
		return audit.Insert(ctx, tx, actor, audit.EntityTeam, created.ID, "TEAM_CREATED", map[string]any{"name": created.Name})
	})
	return out, err
}

func (r *Repository) Update(ctx context.Context, actor, id string, patch PatchRequest) (*Team, error) {
	var out *Team
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		cur, err := scanTeam(tx.QueryRow(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		next, err := patch.Apply(*cur)
		if err != nil {
			return err
		}

		const q = `
UPDATE teams
SET name = $1, leader_name = $2, phone = $3, member_count = $4, status = $5, updated_at = NOW()
WHERE id = $6
RETURNING ` + teamColumns
		updated, err := scanTeam(tx.QueryRow(ctx, q, next.Name, next.LeaderName, next.Phone, next.MemberCount, next.Status, id))
		if err != nil {
			if db.IsUniqueViolation(err) {
				return ErrNameTaken
			}
			return err
		}
		out = updated
		return audit.Insert(ctx, tx, actor, audit.EntityTeam, id, "TEAM_UPDATED", map[string]any{"from": cur, "to": updated})
	})
	return out, err
}

// Delete refuses while the team is on a confirmed or in-progress booking.
// Finished bookings keep their history with team_id cleared.
func (r *Repository) Delete(ctx context.Context, actor, id string) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := scanTeam(tx.QueryRow(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = $1 FOR UPDATE`, id)); err != nil {
			return err
		}

		const qActive = `SELECT EXISTS (SELECT 1 FROM bookings WHERE team_id = $1 AND status IN ('confirmed', 'in_progress'))`
		var active bool
		if err := tx.QueryRow(ctx, qActive, id).Scan(&active); err != nil {
			return err
		}
		if active {
			return ErrHasActiveBookings
		}

		tag, err := tx.Exec(ctx, `DELETE FROM teams WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return audit.Insert(ctx, tx, actor, audit.EntityTeam, id, "TEAM_DELETED", nil)
	})
}

// LockActive share-locks the team row inside tx and requires it to be active.
// A concurrent delete or deactivation waits until tx ends.
func LockActive(ctx context.Context, tx pgx.Tx, id string) error {
	var status Status
	err := tx.QueryRow(ctx, `SELECT status FROM teams WHERE id = $1 FOR SHARE`, id).Scan(&status)
	return availability(status, err)
}

func availability(status Status, err error) error {
	switch {
	case db.IsNoRows(err):
		return ErrNotFound
	case err != nil:
		return err
	case status != StatusActive:
		return ErrInactive
	}
	return nil
}

var _ Store = (*Repository)(nil)
