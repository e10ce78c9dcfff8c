package user

import (
	"context"
	"maps"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"movebooking/internal/api"
	"movebooking/internal/audit"
	"movebooking/internal/listing"
	"movebooking/pkg/db"
)

type Store interface {
	Ensure(ctx context.Context, id, email string) (*Profile, error)
	Get(ctx context.Context, id string) (*Profile, error)
	Update(ctx context.Context, actor, id string, req UpdateRequest) (*Profile, error)
	List(ctx context.Context, q *listing.Query) ([]Profile, int, error)
	SetRole(ctx context.Context, actor, id, role string) (*Profile, error)
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

var (
	_ Store            = (*Repository)(nil)
	_ api.RoleResolver = (*Repository)(nil)
)

const profileColumns = `id, email, full_name, phone, avatar_url, role, created_at, updated_at`

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	if err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.Phone, &p.AvatarURL, &p.Role, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// RoleOf returns api.ErrUnknownUser when no profile exists.
func (r *Repository) RoleOf(ctx context.Context, userID string) (string, error) {
	var role string
	if err := r.db.QueryRow(ctx, `SELECT role FROM users WHERE id = $1`, userID).Scan(&role); err != nil {
		if db.IsNoRows(err) {
			return "", api.ErrUnknownUser
		}
		return "", err
	}
	return role, nil
}

// Ensure creates the profile row on first sight and keeps the email in step
// with the identity provider. The role is never touched here.
func (r *Repository) Ensure(ctx context.Context, id, email string) (*Profile, error) {
	const q = `
INSERT INTO users (id, email)
VALUES ($1, $2)
ON CONFLICT (id) DO UPDATE
SET email = EXCLUDED.email,
    updated_at = CASE WHEN users.email = EXCLUDED.email THEN users.updated_at ELSE NOW() END
RETURNING ` + profileColumns
	return scanProfile(r.db.QueryRow(ctx, q, id, email))
}

func (r *Repository) Get(ctx context.Context, id string) (*Profile, error) {
	return scanProfile(r.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM users WHERE id = $1`, id))
}

func (r *Repository) Update(ctx context.Context, actor, id string, req UpdateRequest) (*Profile, error) {
	var out *Profile
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		cur, err := scanProfile(tx.QueryRow(ctx, `SELECT `+profileColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		next := req.Apply(*cur)

		const q = `
UPDATE users
SET full_name = $1, phone = $2, avatar_url = $3, updated_at = NOW()
WHERE id = $4
RETURNING ` + profileColumns
		updated, err := scanProfile(tx.QueryRow(ctx, q, next.FullName, next.Phone, next.AvatarURL, id))
		if err != nil {
			return err
		}
		out = updated

		fields := slices.Sorted(maps.Keys(req.Metadata()))
		if req.AvatarURL != nil {
			fields = append(fields, "avatar_url")
		}
		return audit.Insert(ctx, tx, actor, audit.EntityUser, id, "PROFILE_UPDATED", map[string]any{"fields": fields})
	})
	return out, err
}

func (r *Repository) List(ctx context.Context, q *listing.Query) ([]Profile, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`+q.WhereSQL(), q.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	page, args := q.PageSQL()
	rows, err := r.db.Query(ctx, `SELECT `+profileColumns+` FROM users`+q.WhereSQL()+page, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	return out, total, rows.Err()
}

func (r *Repository) SetRole(ctx context.Context, actor, id, role string) (*Profile, error) {
	var out *Profile
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var prev string
		if err := tx.QueryRow(ctx, `SELECT role FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&prev); err != nil {
			if db.IsNoRows(err) {
				return ErrNotFound
			}
			return err
		}
		updated, err := scanProfile(tx.QueryRow(ctx,
			`UPDATE users SET role = $1, updated_at = NOW() WHERE id = $2 RETURNING `+profileColumns, role, id))
		if err != nil {
			return err
		}
		out = updated
		return audit.Insert(ctx, tx, actor, audit.EntityUser, id, "ROLE_CHANGED", map[string]any{"from": prev, "to": role})
	})
	return out, err
}
