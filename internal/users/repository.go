package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists user profiles in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, subject, name, email, phone, role, COALESCE(site_id, 0), COALESCE(image_key, ''), COALESCE(signature_key, ''), created_at, updated_at`

// UpsertBySubject creates or refreshes the profile row for a token subject.
func (r *Repository) UpsertBySubject(ctx context.Context, user User) (User, error) {
	query := `INSERT INTO users (subject, name, email, role, created_at, updated_at)
VALUES ($1, $2, $3, $4, NOW(), NOW())
ON CONFLICT (subject) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email, role = EXCLUDED.role, updated_at = NOW()
RETURNING ` + userColumns
	return r.scanOne(r.pool.QueryRow(ctx, query, user.Subject, user.Name, user.Email, user.Role))
}

// Get fetches a user by ID.
func (r *Repository) Get(ctx context.Context, id int64) (User, error) {
	return r.scanOne(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetBySubject fetches a user by provider subject.
func (r *Repository) GetBySubject(ctx context.Context, subject string) (User, error) {
	return r.scanOne(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE subject = $1`, subject))
}

// ListByRole returns all users holding the given role.
func (r *Repository) ListByRole(ctx context.Context, role string) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY name ASC`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []User
	for rows.Next() {
		user, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, user)
	}
	return out, rows.Err()
}

// UpdateProfile saves the editable profile fields.
func (r *Repository) UpdateProfile(ctx context.Context, id int64, phone string, siteID int64, imageKey, signatureKey string) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET phone = $1, site_id = NULLIF($2, 0), image_key = NULLIF($3, ''), signature_key = NULLIF($4, ''), updated_at = NOW() WHERE id = $5`,
		phone, siteID, imageKey, signatureKey, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *Repository) scanOne(row rowScanner) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Subject, &u.Name, &u.Email, &u.Phone, &u.Role, &u.SiteID, &u.ImageKey, &u.SignatureKey, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}
