package notes

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists sticky notes in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) ListByUser(ctx context.Context, userID int64) ([]Note, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, user_id, content, color, position, created_at, updated_at
FROM sticky_notes WHERE user_id = $1 ORDER BY position ASC, id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.UserID, &n.Content, &n.Color, &n.Position, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *Repository) Insert(ctx context.Context, n Note) (Note, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO sticky_notes (user_id, content, color, position, created_at, updated_at)
VALUES ($1, $2, $3, $4, NOW(), NOW()) RETURNING id, created_at, updated_at`,
		n.UserID, n.Content, n.Color, n.Position).Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt)
	return n, err
}

func (r *Repository) Get(ctx context.Context, id, userID int64) (Note, error) {
	var n Note
	err := r.pool.QueryRow(ctx, `SELECT id, user_id, content, color, position, created_at, updated_at
FROM sticky_notes WHERE id = $1 AND user_id = $2`, id, userID).
		Scan(&n.ID, &n.UserID, &n.Content, &n.Color, &n.Position, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Note{}, ErrNotFound
	}
	return n, err
}

func (r *Repository) Update(ctx context.Context, n Note) error {
	tag, err := r.pool.Exec(ctx, `UPDATE sticky_notes SET content = $1, color = $2, position = $3, updated_at = NOW()
WHERE id = $4 AND user_id = $5`, n.Content, n.Color, n.Position, n.ID, n.UserID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id, userID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sticky_notes WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
