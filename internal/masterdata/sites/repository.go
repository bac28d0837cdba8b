package sites

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ampere-erp/ampere-erp/internal/masterdata/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Site, int, error)
	Get(ctx context.Context, id int64) (Site, error)
	Create(ctx context.Context, site Site) (Site, error)
	Update(ctx context.Context, id int64, site Site) error
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
	UsageCount(ctx context.Context, id int64) (int, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Site, int, error) {
	query := `SELECT id, code, name, address, city, state, pin_code, is_active, created_at, updated_at FROM sites WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM sites WHERE 1=1`
	args := []any{}
	countArgs := []any{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		query += ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR code ILIKE $` + strconv.Itoa(argCount) + `)`
		countQuery += ` AND (name ILIKE $1 OR code ILIKE $1)`
		args = append(args, "%"+filters.Search+"%")
		countArgs = append(countArgs, "%"+filters.Search+"%")
	}
	if filters.IsActive != nil {
		argCount++
		query += ` AND is_active = $` + strconv.Itoa(argCount)
		countQuery += ` AND is_active = $` + strconv.Itoa(len(countArgs)+1)
		args = append(args, *filters.IsActive)
		countArgs = append(countArgs, *filters.IsActive)
	}

	var total int
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dir := "ASC"
	if filters.SortDir == shared.SortDesc {
		dir = "DESC"
	}
	query += " ORDER BY name " + dir

	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)

		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		offset := (filters.Page - 1) * filters.Limit
		if offset < 0 {
			offset = 0
		}
		args = append(args, offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Site
	for rows.Next() {
		var s Site
		if err := rows.Scan(&s.ID, &s.Code, &s.Name, &s.Address, &s.City, &s.State, &s.PINCode, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Site, error) {
	var s Site
	err := r.db.QueryRow(ctx, `SELECT id, code, name, address, city, state, pin_code, is_active, created_at, updated_at FROM sites WHERE id = $1`, id).
		Scan(&s.ID, &s.Code, &s.Name, &s.Address, &s.City, &s.State, &s.PINCode, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Site{}, shared.ErrNotFound
	}
	return s, err
}

func (r *repository) Create(ctx context.Context, site Site) (Site, error) {
	now := time.Now()
	err := r.db.QueryRow(ctx, `INSERT INTO sites (code, name, address, city, state, pin_code, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, $7) RETURNING id`, site.Code, site.Name, site.Address, site.City, site.State, site.PINCode, now).Scan(&site.ID)
	if err != nil {
		return Site{}, err
	}
	site.IsActive = true
	site.CreatedAt = now
	site.UpdatedAt = now
	return site, nil
}

func (r *repository) Update(ctx context.Context, id int64, site Site) error {
	_, err := r.db.Exec(ctx, `UPDATE sites SET code = $1, name = $2, address = $3, city = $4, state = $5, pin_code = $6, updated_at = $7 WHERE id = $8`,
		site.Code, site.Name, site.Address, site.City, site.State, site.PINCode, time.Now(), id)
	return err
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) error {
	_, err := r.db.Exec(ctx, `UPDATE sites SET is_active = $1, updated_at = NOW() WHERE id = $2`, active, id)
	return err
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM sites WHERE id = $1`, id)
	return err
}

// UsageCount counts active users assigned to the site plus requests and
// purchase orders that are still in flight.
func (r *repository) UsageCount(ctx context.Context, id int64) (int, error) {
	query := `SELECT
  (SELECT COUNT(*) FROM users WHERE site_id = $1) +
  (SELECT COUNT(*) FROM purchase_requests WHERE site_id = $1 AND status NOT IN ('approved', 'rejected', 'cancelled')) +
  (SELECT COUNT(*) FROM purchase_orders WHERE site_id = $1 AND status IN ('pending_approval', 'ordered'))`
	var count int
	err := r.db.QueryRow(ctx, query, id).Scan(&count)
	return count, err
}
