package inventory

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by the service.
type TxRepository interface {
	GetItemForUpdate(ctx context.Context, name string) (Item, error)
	SetStock(ctx context.Context, itemID int64, stock float64) error
	InsertLedgerEntry(ctx context.Context, entry LedgerEntry) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("inventory repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// List returns catalog items filtered by an optional search term.
func (r *Repository) List(ctx context.Context, search string, page, limit int) ([]Item, int, error) {
	query := `SELECT id, name, unit, central_stock, created_at, updated_at FROM inventory_items WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM inventory_items WHERE 1=1`
	args := []any{}
	countArgs := []any{}
	if search != "" {
		query += ` AND name ILIKE $1`
		countQuery += ` AND name ILIKE $1`
		args = append(args, "%"+search+"%")
		countArgs = append(countArgs, "%"+search+"%")
	}
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query += ` ORDER BY name ASC`
	if limit > 0 {
		query += ` LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
		offset := (page - 1) * limit
		if offset < 0 {
			offset = 0
		}
		args = append(args, limit, offset)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.Name, &item.Unit, &item.CentralStock, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

// GetByName returns the catalog item with the given name.
func (r *Repository) GetByName(ctx context.Context, name string) (Item, error) {
	var item Item
	err := r.pool.QueryRow(ctx, `SELECT id, name, unit, central_stock, created_at, updated_at FROM inventory_items WHERE name = $1`, name).
		Scan(&item.ID, &item.Name, &item.Unit, &item.CentralStock, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrNotFound
	}
	if err != nil {
		return Item{}, err
	}
	item.VendorIDs, err = r.vendorIDs(ctx, item.ID)
	return item, err
}

// Upsert creates or refreshes a catalog item and its vendor references.
func (r *Repository) Upsert(ctx context.Context, item Item) (Item, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO inventory_items (name, unit, central_stock, created_at, updated_at)
VALUES ($1, $2, $3, NOW(), NOW())
ON CONFLICT (name) DO UPDATE SET unit = EXCLUDED.unit, updated_at = NOW()
RETURNING id, central_stock, created_at, updated_at`, item.Name, item.Unit, item.CentralStock).
		Scan(&item.ID, &item.CentralStock, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Item{}, err
	}
	if _, err := r.pool.Exec(ctx, `DELETE FROM inventory_item_vendors WHERE item_id = $1`, item.ID); err != nil {
		return Item{}, err
	}
	for _, vendorID := range item.VendorIDs {
		if _, err := r.pool.Exec(ctx, `INSERT INTO inventory_item_vendors (item_id, vendor_id) VALUES ($1, $2)`, item.ID, vendorID); err != nil {
			return Item{}, err
		}
	}
	return item, nil
}

// Ledger lists stock movements for one item, newest first.
func (r *Repository) Ledger(ctx context.Context, itemID int64, limit int) ([]LedgerEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT id, item_id, movement_type, qty, balance, reason, actor_id, posted_at
FROM inventory_ledger WHERE item_id = $1 ORDER BY posted_at DESC, id DESC LIMIT $2`, itemID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		var movement string
		if err := rows.Scan(&e.ID, &e.ItemID, &movement, &e.Qty, &e.Balance, &e.Reason, &e.ActorID, &e.PostedAt); err != nil {
			return nil, err
		}
		e.Type = MovementType(movement)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *Repository) vendorIDs(ctx context.Context, itemID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT vendor_id FROM inventory_item_vendors WHERE item_id = $1 ORDER BY vendor_id ASC`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetItemForUpdate locks the item row for the duration of the transaction.
func (r *txRepository) GetItemForUpdate(ctx context.Context, name string) (Item, error) {
	var item Item
	err := r.tx.QueryRow(ctx, `SELECT id, name, unit, central_stock, created_at, updated_at FROM inventory_items WHERE name = $1 FOR UPDATE`, name).
		Scan(&item.ID, &item.Name, &item.Unit, &item.CentralStock, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrNotFound
	}
	return item, err
}

func (r *txRepository) SetStock(ctx context.Context, itemID int64, stock float64) error {
	_, err := r.tx.Exec(ctx, `UPDATE inventory_items SET central_stock = $1, updated_at = NOW() WHERE id = $2`, stock, itemID)
	return err
}

func (r *txRepository) InsertLedgerEntry(ctx context.Context, entry LedgerEntry) error {
	postedAt := entry.PostedAt
	if postedAt.IsZero() {
		postedAt = time.Now().UTC()
	}
	_, err := r.tx.Exec(ctx, `INSERT INTO inventory_ledger (item_id, movement_type, qty, balance, reason, actor_id, posted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`, entry.ItemID, string(entry.Type), entry.Qty, entry.Balance, entry.Reason, nullInt(entry.ActorID), postedAt)
	return err
}

func nullInt(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}
