package procurement

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists procurement data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by the service.
type TxRepository interface {
	CreateRequest(ctx context.Context, req PurchaseRequest) (int64, error)
	GetRequestForUpdate(ctx context.Context, id int64) (PurchaseRequest, error)
	UpdateRequestStatus(ctx context.Context, id int64, status RequestStatus) error
	UpdateRequestDetails(ctx context.Context, req PurchaseRequest) error
	GetComparisonForUpdate(ctx context.Context, requestID int64) (CostComparison, []Quote, error)
	CreateComparison(ctx context.Context, cc CostComparison) (int64, error)
	UpdateComparison(ctx context.Context, cc CostComparison) error
	UpsertQuote(ctx context.Context, quote Quote) (Quote, error)
	DeleteQuote(ctx context.Context, comparisonID, vendorID int64) error
	DeleteQuotes(ctx context.Context, comparisonID int64) error
	CreatePO(ctx context.Context, po PurchaseOrder) (int64, error)
	UpdatePOStatus(ctx context.Context, id int64, status POStatus) error
	SetPOApproval(ctx context.Context, id, actorID int64, signatureKey string, at time.Time) error
	SetPORejection(ctx context.Context, id int64, reason string) error
	SetPODelivered(ctx context.Context, id int64, at time.Time) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("procurement repository not initialised")
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

const requestColumns = `id, request_number, item_name, quantity, unit, description, is_urgent, status, site_id, created_by, photo_keys, item_order, created_at, updated_at`

func scanRequest(row pgx.Row) (PurchaseRequest, error) {
	var req PurchaseRequest
	var status string
	err := row.Scan(&req.ID, &req.RequestNumber, &req.ItemName, &req.Quantity, &req.Unit, &req.Description,
		&req.IsUrgent, &status, &req.SiteID, &req.CreatedBy, &req.PhotoKeys, &req.ItemOrder, &req.CreatedAt, &req.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return PurchaseRequest{}, ErrNotFound
	}
	req.Status = RequestStatus(status)
	return req, err
}

// GetRequest returns one request line.
func (r *Repository) GetRequest(ctx context.Context, id int64) (PurchaseRequest, error) {
	return scanRequest(r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM purchase_requests WHERE id = $1`, id))
}

// ListRequests returns request lines per filter with total count.
func (r *Repository) ListRequests(ctx context.Context, filter RequestFilter) ([]PurchaseRequest, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	add := func(clause string, value any) {
		args = append(args, value)
		where += clause + `$` + strconv.Itoa(len(args))
	}
	if filter.Status != "" {
		add(` AND status = `, string(filter.Status))
	}
	if filter.SiteID != 0 {
		add(` AND site_id = `, filter.SiteID)
	}
	if filter.CreatedBy != 0 {
		add(` AND created_by = `, filter.CreatedBy)
	}
	if filter.RequestNumber != "" {
		add(` AND request_number = `, filter.RequestNumber)
	}
	if filter.Urgent != nil {
		add(` AND is_urgent = `, *filter.Urgent)
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_requests`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + requestColumns + ` FROM purchase_requests` + where + ` ORDER BY created_at DESC, item_order ASC`
	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		args = append(args, filter.Limit, (page-1)*filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []PurchaseRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, req)
	}
	return out, total, rows.Err()
}

// ListStaleDrafts returns draft request lines created before cutoff.
func (r *Repository) ListStaleDrafts(ctx context.Context, cutoff time.Time) ([]PurchaseRequest, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+requestColumns+` FROM purchase_requests WHERE status = $1 AND created_at < $2 ORDER BY created_at ASC`,
		string(RequestStatusDraft), cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PurchaseRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// ListRequestGroup returns all lines of a request group in item order.
func (r *Repository) ListRequestGroup(ctx context.Context, requestNumber string) ([]PurchaseRequest, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+requestColumns+` FROM purchase_requests WHERE request_number = $1 ORDER BY item_order ASC`, requestNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PurchaseRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

const comparisonColumns = `id, request_id, status, is_direct_delivery, selected_vendor_id, manager_notes, purchase_quantity, inventory_fulfillment_quantity, created_by, reviewed_by, created_at, updated_at`

func scanComparison(row pgx.Row) (CostComparison, error) {
	var cc CostComparison
	var status string
	var selected, reviewed *int64
	err := row.Scan(&cc.ID, &cc.RequestID, &status, &cc.IsDirectDelivery, &selected, &cc.ManagerNotes,
		&cc.PurchaseQuantity, &cc.InventoryFulfillmentQuantity, &cc.CreatedBy, &reviewed, &cc.CreatedAt, &cc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return CostComparison{}, ErrNotFound
	}
	cc.Status = CCStatus(status)
	if selected != nil {
		cc.SelectedVendorID = *selected
	}
	if reviewed != nil {
		cc.ReviewedBy = *reviewed
	}
	return cc, err
}

// GetComparisonByRequest returns the comparison and its quotes.
func (r *Repository) GetComparisonByRequest(ctx context.Context, requestID int64) (CostComparison, []Quote, error) {
	cc, err := scanComparison(r.pool.QueryRow(ctx, `SELECT `+comparisonColumns+` FROM cost_comparisons WHERE request_id = $1`, requestID))
	if err != nil {
		return CostComparison{}, nil, err
	}
	quotes, err := queryQuotes(ctx, r.pool, cc.ID)
	return cc, quotes, err
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryQuotes(ctx context.Context, q querier, comparisonID int64) ([]Quote, error) {
	rows, err := q.Query(ctx, `SELECT id, comparison_id, vendor_id, unit_price, quantity, unit, discount_percent, gst_percent, per_unit_basis, position, created_at
FROM cost_comparison_quotes WHERE comparison_id = $1 ORDER BY position ASC`, comparisonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var quotes []Quote
	for rows.Next() {
		var quote Quote
		if err := rows.Scan(&quote.ID, &quote.ComparisonID, &quote.VendorID, &quote.UnitPrice, &quote.Quantity, &quote.Unit,
			&quote.DiscountPercent, &quote.GSTPercent, &quote.PerUnitBasis, &quote.Position, &quote.CreatedAt); err != nil {
			return nil, err
		}
		quotes = append(quotes, quote)
	}
	return quotes, rows.Err()
}

const poColumns = `id, po_number, request_number, is_direct, vendor_id, site_id, status, total_amount, valid_till, rejection_reason, actual_delivery_date, created_by, approved_by, signature_key, created_at, updated_at`

func scanPO(row pgx.Row) (PurchaseOrder, error) {
	var po PurchaseOrder
	var status string
	var validTill *time.Time
	var approvedBy *int64
	err := row.Scan(&po.ID, &po.PONumber, &po.RequestNumber, &po.IsDirect, &po.VendorID, &po.SiteID, &status,
		&po.TotalAmount, &validTill, &po.RejectionReason, &po.ActualDeliveryDate, &po.CreatedBy, &approvedBy,
		&po.SignatureKey, &po.CreatedAt, &po.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return PurchaseOrder{}, ErrNotFound
	}
	po.Status = POStatus(status)
	if validTill != nil {
		po.ValidTill = *validTill
	}
	if approvedBy != nil {
		po.ApprovedBy = *approvedBy
	}
	return po, err
}

// GetPO returns a purchase order with its items.
func (r *Repository) GetPO(ctx context.Context, id int64) (PurchaseOrder, error) {
	po, err := scanPO(r.pool.QueryRow(ctx, `SELECT `+poColumns+` FROM purchase_orders WHERE id = $1`, id))
	if err != nil {
		return PurchaseOrder{}, err
	}
	po.Items, err = r.poItems(ctx, id)
	return po, err
}

// ListPOs returns purchase orders per filter with total count. Items are not
// loaded for listings.
func (r *Repository) ListPOs(ctx context.Context, filter POFilter) ([]PurchaseOrder, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	add := func(clause string, value any) {
		args = append(args, value)
		where += clause + `$` + strconv.Itoa(len(args))
	}
	if filter.Status != "" {
		add(` AND status = `, string(filter.Status))
	}
	if filter.VendorID != 0 {
		add(` AND vendor_id = `, filter.VendorID)
	}
	if filter.SiteID != 0 {
		add(` AND site_id = `, filter.SiteID)
	}
	if filter.Direct != nil {
		add(` AND is_direct = `, *filter.Direct)
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + poColumns + ` FROM purchase_orders` + where + ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		args = append(args, filter.Limit, (page-1)*filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []PurchaseOrder
	for rows.Next() {
		po, err := scanPO(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, po)
	}
	return out, total, rows.Err()
}

func (r *Repository) poItems(ctx context.Context, poID int64) ([]POItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, po_id, COALESCE(request_id, 0), item_name, hsn_code, quantity, unit, unit_rate, discount_percent, gst_rate
FROM purchase_order_items WHERE po_id = $1 ORDER BY id ASC`, poID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []POItem
	for rows.Next() {
		var item POItem
		if err := rows.Scan(&item.ID, &item.POID, &item.RequestID, &item.ItemName, &item.HSNCode,
			&item.Quantity, &item.Unit, &item.UnitRate, &item.DiscountPercent, &item.GSTRate); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (t *txRepository) CreateRequest(ctx context.Context, req PurchaseRequest) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO purchase_requests
(request_number, item_name, quantity, unit, description, is_urgent, status, site_id, created_by, photo_keys, item_order, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW()) RETURNING id`,
		req.RequestNumber, req.ItemName, req.Quantity, req.Unit, req.Description, req.IsUrgent,
		string(req.Status), req.SiteID, req.CreatedBy, req.PhotoKeys, req.ItemOrder).Scan(&id)
	return id, err
}

func (t *txRepository) GetRequestForUpdate(ctx context.Context, id int64) (PurchaseRequest, error) {
	return scanRequest(t.tx.QueryRow(ctx, `SELECT `+requestColumns+` FROM purchase_requests WHERE id = $1 FOR UPDATE`, id))
}

func (t *txRepository) UpdateRequestStatus(ctx context.Context, id int64, status RequestStatus) error {
	tag, err := t.tx.Exec(ctx, `UPDATE purchase_requests SET status = $1, updated_at = NOW() WHERE id = $2`, string(status), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepository) UpdateRequestDetails(ctx context.Context, req PurchaseRequest) error {
	tag, err := t.tx.Exec(ctx, `UPDATE purchase_requests
SET item_name = $1, quantity = $2, unit = $3, description = $4, updated_at = NOW() WHERE id = $5`,
		req.ItemName, req.Quantity, req.Unit, req.Description, req.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepository) GetComparisonForUpdate(ctx context.Context, requestID int64) (CostComparison, []Quote, error) {
	cc, err := scanComparison(t.tx.QueryRow(ctx, `SELECT `+comparisonColumns+` FROM cost_comparisons WHERE request_id = $1 FOR UPDATE`, requestID))
	if err != nil {
		return CostComparison{}, nil, err
	}
	quotes, err := queryQuotes(ctx, t.tx, cc.ID)
	return cc, quotes, err
}

func (t *txRepository) CreateComparison(ctx context.Context, cc CostComparison) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO cost_comparisons
(request_id, status, is_direct_delivery, selected_vendor_id, manager_notes, purchase_quantity, inventory_fulfillment_quantity, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW()) RETURNING id`,
		cc.RequestID, string(cc.Status), cc.IsDirectDelivery, nullInt64(cc.SelectedVendorID), cc.ManagerNotes,
		cc.PurchaseQuantity, cc.InventoryFulfillmentQuantity, cc.CreatedBy).Scan(&id)
	return id, err
}

func (t *txRepository) UpdateComparison(ctx context.Context, cc CostComparison) error {
	tag, err := t.tx.Exec(ctx, `UPDATE cost_comparisons
SET status = $1, is_direct_delivery = $2, selected_vendor_id = $3, manager_notes = $4,
    purchase_quantity = $5, inventory_fulfillment_quantity = $6, reviewed_by = $7, updated_at = NOW()
WHERE id = $8`,
		string(cc.Status), cc.IsDirectDelivery, nullInt64(cc.SelectedVendorID), cc.ManagerNotes,
		cc.PurchaseQuantity, cc.InventoryFulfillmentQuantity, nullInt64(cc.ReviewedBy), cc.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepository) UpsertQuote(ctx context.Context, quote Quote) (Quote, error) {
	err := t.tx.QueryRow(ctx, `INSERT INTO cost_comparison_quotes
(comparison_id, vendor_id, unit_price, quantity, unit, discount_percent, gst_percent, per_unit_basis, position, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
ON CONFLICT (comparison_id, vendor_id) DO UPDATE SET
  unit_price = EXCLUDED.unit_price, quantity = EXCLUDED.quantity, unit = EXCLUDED.unit,
  discount_percent = EXCLUDED.discount_percent, gst_percent = EXCLUDED.gst_percent,
  per_unit_basis = EXCLUDED.per_unit_basis
RETURNING id, position, created_at`,
		quote.ComparisonID, quote.VendorID, quote.UnitPrice, quote.Quantity, quote.Unit,
		quote.DiscountPercent, quote.GSTPercent, quote.PerUnitBasis, quote.Position).
		Scan(&quote.ID, &quote.Position, &quote.CreatedAt)
	return quote, err
}

func (t *txRepository) DeleteQuote(ctx context.Context, comparisonID, vendorID int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM cost_comparison_quotes WHERE comparison_id = $1 AND vendor_id = $2`, comparisonID, vendorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepository) DeleteQuotes(ctx context.Context, comparisonID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM cost_comparison_quotes WHERE comparison_id = $1`, comparisonID)
	return err
}

func (t *txRepository) CreatePO(ctx context.Context, po PurchaseOrder) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO purchase_orders
(po_number, request_number, is_direct, vendor_id, site_id, status, total_amount, valid_till, rejection_reason, created_by, signature_key, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, '', $9, $10, NOW(), NOW()) RETURNING id`,
		po.PONumber, po.RequestNumber, po.IsDirect, po.VendorID, po.SiteID, string(po.Status),
		po.TotalAmount, nullTime(po.ValidTill), po.CreatedBy, po.SignatureKey).Scan(&id)
	if err != nil {
		return 0, err
	}
	for _, item := range po.Items {
		if _, err := t.tx.Exec(ctx, `INSERT INTO purchase_order_items
(po_id, request_id, item_name, hsn_code, quantity, unit, unit_rate, discount_percent, gst_rate)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			id, nullInt64(item.RequestID), item.ItemName, item.HSNCode, item.Quantity, item.Unit,
			item.UnitRate, item.DiscountPercent, item.GSTRate); err != nil {
			return 0, err
		}
	}
	return id, nil
}

func (t *txRepository) UpdatePOStatus(ctx context.Context, id int64, status POStatus) error {
	tag, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET status = $1, updated_at = NOW() WHERE id = $2`, string(status), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepository) SetPOApproval(ctx context.Context, id, actorID int64, signatureKey string, at time.Time) error {
	_, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET approved_by = $1, signature_key = $2, approved_at = $3, updated_at = NOW() WHERE id = $4`,
		actorID, signatureKey, at, id)
	return err
}

func (t *txRepository) SetPORejection(ctx context.Context, id int64, reason string) error {
	_, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET rejection_reason = $1, updated_at = NOW() WHERE id = $2`, reason, id)
	return err
}

func (t *txRepository) SetPODelivered(ctx context.Context, id int64, at time.Time) error {
	_, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET actual_delivery_date = $1, updated_at = NOW() WHERE id = $2`, at, id)
	return err
}

func nullInt64(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}

func nullTime(v time.Time) any {
	if v.IsZero() {
		return nil
	}
	return v
}
