package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryInventoryRepo struct {
	items      map[string]Item
	ledger     map[int64][]LedgerEntry
	nextItemID int64
	nextLogID  int64
}

type memoryInventoryTx struct {
	repo *memoryInventoryRepo
}

func newMemoryInventoryRepo() *memoryInventoryRepo {
	return &memoryInventoryRepo{
		items:  make(map[string]Item),
		ledger: make(map[int64][]LedgerEntry),
	}
}

func (r *memoryInventoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryInventoryTx{repo: r})
}

func (r *memoryInventoryRepo) List(ctx context.Context, search string, page, limit int) ([]Item, int, error) {
	var out []Item
	for _, item := range r.items {
		out = append(out, item)
	}
	return out, len(out), nil
}

func (r *memoryInventoryRepo) GetByName(ctx context.Context, name string) (Item, error) {
	item, ok := r.items[name]
	if !ok {
		return Item{}, ErrNotFound
	}
	return item, nil
}

func (r *memoryInventoryRepo) Upsert(ctx context.Context, item Item) (Item, error) {
	if existing, ok := r.items[item.Name]; ok {
		item.ID = existing.ID
		item.CentralStock = existing.CentralStock
	} else {
		r.nextItemID++
		item.ID = r.nextItemID
	}
	item.UpdatedAt = time.Now().UTC()
	r.items[item.Name] = item
	return item, nil
}

func (r *memoryInventoryRepo) Ledger(ctx context.Context, itemID int64, limit int) ([]LedgerEntry, error) {
	return append([]LedgerEntry(nil), r.ledger[itemID]...), nil
}

func (t *memoryInventoryTx) GetItemForUpdate(ctx context.Context, name string) (Item, error) {
	return t.repo.GetByName(ctx, name)
}

func (t *memoryInventoryTx) SetStock(ctx context.Context, itemID int64, stock float64) error {
	for name, item := range t.repo.items {
		if item.ID == itemID {
			item.CentralStock = stock
			t.repo.items[name] = item
			return nil
		}
	}
	return ErrNotFound
}

func (t *memoryInventoryTx) InsertLedgerEntry(ctx context.Context, entry LedgerEntry) error {
	t.repo.nextLogID++
	entry.ID = t.repo.nextLogID
	t.repo.ledger[entry.ItemID] = append(t.repo.ledger[entry.ItemID], entry)
	return nil
}

func seedItem(t *testing.T, repo *memoryInventoryRepo, name string, stock float64) Item {
	t.Helper()
	item, err := repo.Upsert(context.Background(), Item{Name: name, Unit: "pcs"})
	require.NoError(t, err)
	item.CentralStock = stock
	repo.items[name] = item
	return item
}

func TestDeductStock(t *testing.T) {
	repo := newMemoryInventoryRepo()
	svc := NewService(repo, nil)
	seedItem(t, repo, "Copper Wire 2.5mm", 50)

	balance, err := svc.DeductStock(context.Background(), "Copper Wire 2.5mm", 30, "issued to assembly", 7)
	require.NoError(t, err)
	require.Equal(t, float64(20), balance)

	item, err := repo.GetByName(context.Background(), "Copper Wire 2.5mm")
	require.NoError(t, err)
	require.Equal(t, float64(20), item.CentralStock)

	entries, err := repo.Ledger(context.Background(), item.ID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, MovementDeduct, entries[0].Type)
	require.Equal(t, float64(30), entries[0].Qty)
	require.Equal(t, float64(20), entries[0].Balance)
}

func TestDeductStockInsufficient(t *testing.T) {
	repo := newMemoryInventoryRepo()
	svc := NewService(repo, nil)
	seedItem(t, repo, "MCB 32A", 10)

	_, err := svc.DeductStock(context.Background(), "MCB 32A", 25, "issued", 7)
	require.ErrorIs(t, err, ErrInsufficientStock)

	item, err := repo.GetByName(context.Background(), "MCB 32A")
	require.NoError(t, err)
	require.Equal(t, float64(10), item.CentralStock)
	entries, err := repo.Ledger(context.Background(), item.ID, 0)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestDeductStockInvalidQuantity(t *testing.T) {
	repo := newMemoryInventoryRepo()
	svc := NewService(repo, nil)
	seedItem(t, repo, "MCB 32A", 10)

	_, err := svc.DeductStock(context.Background(), "MCB 32A", 0, "issued", 7)
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.DeductStock(context.Background(), "MCB 32A", -5, "issued", 7)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestDeductStockUnknownItem(t *testing.T) {
	repo := newMemoryInventoryRepo()
	svc := NewService(repo, nil)

	_, err := svc.DeductStock(context.Background(), "does not exist", 1, "issued", 7)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRestockItem(t *testing.T) {
	repo := newMemoryInventoryRepo()
	svc := NewService(repo, nil)
	seedItem(t, repo, "Solder Wire", 5)

	balance, err := svc.RestockItem(context.Background(), "Solder Wire", 15, "goods received", 3)
	require.NoError(t, err)
	require.Equal(t, float64(20), balance)

	item, err := repo.GetByName(context.Background(), "Solder Wire")
	require.NoError(t, err)
	entries, err := repo.Ledger(context.Background(), item.ID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, MovementRestock, entries[0].Type)
}

func TestHasStock(t *testing.T) {
	repo := newMemoryInventoryRepo()
	svc := NewService(repo, nil)
	seedItem(t, repo, "Relay 12V", 8)

	ok, err := svc.HasStock(context.Background(), "Relay 12V", 8)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = svc.HasStock(context.Background(), "Relay 12V", 9)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = svc.HasStock(context.Background(), "missing", 1)
	require.NoError(t, err)
	require.False(t, ok)
}
