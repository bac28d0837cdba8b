package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ampere-erp/ampere-erp/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, search string, page, limit int) ([]Item, int, error)
	GetByName(ctx context.Context, name string) (Item, error)
	Upsert(ctx context.Context, item Item) (Item, error)
	Ledger(ctx context.Context, itemID int64, limit int) ([]LedgerEntry, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates catalog and central-stock operations.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// List returns catalog items.
func (s *Service) List(ctx context.Context, search string, page, limit int) ([]Item, int, error) {
	return s.repo.List(ctx, search, page, limit)
}

// GetByName fetches a catalog item; used by the direct-delivery check.
func (s *Service) GetByName(ctx context.Context, name string) (Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Item{}, ErrValidation
	}
	return s.repo.GetByName(ctx, name)
}

// Upsert creates or updates a catalog item.
func (s *Service) Upsert(ctx context.Context, item Item) (Item, error) {
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" || strings.TrimSpace(item.Unit) == "" {
		return Item{}, ErrValidation
	}
	if item.CentralStock < 0 {
		return Item{}, ErrInvalidQuantity
	}
	return s.repo.Upsert(ctx, item)
}

// Ledger lists recent stock movements for an item.
func (s *Service) Ledger(ctx context.Context, itemID int64, limit int) ([]LedgerEntry, error) {
	if itemID <= 0 {
		return nil, ErrValidation
	}
	return s.repo.Ledger(ctx, itemID, limit)
}

// DeductStock atomically decrements central stock for the named item. The
// item row stays locked from read to write, so two concurrent deductions
// cannot overdraw the stock. Returns the new stock level.
func (s *Service) DeductStock(ctx context.Context, itemName string, qty float64, reason string, actorID int64) (float64, error) {
	if qty <= 0 {
		return 0, ErrInvalidQuantity
	}
	itemName = strings.TrimSpace(itemName)
	if itemName == "" {
		return 0, ErrValidation
	}
	var newStock float64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := tx.GetItemForUpdate(ctx, itemName)
		if err != nil {
			return err
		}
		if item.CentralStock < qty {
			return fmt.Errorf("%w: have %.2f, want %.2f", ErrInsufficientStock, item.CentralStock, qty)
		}
		newStock = item.CentralStock - qty
		if err := tx.SetStock(ctx, item.ID, newStock); err != nil {
			return err
		}
		return tx.InsertLedgerEntry(ctx, LedgerEntry{
			ItemID:   item.ID,
			Type:     MovementDeduct,
			Qty:      qty,
			Balance:  newStock,
			Reason:   reason,
			ActorID:  actorID,
			PostedAt: time.Now().UTC(),
		})
	})
	if err != nil {
		return 0, err
	}
	s.recordAudit(ctx, actorID, "STOCK_DEDUCT", itemName, map[string]any{"qty": qty, "balance": newStock, "reason": reason})
	return newStock, nil
}

// RestockItem adds quantity to central stock, e.g. on goods received.
func (s *Service) RestockItem(ctx context.Context, itemName string, qty float64, reason string, actorID int64) (float64, error) {
	if qty <= 0 {
		return 0, ErrInvalidQuantity
	}
	itemName = strings.TrimSpace(itemName)
	if itemName == "" {
		return 0, ErrValidation
	}
	var newStock float64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := tx.GetItemForUpdate(ctx, itemName)
		if err != nil {
			return err
		}
		newStock = item.CentralStock + qty
		if err := tx.SetStock(ctx, item.ID, newStock); err != nil {
			return err
		}
		return tx.InsertLedgerEntry(ctx, LedgerEntry{
			ItemID:   item.ID,
			Type:     MovementRestock,
			Qty:      qty,
			Balance:  newStock,
			Reason:   reason,
			ActorID:  actorID,
			PostedAt: time.Now().UTC(),
		})
	})
	if err != nil {
		return 0, err
	}
	s.recordAudit(ctx, actorID, "STOCK_RESTOCK", itemName, map[string]any{"qty": qty, "balance": newStock, "reason": reason})
	return newStock, nil
}

// HasStock reports whether the named item can cover the requested quantity.
func (s *Service) HasStock(ctx context.Context, itemName string, qty float64) (bool, error) {
	item, err := s.repo.GetByName(ctx, strings.TrimSpace(itemName))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return item.CentralStock >= qty, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: "inventory", EntityID: entityID, Meta: meta})
}
