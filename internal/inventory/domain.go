package inventory

import (
	"errors"
	"time"
)

// Item is a catalog entry with central stock tracked per item name.
type Item struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Unit         string    `json:"unit"`
	CentralStock float64   `json:"central_stock"`
	VendorIDs    []int64   `json:"vendor_ids,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// MovementType classifies a stock ledger row.
type MovementType string

const (
	MovementDeduct  MovementType = "DEDUCT"
	MovementRestock MovementType = "RESTOCK"
)

// LedgerEntry records one stock movement with the resulting balance.
type LedgerEntry struct {
	ID       int64        `json:"id"`
	ItemID   int64        `json:"item_id"`
	Type     MovementType `json:"type"`
	Qty      float64      `json:"qty"`
	Balance  float64      `json:"balance"`
	Reason   string       `json:"reason"`
	ActorID  int64        `json:"actor_id"`
	PostedAt time.Time    `json:"posted_at"`
}

var (
	// ErrNotFound indicates a missing catalog item.
	ErrNotFound = errors.New("inventory: item not found")
	// ErrInvalidQuantity rejects zero or negative movement quantities.
	ErrInvalidQuantity = errors.New("inventory: quantity must be positive")
	// ErrInsufficientStock refuses deductions that would drive stock negative.
	ErrInsufficientStock = errors.New("inventory: insufficient central stock")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("inventory: invalid input")
)
