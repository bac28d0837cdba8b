package procurement

import (
	"errors"
	"time"
)

// Purchase request lifecycle statuses.
type RequestStatus string

const (
	RequestStatusDraft         RequestStatus = "draft"
	RequestStatusPending       RequestStatus = "pending"
	RequestStatusReadyForCC    RequestStatus = "ready_for_cc"
	RequestStatusCCPending     RequestStatus = "cc_pending"
	RequestStatusReadyForPO    RequestStatus = "ready_for_po"
	RequestStatusDeliveryStage RequestStatus = "delivery_stage"
	RequestStatusApproved      RequestStatus = "approved"
	RequestStatusRejected      RequestStatus = "rejected"
	RequestStatusCancelled     RequestStatus = "cancelled"
)

// requestTransitions is the single authoritative transition table for
// purchase requests. Every status change goes through CanTransition; no
// scattered status checks.
var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestStatusDraft:         {RequestStatusPending, RequestStatusCancelled},
	RequestStatusPending:       {RequestStatusReadyForCC, RequestStatusRejected, RequestStatusCancelled},
	RequestStatusReadyForCC:    {RequestStatusCCPending, RequestStatusDeliveryStage, RequestStatusCancelled},
	RequestStatusCCPending:     {RequestStatusReadyForPO, RequestStatusReadyForCC, RequestStatusDeliveryStage, RequestStatusCancelled},
	RequestStatusReadyForPO:    {RequestStatusDeliveryStage, RequestStatusCancelled},
	RequestStatusDeliveryStage: {RequestStatusApproved, RequestStatusCancelled},
	RequestStatusApproved:      {},
	RequestStatusRejected:      {},
	RequestStatusCancelled:     {},
}

// CanTransition reports whether the request status graph allows from -> to.
func (s RequestStatus) CanTransition(to RequestStatus) bool {
	for _, next := range requestTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions exist.
func (s RequestStatus) Terminal() bool {
	return len(requestTransitions[s]) == 0
}

// Cost comparison statuses.
type CCStatus string

const (
	CCStatusDraft    CCStatus = "draft"
	CCStatusPending  CCStatus = "cc_pending"
	CCStatusApproved CCStatus = "cc_approved"
	CCStatusRejected CCStatus = "cc_rejected"
)

// Editable reports whether quotes may still be added or removed.
func (s CCStatus) Editable() bool {
	return s == CCStatusDraft || s == CCStatusRejected
}

// Purchase order statuses.
type POStatus string

const (
	POStatusPendingApproval POStatus = "pending_approval"
	POStatusOrdered         POStatus = "ordered"
	POStatusDelivered       POStatus = "delivered"
	POStatusCancelled       POStatus = "cancelled"
	POStatusRejected        POStatus = "rejected"
)

var poTransitions = map[POStatus][]POStatus{
	POStatusPendingApproval: {POStatusOrdered, POStatusRejected},
	POStatusOrdered:         {POStatusDelivered, POStatusCancelled},
	POStatusDelivered:       {},
	POStatusCancelled:       {},
	POStatusRejected:        {},
}

// CanTransition reports whether the PO status graph allows from -> to.
func (s POStatus) CanTransition(to POStatus) bool {
	for _, next := range poTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the PO status admits no further transitions.
func (s POStatus) Terminal() bool {
	return len(poTransitions[s]) == 0
}

// PurchaseRequest is one requested line item. Sibling lines created together
// share a RequestNumber and are ordered by ItemOrder.
type PurchaseRequest struct {
	ID            int64         `json:"id"`
	RequestNumber string        `json:"request_number"`
	ItemName      string        `json:"item_name"`
	Quantity      float64       `json:"quantity"`
	Unit          string        `json:"unit"`
	Description   string        `json:"description,omitempty"`
	IsUrgent      bool          `json:"is_urgent"`
	Status        RequestStatus `json:"status"`
	SiteID        int64         `json:"site_id"`
	CreatedBy     int64         `json:"created_by"`
	PhotoKeys     []string      `json:"photo_keys,omitempty"`
	ItemOrder     int           `json:"item_order"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Quote is one vendor's offer inside a cost comparison. PerUnitBasis lets a
// vendor quote a bundle price; comparisons always normalise to a single unit.
type Quote struct {
	ID              int64     `json:"id"`
	ComparisonID    int64     `json:"comparison_id"`
	VendorID        int64     `json:"vendor_id"`
	UnitPrice       float64   `json:"unit_price"`
	Quantity        float64   `json:"quantity"`
	Unit            string    `json:"unit"`
	DiscountPercent float64   `json:"discount_percent"`
	GSTPercent      float64   `json:"gst_percent"`
	PerUnitBasis    float64   `json:"per_unit_basis"`
	Position        int       `json:"position"`
	CreatedAt       time.Time `json:"created_at"`
}

// NormalizedPrice is the per-single-unit price.
func (q Quote) NormalizedPrice() float64 {
	basis := q.PerUnitBasis
	if basis <= 0 {
		basis = 1
	}
	return q.UnitPrice / basis
}

// CostComparison is the one-to-one companion of a purchase request holding
// competing vendor quotes and the manager decision.
type CostComparison struct {
	ID                           int64     `json:"id"`
	RequestID                    int64     `json:"request_id"`
	Status                       CCStatus  `json:"status"`
	IsDirectDelivery             bool      `json:"is_direct_delivery"`
	SelectedVendorID             int64     `json:"selected_vendor_id,omitempty"`
	ManagerNotes                 string    `json:"manager_notes,omitempty"`
	PurchaseQuantity             float64   `json:"purchase_quantity,omitempty"`
	InventoryFulfillmentQuantity float64   `json:"inventory_fulfillment_quantity,omitempty"`
	CreatedBy                    int64     `json:"created_by"`
	ReviewedBy                   int64     `json:"reviewed_by,omitempty"`
	CreatedAt                    time.Time `json:"created_at"`
	UpdatedAt                    time.Time `json:"updated_at"`
}

// POItem is one line on a purchase order. A PO may aggregate several request
// lines from the same request group.
type POItem struct {
	ID              int64   `json:"id"`
	POID            int64   `json:"po_id"`
	RequestID       int64   `json:"request_id,omitempty"`
	ItemName        string  `json:"item_name"`
	HSNCode         string  `json:"hsn_code,omitempty"`
	Quantity        float64 `json:"quantity"`
	Unit            string  `json:"unit"`
	UnitRate        float64 `json:"unit_rate"`
	DiscountPercent float64 `json:"discount_percent"`
	GSTRate         float64 `json:"gst_rate"`
}

// PurchaseOrder is the commercial document. Standard POs are born ordered
// from an approved cost comparison; direct POs are born pending_approval.
type PurchaseOrder struct {
	ID                 int64      `json:"id"`
	PONumber           string     `json:"po_number"`
	RequestNumber      string     `json:"request_number,omitempty"`
	IsDirect           bool       `json:"is_direct"`
	VendorID           int64      `json:"vendor_id"`
	SiteID             int64      `json:"site_id"`
	Status             POStatus   `json:"status"`
	TotalAmount        float64    `json:"total_amount"`
	ValidTill          time.Time  `json:"valid_till,omitempty"`
	RejectionReason    string     `json:"rejection_reason,omitempty"`
	ActualDeliveryDate *time.Time `json:"actual_delivery_date,omitempty"`
	CreatedBy          int64      `json:"created_by"`
	ApprovedBy         int64      `json:"approved_by,omitempty"`
	SignatureKey       string     `json:"signature_key,omitempty"`
	Items              []POItem   `json:"items,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

var (
	// ErrInvalidState occurs when an action violates the status workflow.
	ErrInvalidState = errors.New("procurement: invalid state transition")
	// ErrNotFound indicates a missing record.
	ErrNotFound = errors.New("procurement: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("procurement: invalid input")
	// ErrForbidden indicates the caller's role does not permit the action.
	ErrForbidden = errors.New("procurement: action not permitted for role")
)
