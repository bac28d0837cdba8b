package procurement

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ampere-erp/ampere-erp/internal/shared"
)

// QuoteInput is one vendor offer supplied by the purchase officer.
type QuoteInput struct {
	VendorID        int64
	UnitPrice       float64
	Quantity        float64
	Unit            string
	DiscountPercent float64
	GSTPercent      float64
	PerUnitBasis    float64
}

func (in *QuoteInput) validate() error {
	if in.VendorID == 0 {
		return fmt.Errorf("%w: vendor required", ErrValidation)
	}
	if in.UnitPrice < 0 {
		return fmt.Errorf("%w: unit price must not be negative", ErrValidation)
	}
	if in.DiscountPercent < 0 || in.DiscountPercent > 100 {
		return fmt.Errorf("%w: discount percent outside [0,100]", ErrValidation)
	}
	if in.GSTPercent < 0 || in.GSTPercent > 100 {
		return fmt.Errorf("%w: gst percent outside [0,100]", ErrValidation)
	}
	if in.PerUnitBasis == 0 {
		in.PerUnitBasis = 1
	}
	if in.PerUnitBasis < 0 {
		return fmt.Errorf("%w: per-unit basis must be positive", ErrValidation)
	}
	return nil
}

// GetComparison returns the comparison and its quotes for a request. A
// request without a comparison yet yields a synthetic draft so callers can
// render an empty editor.
func (s *Service) GetComparison(ctx context.Context, requestID int64) (CostComparison, []Quote, error) {
	cc, quotes, err := s.repo.GetComparisonByRequest(ctx, requestID)
	if errors.Is(err, ErrNotFound) {
		return CostComparison{RequestID: requestID, Status: CCStatusDraft}, nil, nil
	}
	return cc, quotes, err
}

// AddOrUpdateQuote upserts a quote keyed by vendor, creating the comparison
// in draft if none exists. Allowed only while the comparison is editable.
func (s *Service) AddOrUpdateQuote(ctx context.Context, requestID int64, input QuoteInput, actor shared.Identity) (Quote, error) {
	if err := input.validate(); err != nil {
		return Quote{}, err
	}
	req, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return Quote{}, err
	}
	var saved Quote
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		cc, quotes, err := tx.GetComparisonForUpdate(ctx, requestID)
		if errors.Is(err, ErrNotFound) {
			cc = CostComparison{RequestID: requestID, Status: CCStatusDraft, CreatedBy: actor.UserID}
			cc.ID, err = tx.CreateComparison(ctx, cc)
		}
		if err != nil {
			return err
		}
		if !cc.Status.Editable() {
			return fmt.Errorf("%w: comparison is %s", ErrInvalidState, cc.Status)
		}
		quote := Quote{
			ComparisonID:    cc.ID,
			VendorID:        input.VendorID,
			UnitPrice:       input.UnitPrice,
			Quantity:        defaultFloat(input.Quantity, req.Quantity),
			Unit:            defaultString(strings.TrimSpace(input.Unit), req.Unit),
			DiscountPercent: input.DiscountPercent,
			GSTPercent:      input.GSTPercent,
			PerUnitBasis:    input.PerUnitBasis,
			Position:        nextPosition(quotes, input.VendorID),
		}
		saved, err = tx.UpsertQuote(ctx, quote)
		return err
	})
	if err != nil {
		return Quote{}, err
	}
	s.recordAudit(ctx, actor.UserID, "CC_QUOTE_SAVE", req.RequestNumber, map[string]any{"request_id": requestID, "vendor_id": input.VendorID, "unit_price": input.UnitPrice})
	return saved, nil
}

// RemoveQuote deletes one vendor's quote while the comparison is editable.
func (s *Service) RemoveQuote(ctx context.Context, requestID, vendorID int64, actor shared.Identity) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		cc, _, err := tx.GetComparisonForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if !cc.Status.Editable() {
			return fmt.Errorf("%w: comparison is %s", ErrInvalidState, cc.Status)
		}
		return tx.DeleteQuote(ctx, cc.ID, vendorID)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actor.UserID, "CC_QUOTE_REMOVE", fmt.Sprintf("%d", requestID), map[string]any{"vendor_id": vendorID})
	return nil
}

// SubmitComparison sends the quote set for manager review. At least one
// quote must exist; the two-quote comparison minimum is a client concern.
func (s *Service) SubmitComparison(ctx context.Context, requestID int64, actor shared.Identity) error {
	req, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		cc, quotes, err := tx.GetComparisonForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if !cc.Status.Editable() {
			return fmt.Errorf("%w: comparison is %s", ErrInvalidState, cc.Status)
		}
		if len(quotes) == 0 {
			return fmt.Errorf("%w: cannot submit without quotes", ErrValidation)
		}
		cc.Status = CCStatusPending
		if err := tx.UpdateComparison(ctx, cc); err != nil {
			return err
		}
		return transitionRequestTx(ctx, tx, req, RequestStatusCCPending)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actor.UserID, "CC_SUBMIT", req.RequestNumber, map[string]any{"request_id": requestID})
	s.publish(ctx, WorkflowEvent{
		Kind:       EventCCSubmitted,
		Title:      "Cost comparison awaiting review",
		Body:       fmt.Sprintf("Request %s (%s) has a cost comparison pending review.", req.RequestNumber, req.ItemName),
		Entity:     "cost_comparison",
		EntityID:   requestID,
		TargetRole: shared.RoleManager,
		ActorID:    actor.UserID,
	})
	return nil
}

// ReviewInput carries the manager decision.
type ReviewInput struct {
	Approve          bool
	SelectedVendorID int64
	Notes            string
}

// ReviewComparison resolves a pending comparison. Approval requires the
// selected vendor to hold a quote; rejection requires non-empty notes and
// hands the request back to the officer.
func (s *Service) ReviewComparison(ctx context.Context, requestID int64, input ReviewInput, actor shared.Identity) error {
	if !actor.IsManager() {
		return ErrForbidden
	}
	req, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	var submittedBy int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		cc, quotes, err := tx.GetComparisonForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if cc.Status != CCStatusPending {
			return fmt.Errorf("%w: comparison is %s", ErrInvalidState, cc.Status)
		}
		submittedBy = cc.CreatedBy
		if input.Approve {
			if !hasVendorQuote(quotes, input.SelectedVendorID) {
				return fmt.Errorf("%w: selected vendor has no quote", ErrValidation)
			}
			cc.Status = CCStatusApproved
			cc.SelectedVendorID = input.SelectedVendorID
			cc.ManagerNotes = input.Notes
			cc.ReviewedBy = actor.UserID
			if err := tx.UpdateComparison(ctx, cc); err != nil {
				return err
			}
			return transitionRequestTx(ctx, tx, req, RequestStatusReadyForPO)
		}
		if strings.TrimSpace(input.Notes) == "" {
			return fmt.Errorf("%w: rejection requires notes", ErrValidation)
		}
		cc.Status = CCStatusRejected
		cc.ManagerNotes = input.Notes
		cc.ReviewedBy = actor.UserID
		if err := tx.UpdateComparison(ctx, cc); err != nil {
			return err
		}
		return transitionRequestTx(ctx, tx, req, RequestStatusReadyForCC)
	})
	if err != nil {
		return err
	}
	if input.Approve {
		s.recordAudit(ctx, actor.UserID, "CC_APPROVE", req.RequestNumber, map[string]any{"request_id": requestID, "vendor_id": input.SelectedVendorID})
		s.publish(ctx, WorkflowEvent{
			Kind:         EventCCApproved,
			Title:        "Cost comparison approved",
			Body:         fmt.Sprintf("Request %s: vendor selected, ready for purchase order.", req.RequestNumber),
			Entity:       "cost_comparison",
			EntityID:     requestID,
			TargetUserID: submittedBy,
			ActorID:      actor.UserID,
		})
		return nil
	}
	s.recordAudit(ctx, actor.UserID, "CC_REJECT", req.RequestNumber, map[string]any{"request_id": requestID, "notes": input.Notes})
	s.publish(ctx, WorkflowEvent{
		Kind:         EventCCRejected,
		Title:        "Cost comparison rejected",
		Body:         fmt.Sprintf("Request %s: %s", req.RequestNumber, input.Notes),
		Entity:       "cost_comparison",
		EntityID:     requestID,
		TargetUserID: submittedBy,
		ActorID:      actor.UserID,
	})
	return nil
}

// ResubmitComparison replaces the quote set after a rejection and sends it
// straight back to review. Valid only from cc_rejected.
func (s *Service) ResubmitComparison(ctx context.Context, requestID int64, quotes []QuoteInput, actor shared.Identity) error {
	if len(quotes) == 0 {
		return fmt.Errorf("%w: cannot resubmit without quotes", ErrValidation)
	}
	for i := range quotes {
		if err := quotes[i].validate(); err != nil {
			return err
		}
	}
	req, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		cc, _, err := tx.GetComparisonForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if cc.Status != CCStatusRejected {
			return fmt.Errorf("%w: comparison is %s", ErrInvalidState, cc.Status)
		}
		if err := tx.DeleteQuotes(ctx, cc.ID); err != nil {
			return err
		}
		for i, in := range quotes {
			quote := Quote{
				ComparisonID:    cc.ID,
				VendorID:        in.VendorID,
				UnitPrice:       in.UnitPrice,
				Quantity:        defaultFloat(in.Quantity, req.Quantity),
				Unit:            defaultString(strings.TrimSpace(in.Unit), req.Unit),
				DiscountPercent: in.DiscountPercent,
				GSTPercent:      in.GSTPercent,
				PerUnitBasis:    in.PerUnitBasis,
				Position:        i,
			}
			if _, err := tx.UpsertQuote(ctx, quote); err != nil {
				return err
			}
		}
		cc.Status = CCStatusPending
		if err := tx.UpdateComparison(ctx, cc); err != nil {
			return err
		}
		return transitionRequestTx(ctx, tx, req, RequestStatusCCPending)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actor.UserID, "CC_RESUBMIT", req.RequestNumber, map[string]any{"request_id": requestID, "quotes": len(quotes)})
	s.publish(ctx, WorkflowEvent{
		Kind:       EventCCSubmitted,
		Title:      "Cost comparison resubmitted",
		Body:       fmt.Sprintf("Request %s has a revised cost comparison pending review.", req.RequestNumber),
		Entity:     "cost_comparison",
		EntityID:   requestID,
		TargetRole: shared.RoleManager,
		ActorID:    actor.UserID,
	})
	return nil
}

// DirectDeliveryInput describes a stock-fulfilled (partially or fully)
// request. PurchaseQuantity is the vendor-bound remainder; the officer may
// set it above the strict shortfall to overstock.
type DirectDeliveryInput struct {
	DeductQuantity   float64
	PurchaseQuantity float64
}

// MarkDirectDelivery fulfils a request from central stock, bypassing vendor
// comparison. The deduction is guarded by an idempotency key so a
// double-fired call cannot drain stock twice; if the workflow update fails
// after the deduction, the stock is put back.
func (s *Service) MarkDirectDelivery(ctx context.Context, requestID int64, input DirectDeliveryInput, actor shared.Identity) error {
	if input.DeductQuantity <= 0 {
		return fmt.Errorf("%w: deduct quantity must be positive", ErrValidation)
	}
	if input.PurchaseQuantity < 0 {
		return fmt.Errorf("%w: purchase quantity must not be negative", ErrValidation)
	}
	if s.inventory == nil {
		return errors.New("procurement: inventory integration not configured")
	}
	req, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if !req.Status.CanTransition(RequestStatusDeliveryStage) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidState, req.Status, RequestStatusDeliveryStage)
	}
	idemKey := fmt.Sprintf("DD:REQ:%d", requestID)
	inserted := false
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, idemKey, "procurement.direct_delivery"); err != nil {
			return err
		}
		inserted = true
	}
	releaseKey := func() {
		if inserted {
			_ = s.idempotency.Delete(ctx, idemKey)
		}
	}
	reason := fmt.Sprintf("direct delivery for request %s", req.RequestNumber)
	if _, err := s.inventory.DeductStock(ctx, req.ItemName, input.DeductQuantity, reason, actor.UserID); err != nil {
		releaseKey()
		return err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		cc, _, err := tx.GetComparisonForUpdate(ctx, requestID)
		if errors.Is(err, ErrNotFound) {
			cc = CostComparison{RequestID: requestID, Status: CCStatusDraft, CreatedBy: actor.UserID}
			cc.ID, err = tx.CreateComparison(ctx, cc)
		}
		if err != nil {
			return err
		}
		cc.IsDirectDelivery = true
		cc.InventoryFulfillmentQuantity = input.DeductQuantity
		cc.PurchaseQuantity = input.PurchaseQuantity
		if err := tx.UpdateComparison(ctx, cc); err != nil {
			return err
		}
		return transitionRequestTx(ctx, tx, req, RequestStatusDeliveryStage)
	})
	if err != nil {
		// The request never moved, so the deduction must not stand.
		_, _ = s.inventory.RestockItem(ctx, req.ItemName, input.DeductQuantity, "direct delivery rollback for request "+req.RequestNumber, actor.UserID)
		releaseKey()
		return err
	}
	s.recordAudit(ctx, actor.UserID, "CC_DIRECT_DELIVERY", req.RequestNumber, map[string]any{
		"request_id":        requestID,
		"deduct_quantity":   input.DeductQuantity,
		"purchase_quantity": input.PurchaseQuantity,
	})
	return nil
}

// RankedQuote is a quote with its comparison total for manager guidance.
type RankedQuote struct {
	Quote
	NormalizedUnitPrice float64 `json:"normalized_unit_price"`
	Total               float64 `json:"total"`
	BestPrice           bool    `json:"best_price"`
}

// RankQuotes orders quotes by landed total for the requested quantity,
// cheapest first. Total = normalized price after discount and GST times the
// request quantity. Ties keep insertion order, so the first-added quote
// wins the best-price flag.
func RankQuotes(quotes []Quote, requestQty float64) []RankedQuote {
	ranked := make([]RankedQuote, 0, len(quotes))
	for _, q := range quotes {
		normalized := q.NormalizedPrice()
		final := normalized * (1 - q.DiscountPercent/100) * (1 + q.GSTPercent/100)
		ranked = append(ranked, RankedQuote{
			Quote:               q,
			NormalizedUnitPrice: normalized,
			Total:               final * requestQty,
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Total == ranked[j].Total {
			return ranked[i].Position < ranked[j].Position
		}
		return ranked[i].Total < ranked[j].Total
	})
	if len(ranked) > 0 {
		ranked[0].BestPrice = true
	}
	return ranked
}

func hasVendorQuote(quotes []Quote, vendorID int64) bool {
	if vendorID == 0 {
		return false
	}
	for _, q := range quotes {
		if q.VendorID == vendorID {
			return true
		}
	}
	return false
}

func nextPosition(quotes []Quote, vendorID int64) int {
	for _, q := range quotes {
		if q.VendorID == vendorID {
			return q.Position
		}
	}
	max := -1
	for _, q := range quotes {
		if q.Position > max {
			max = q.Position
		}
	}
	return max + 1
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func defaultFloat(value, fallback float64) float64 {
	if value <= 0 {
		return fallback
	}
	return value
}
