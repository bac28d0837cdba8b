package procurement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ampere-erp/ampere-erp/internal/gst"
	"github.com/ampere-erp/ampere-erp/internal/shared"
	"github.com/ampere-erp/ampere-erp/report"
)

// POItemInput is one line on a PO creation payload.
type POItemInput struct {
	RequestID       int64
	ItemName        string
	HSNCode         string
	Quantity        float64
	Unit            string
	UnitRate        float64
	DiscountPercent float64
	GSTRate         float64
	PerUnitBasis    float64
}

func (in *POItemInput) validate() error {
	if strings.TrimSpace(in.ItemName) == "" {
		return fmt.Errorf("%w: item name required", ErrValidation)
	}
	if in.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	if in.UnitRate < 0 {
		return fmt.Errorf("%w: unit rate must not be negative", ErrValidation)
	}
	if in.DiscountPercent < 0 || in.DiscountPercent > 100 {
		return fmt.Errorf("%w: discount percent outside [0,100]", ErrValidation)
	}
	if in.GSTRate < 0 || in.GSTRate > 100 {
		return fmt.Errorf("%w: gst rate outside [0,100]", ErrValidation)
	}
	if in.PerUnitBasis == 0 {
		in.PerUnitBasis = 1
	}
	if in.PerUnitBasis < 0 {
		return fmt.Errorf("%w: per-unit basis must be positive", ErrValidation)
	}
	return nil
}

// IssuePOInput creates a standard PO from an approved cost comparison.
type IssuePOInput struct {
	RequestID int64
	PONumber  string
	HSNCode   string
	ValidTill time.Time
}

// IssuePurchaseOrder turns an approved cost comparison into a purchase
// order. The unit rate is the selected vendor's normalized per-unit price.
// Standard POs are born ordered since approval implies ordering. Issuance
// is idempotency-guarded per request.
func (s *Service) IssuePurchaseOrder(ctx context.Context, input IssuePOInput, actor shared.Identity) (PurchaseOrder, error) {
	req, err := s.repo.GetRequest(ctx, input.RequestID)
	if err != nil {
		return PurchaseOrder{}, err
	}
	cc, quotes, err := s.repo.GetComparisonByRequest(ctx, input.RequestID)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if cc.Status != CCStatusApproved || cc.SelectedVendorID == 0 {
		return PurchaseOrder{}, fmt.Errorf("%w: comparison not approved", ErrInvalidState)
	}
	var selected Quote
	found := false
	for _, q := range quotes {
		if q.VendorID == cc.SelectedVendorID {
			selected = q
			found = true
			break
		}
	}
	if !found {
		return PurchaseOrder{}, fmt.Errorf("%w: selected vendor has no quote", ErrValidation)
	}
	idemKey := fmt.Sprintf("PO:REQ:%d", input.RequestID)
	inserted := false
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, idemKey, "procurement.po"); err != nil {
			return PurchaseOrder{}, err
		}
		inserted = true
	}
	po := PurchaseOrder{
		PONumber:      defaultString(input.PONumber, generateNumber("PO")),
		RequestNumber: req.RequestNumber,
		IsDirect:      false,
		VendorID:      cc.SelectedVendorID,
		SiteID:        req.SiteID,
		Status:        POStatusOrdered,
		ValidTill:     input.ValidTill,
		CreatedBy:     actor.UserID,
		Items: []POItem{{
			RequestID:       req.ID,
			ItemName:        req.ItemName,
			HSNCode:         input.HSNCode,
			Quantity:        req.Quantity,
			Unit:            req.Unit,
			UnitRate:        selected.NormalizedPrice(),
			DiscountPercent: selected.DiscountPercent,
			GSTRate:         selected.GSTPercent,
		}},
	}
	po.TotalAmount = orderTotal(po.Items)
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreatePO(ctx, po)
		if err != nil {
			return err
		}
		po.ID = id
		return transitionRequestTx(ctx, tx, req, RequestStatusDeliveryStage)
	})
	if err != nil {
		if inserted {
			_ = s.idempotency.Delete(ctx, idemKey)
		}
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, actor.UserID, "PO_ISSUE", po.PONumber, map[string]any{"request_id": req.ID, "vendor_id": po.VendorID, "total": po.TotalAmount})
	return po, nil
}

// DirectPOInput creates an emergency PO outside the comparison workflow.
type DirectPOInput struct {
	VendorID  int64
	SiteID    int64
	ValidTill time.Time
	Items     []POItemInput
}

// CreateDirectPO creates a direct PO awaiting manager approval.
func (s *Service) CreateDirectPO(ctx context.Context, input DirectPOInput, actor shared.Identity) (PurchaseOrder, error) {
	if input.VendorID == 0 || input.SiteID == 0 {
		return PurchaseOrder{}, fmt.Errorf("%w: vendor and site required", ErrValidation)
	}
	if len(input.Items) == 0 {
		return PurchaseOrder{}, fmt.Errorf("%w: at least one item required", ErrValidation)
	}
	items := make([]POItem, 0, len(input.Items))
	for i := range input.Items {
		if err := input.Items[i].validate(); err != nil {
			return PurchaseOrder{}, err
		}
		in := input.Items[i]
		items = append(items, POItem{
			RequestID:       in.RequestID,
			ItemName:        strings.TrimSpace(in.ItemName),
			HSNCode:         in.HSNCode,
			Quantity:        in.Quantity,
			Unit:            in.Unit,
			UnitRate:        in.UnitRate / in.PerUnitBasis,
			DiscountPercent: in.DiscountPercent,
			GSTRate:         in.GSTRate,
		})
	}
	po := PurchaseOrder{
		PONumber:  generateNumber("DPO"),
		IsDirect:  true,
		VendorID:  input.VendorID,
		SiteID:    input.SiteID,
		Status:    POStatusPendingApproval,
		ValidTill: input.ValidTill,
		CreatedBy: actor.UserID,
		Items:     items,
	}
	po.TotalAmount = orderTotal(po.Items)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreatePO(ctx, po)
		po.ID = id
		return err
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, actor.UserID, "DPO_CREATE", po.PONumber, map[string]any{"vendor_id": po.VendorID, "total": po.TotalAmount})
	s.publish(ctx, WorkflowEvent{
		Kind:       EventDirectPOCreated,
		Title:      "Direct purchase order awaiting approval",
		Body:       fmt.Sprintf("Direct PO %s needs approval.", po.PONumber),
		Entity:     "purchase_order",
		EntityID:   po.ID,
		TargetRole: shared.RoleManager,
		ActorID:    actor.UserID,
	})
	return po, nil
}

// ApproveDirectPO moves a direct PO from pending_approval to ordered. Only
// a manager identity may resolve the approval; the approver's stored
// signature reference is stamped for document rendering.
func (s *Service) ApproveDirectPO(ctx context.Context, poID int64, signatureKey string, actor shared.Identity) error {
	if !actor.IsManager() {
		return ErrForbidden
	}
	po, err := s.repo.GetPO(ctx, poID)
	if err != nil {
		return err
	}
	if !po.IsDirect {
		return fmt.Errorf("%w: not a direct purchase order", ErrValidation)
	}
	if !po.Status.CanTransition(POStatusOrdered) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidState, po.Status, POStatusOrdered)
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdatePOStatus(ctx, poID, POStatusOrdered); err != nil {
			return err
		}
		return tx.SetPOApproval(ctx, poID, actor.UserID, signatureKey, time.Now().UTC())
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actor.UserID, "DPO_APPROVE", po.PONumber, map[string]any{"po_id": poID})
	s.publish(ctx, WorkflowEvent{
		Kind:         EventDirectPOApproved,
		Title:        "Direct purchase order approved",
		Body:         fmt.Sprintf("Direct PO %s was approved and is now ordered.", po.PONumber),
		Entity:       "purchase_order",
		EntityID:     poID,
		TargetUserID: po.CreatedBy,
		ActorID:      actor.UserID,
	})
	return nil
}

// RejectDirectPO rejects a pending direct PO. The reason is mandatory and
// the state is terminal; resubmission creates a brand-new PO.
func (s *Service) RejectDirectPO(ctx context.Context, poID int64, reason string, actor shared.Identity) error {
	if !actor.IsManager() {
		return ErrForbidden
	}
	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("%w: rejection requires a reason", ErrValidation)
	}
	po, err := s.repo.GetPO(ctx, poID)
	if err != nil {
		return err
	}
	if !po.IsDirect {
		return fmt.Errorf("%w: not a direct purchase order", ErrValidation)
	}
	if !po.Status.CanTransition(POStatusRejected) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidState, po.Status, POStatusRejected)
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdatePOStatus(ctx, poID, POStatusRejected); err != nil {
			return err
		}
		return tx.SetPORejection(ctx, poID, reason)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actor.UserID, "DPO_REJECT", po.PONumber, map[string]any{"po_id": poID, "reason": reason})
	s.publish(ctx, WorkflowEvent{
		Kind:         EventDirectPORejected,
		Title:        "Direct purchase order rejected",
		Body:         fmt.Sprintf("Direct PO %s was rejected: %s", po.PONumber, reason),
		Entity:       "purchase_order",
		EntityID:     poID,
		TargetUserID: po.CreatedBy,
		ActorID:      actor.UserID,
	})
	return nil
}

// ResubmitDirectPO creates a brand-new pending direct PO prefilled from a
// rejected one. The rejected PO itself stays terminal and untouched.
func (s *Service) ResubmitDirectPO(ctx context.Context, rejectedPOID int64, actor shared.Identity) (PurchaseOrder, error) {
	old, err := s.repo.GetPO(ctx, rejectedPOID)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if !old.IsDirect || old.Status != POStatusRejected {
		return PurchaseOrder{}, fmt.Errorf("%w: only rejected direct POs can be resubmitted", ErrInvalidState)
	}
	items := make([]POItemInput, 0, len(old.Items))
	for _, it := range old.Items {
		items = append(items, POItemInput{
			RequestID:       it.RequestID,
			ItemName:        it.ItemName,
			HSNCode:         it.HSNCode,
			Quantity:        it.Quantity,
			Unit:            it.Unit,
			UnitRate:        it.UnitRate,
			DiscountPercent: it.DiscountPercent,
			GSTRate:         it.GSTRate,
		})
	}
	return s.CreateDirectPO(ctx, DirectPOInput{
		VendorID:  old.VendorID,
		SiteID:    old.SiteID,
		ValidTill: old.ValidTill,
		Items:     items,
	}, actor)
}

// MarkDelivered confirms delivery, stamping the actual delivery date. The
// state is terminal; a second call is rejected rather than re-stamping.
// Linked request lines advance to approved.
func (s *Service) MarkDelivered(ctx context.Context, poID int64, actor shared.Identity) error {
	po, err := s.repo.GetPO(ctx, poID)
	if err != nil {
		return err
	}
	if !po.Status.CanTransition(POStatusDelivered) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidState, po.Status, POStatusDelivered)
	}
	now := time.Now().UTC()
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdatePOStatus(ctx, poID, POStatusDelivered); err != nil {
			return err
		}
		if err := tx.SetPODelivered(ctx, poID, now); err != nil {
			return err
		}
		for _, item := range po.Items {
			if item.RequestID == 0 {
				continue
			}
			req, err := tx.GetRequestForUpdate(ctx, item.RequestID)
			if err != nil {
				return err
			}
			if req.Status.CanTransition(RequestStatusApproved) {
				if err := tx.UpdateRequestStatus(ctx, req.ID, RequestStatusApproved); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actor.UserID, "PO_DELIVER", po.PONumber, map[string]any{"po_id": poID, "delivered_at": now})
	s.publish(ctx, WorkflowEvent{
		Kind:         EventPODelivered,
		Title:        "Purchase order delivered",
		Body:         fmt.Sprintf("PO %s was marked delivered.", po.PONumber),
		Entity:       "purchase_order",
		EntityID:     poID,
		TargetUserID: po.CreatedBy,
		ActorID:      actor.UserID,
	})
	return nil
}

// CancelPO cancels an ordered PO. Irreversible; no automatic restock since
// nothing was received.
func (s *Service) CancelPO(ctx context.Context, poID int64, actor shared.Identity) error {
	po, err := s.repo.GetPO(ctx, poID)
	if err != nil {
		return err
	}
	if !po.Status.CanTransition(POStatusCancelled) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidState, po.Status, POStatusCancelled)
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdatePOStatus(ctx, poID, POStatusCancelled)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actor.UserID, "PO_CANCEL", po.PONumber, map[string]any{"po_id": poID})
	return nil
}

// DispatchResult reports what DispatchPO queued for delivery.
type DispatchResult struct {
	DocumentQueued bool   `json:"document_queued"`
	EmailQueued    bool   `json:"email_queued"`
	WhatsAppLink   string `json:"whatsapp_link,omitempty"`
}

// DispatchPO queues PDF rendering for an ordered PO, queues an email to the
// vendor when one is on file, and returns a WhatsApp share link when the
// vendor has a phone number. Only ordered or delivered POs can be sent out.
func (s *Service) DispatchPO(ctx context.Context, poID int64, actor shared.Identity) (DispatchResult, error) {
	if s.dispatch == nil {
		return DispatchResult{}, errors.New("procurement: dispatch queue not configured")
	}
	po, err := s.repo.GetPO(ctx, poID)
	if err != nil {
		return DispatchResult{}, err
	}
	if po.Status != POStatusOrdered && po.Status != POStatusDelivered {
		return DispatchResult{}, fmt.Errorf("%w: cannot dispatch a %s purchase order", ErrInvalidState, po.Status)
	}
	var vendorName, vendorEmail, vendorPhone string
	if s.contacts != nil {
		vendorName, vendorEmail, vendorPhone, err = s.contacts.VendorContact(ctx, po.VendorID)
		if err != nil {
			return DispatchResult{}, err
		}
	}
	if err := s.dispatch.DispatchPORender(ctx, po.ID); err != nil {
		return DispatchResult{}, err
	}
	result := DispatchResult{DocumentQueued: true}
	if vendorEmail != "" {
		subject := fmt.Sprintf("Purchase Order %s", po.PONumber)
		body := fmt.Sprintf("Dear %s,\n\nPlease find attached purchase order %s.\n", defaultString(vendorName, "Sir/Madam"), po.PONumber)
		if err := s.dispatch.DispatchPOEmail(ctx, vendorEmail, subject, body, po.PONumber); err != nil {
			return result, err
		}
		result.EmailQueued = true
	}
	if vendorPhone != "" {
		result.WhatsAppLink = report.WhatsAppShareLink(vendorPhone, fmt.Sprintf("Purchase order %s has been issued to you.", po.PONumber))
	}
	s.recordAudit(ctx, actor.UserID, "PO_DISPATCH", po.PONumber, map[string]any{"po_id": po.ID, "email_queued": result.EmailQueued})
	return result, nil
}

// GetPO fetches a purchase order with its items.
func (s *Service) GetPO(ctx context.Context, poID int64) (PurchaseOrder, error) {
	return s.repo.GetPO(ctx, poID)
}

// ListPOs lists purchase orders per filter.
func (s *Service) ListPOs(ctx context.Context, filter POFilter) ([]PurchaseOrder, int, error) {
	return s.repo.ListPOs(ctx, filter)
}

func orderTotal(items []POItem) float64 {
	lines := make([]gst.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, gst.Line{
			Quantity:        it.Quantity,
			UnitRate:        it.UnitRate,
			DiscountPercent: it.DiscountPercent,
			GSTRate:         it.GSTRate,
			HSNCode:         it.HSNCode,
		})
	}
	totals := gst.ComputeDocument(lines)
	return totals.GrandTotal.InexactFloat64()
}
