package procurement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ampere-erp/ampere-erp/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetRequest(ctx context.Context, id int64) (PurchaseRequest, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]PurchaseRequest, int, error)
	ListStaleDrafts(ctx context.Context, cutoff time.Time) ([]PurchaseRequest, error)
	ListRequestGroup(ctx context.Context, requestNumber string) ([]PurchaseRequest, error)
	GetComparisonByRequest(ctx context.Context, requestID int64) (CostComparison, []Quote, error)
	GetPO(ctx context.Context, id int64) (PurchaseOrder, error)
	ListPOs(ctx context.Context, filter POFilter) ([]PurchaseOrder, int, error)
}

// InventoryPort exposes the stock operations the workflow needs.
type InventoryPort interface {
	DeductStock(ctx context.Context, itemName string, qty float64, reason string, actorID int64) (float64, error)
	RestockItem(ctx context.Context, itemName string, qty float64, reason string, actorID int64) (float64, error)
	HasStock(ctx context.Context, itemName string, qty float64) (bool, error)
}

// DispatchPort queues PO document rendering and mail delivery.
type DispatchPort interface {
	DispatchPORender(ctx context.Context, poID int64) error
	DispatchPOEmail(ctx context.Context, to, subject, body, poNumber string) error
}

// ContactDirectory resolves vendor contact details for document dispatch.
type ContactDirectory interface {
	VendorContact(ctx context.Context, vendorID int64) (name, email, phone string, err error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards double-fired PO issuance and stock deduction.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Service orchestrates the request -> cost comparison -> purchase order flow.
type Service struct {
	repo        RepositoryPort
	inventory   InventoryPort
	notifier    Notifier
	audit       AuditPort
	idempotency IdempotencyPort
	dispatch    DispatchPort
	contacts    ContactDirectory
}

// NewService constructs the procurement service. Dispatch and contacts are
// only needed where DispatchPO is reachable; the worker passes nil.
func NewService(repo RepositoryPort, inventory InventoryPort, notifier Notifier, audit AuditPort, idem IdempotencyPort, dispatch DispatchPort, contacts ContactDirectory) *Service {
	return &Service{repo: repo, inventory: inventory, notifier: notifier, audit: audit, idempotency: idem, dispatch: dispatch, contacts: contacts}
}

// RequestFilter narrows request listings.
type RequestFilter struct {
	Status        RequestStatus
	SiteID        int64
	CreatedBy     int64
	RequestNumber string
	Urgent        *bool
	Page          int
	Limit         int
}

// POFilter narrows purchase order listings.
type POFilter struct {
	Status   POStatus
	VendorID int64
	SiteID   int64
	Direct   *bool
	Page     int
	Limit    int
}

// RequestLineInput is one requested item in a creation payload.
type RequestLineInput struct {
	ItemName    string
	Quantity    float64
	Unit        string
	Description string
	PhotoKeys   []string
}

// CreateRequestsInput creates a group of request lines sharing one number.
type CreateRequestsInput struct {
	RequestNumber string
	SiteID        int64
	IsUrgent      bool
	Lines         []RequestLineInput
}

// CreateRequests persists a request group in draft. Lines keep their given
// order via item_order.
func (s *Service) CreateRequests(ctx context.Context, input CreateRequestsInput, actor shared.Identity) ([]PurchaseRequest, error) {
	if len(input.Lines) == 0 {
		return nil, fmt.Errorf("%w: at least one line required", ErrValidation)
	}
	if input.SiteID == 0 {
		return nil, fmt.Errorf("%w: site required", ErrValidation)
	}
	if input.RequestNumber == "" {
		input.RequestNumber = generateNumber("REQ")
	}
	var created []PurchaseRequest
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for i, line := range input.Lines {
			name := strings.TrimSpace(line.ItemName)
			if name == "" || line.Quantity <= 0 || strings.TrimSpace(line.Unit) == "" {
				return fmt.Errorf("%w: line %d requires item name, positive quantity and unit", ErrValidation, i+1)
			}
			req := PurchaseRequest{
				RequestNumber: input.RequestNumber,
				ItemName:      name,
				Quantity:      line.Quantity,
				Unit:          strings.TrimSpace(line.Unit),
				Description:   line.Description,
				IsUrgent:      input.IsUrgent,
				Status:        RequestStatusDraft,
				SiteID:        input.SiteID,
				CreatedBy:     actor.UserID,
				PhotoKeys:     line.PhotoKeys,
				ItemOrder:     i,
			}
			id, err := tx.CreateRequest(ctx, req)
			if err != nil {
				return err
			}
			req.ID = id
			created = append(created, req)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actor.UserID, "REQUEST_CREATE", input.RequestNumber, map[string]any{"lines": len(created), "site_id": input.SiteID})
	return created, nil
}

// SubmitRequest moves a draft to pending for officer pickup.
func (s *Service) SubmitRequest(ctx context.Context, requestID int64, actor shared.Identity) error {
	return s.transitionRequest(ctx, requestID, RequestStatusPending, actor, "REQUEST_SUBMIT")
}

// PickupRequest marks a pending request as taken up by a purchase officer.
func (s *Service) PickupRequest(ctx context.Context, requestID int64, actor shared.Identity) error {
	return s.transitionRequest(ctx, requestID, RequestStatusReadyForCC, actor, "REQUEST_PICKUP")
}

// CancelRequest cancels any non-terminal request.
func (s *Service) CancelRequest(ctx context.Context, requestID int64, actor shared.Identity) error {
	return s.transitionRequest(ctx, requestID, RequestStatusCancelled, actor, "REQUEST_CANCEL")
}

// EditRequestInput carries data corrections for a request line.
type EditRequestInput struct {
	ItemName    string
	Quantity    float64
	Unit        string
	Description string
}

// requestEditable lists the statuses in which line details may still change.
// Once the request is PO-bound or later, the document is frozen.
var requestEditable = map[RequestStatus]bool{
	RequestStatusDraft:      true,
	RequestStatusPending:    true,
	RequestStatusReadyForCC: true,
	RequestStatusCCPending:  true,
}

// UpdateRequestDetails corrects quantity/unit/description/item name. It is a
// data correction, not a transition: stored quote totals tied to the old
// quantity are left untouched until the officer re-saves them.
func (s *Service) UpdateRequestDetails(ctx context.Context, requestID int64, input EditRequestInput, actor shared.Identity) (PurchaseRequest, error) {
	req, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return PurchaseRequest{}, err
	}
	if !requestEditable[req.Status] {
		return PurchaseRequest{}, fmt.Errorf("%w: request %s is no longer editable", ErrInvalidState, req.Status)
	}
	if name := strings.TrimSpace(input.ItemName); name != "" {
		req.ItemName = name
	}
	if input.Quantity != 0 {
		if input.Quantity < 0 {
			return PurchaseRequest{}, fmt.Errorf("%w: quantity must be positive", ErrValidation)
		}
		req.Quantity = input.Quantity
	}
	if unit := strings.TrimSpace(input.Unit); unit != "" {
		req.Unit = unit
	}
	if input.Description != "" {
		req.Description = input.Description
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateRequestDetails(ctx, req)
	})
	if err != nil {
		return PurchaseRequest{}, err
	}
	s.recordAudit(ctx, actor.UserID, "REQUEST_EDIT", req.RequestNumber, map[string]any{"request_id": req.ID, "quantity": req.Quantity, "unit": req.Unit})
	return req, nil
}

// GetRequest fetches one request line.
func (s *Service) GetRequest(ctx context.Context, requestID int64) (PurchaseRequest, error) {
	return s.repo.GetRequest(ctx, requestID)
}

// ListRequests lists request lines per filter.
func (s *Service) ListRequests(ctx context.Context, filter RequestFilter) ([]PurchaseRequest, int, error) {
	return s.repo.ListRequests(ctx, filter)
}

// ListRequestGroup returns all sibling lines sharing a request number,
// ordered by item_order.
func (s *Service) ListRequestGroup(ctx context.Context, requestNumber string) ([]PurchaseRequest, error) {
	if strings.TrimSpace(requestNumber) == "" {
		return nil, ErrValidation
	}
	return s.repo.ListRequestGroup(ctx, requestNumber)
}

// SweepStaleDrafts cancels draft requests that were never submitted and are
// older than the given age. Returns the number of requests cancelled.
func (s *Service) SweepStaleDrafts(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("%w: sweep age must be positive", ErrValidation)
	}
	stale, err := s.repo.ListStaleDrafts(ctx, time.Now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	swept := 0
	for _, req := range stale {
		cancelled := false
		err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			current, err := tx.GetRequestForUpdate(ctx, req.ID)
			if err != nil {
				return err
			}
			// Re-check under lock; the draft may have moved on meanwhile.
			if current.Status != RequestStatusDraft {
				return nil
			}
			cancelled = true
			return tx.UpdateRequestStatus(ctx, req.ID, RequestStatusCancelled)
		})
		if err != nil {
			return swept, err
		}
		if cancelled {
			swept++
			s.recordAudit(ctx, 0, "REQUEST_SWEEP", req.RequestNumber, map[string]any{"request_id": req.ID})
		}
	}
	return swept, nil
}

// transitionRequest validates the move against the transition table and
// persists it.
func (s *Service) transitionRequest(ctx context.Context, requestID int64, to RequestStatus, actor shared.Identity, action string) error {
	req, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if !req.Status.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidState, req.Status, to)
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateRequestStatus(ctx, requestID, to)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actor.UserID, action, req.RequestNumber, map[string]any{"request_id": requestID, "from": req.Status, "to": to})
	return nil
}

// transitionRequestTx is the in-transaction variant used by comparison and
// order flows that move the request as part of their own transaction.
func transitionRequestTx(ctx context.Context, tx TxRepository, req PurchaseRequest, to RequestStatus) error {
	if !req.Status.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidState, req.Status, to)
	}
	return tx.UpdateRequestStatus(ctx, req.ID, to)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: "procurement", EntityID: entityID, Meta: meta})
}

func generateNumber(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
