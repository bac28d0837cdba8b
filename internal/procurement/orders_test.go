package procurement

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ampere-erp/ampere-erp/internal/shared"
)

func approvedComparison(t *testing.T, svc *Service, qty float64) PurchaseRequest {
	t.Helper()
	req := readyForCC(t, svc, "Copper Wire", qty)
	_, err := svc.AddOrUpdateQuote(context.Background(), req.ID, QuoteInput{VendorID: 1, UnitPrice: 100, GSTPercent: 18}, officer)
	require.NoError(t, err)
	_, err = svc.AddOrUpdateQuote(context.Background(), req.ID, QuoteInput{VendorID: 2, UnitPrice: 90, DiscountPercent: 5, GSTPercent: 18}, officer)
	require.NoError(t, err)
	require.NoError(t, svc.SubmitComparison(context.Background(), req.ID, officer))
	require.NoError(t, svc.ReviewComparison(context.Background(), req.ID, ReviewInput{Approve: true, SelectedVendorID: 2}, manager))
	return req
}

func TestIssuePurchaseOrderFromApprovedComparison(t *testing.T) {
	svc, repo, _, _ := newTestService()
	req := approvedComparison(t, svc, 10)

	po, err := svc.IssuePurchaseOrder(context.Background(), IssuePOInput{RequestID: req.ID, HSNCode: "8544"}, officer)
	require.NoError(t, err)
	require.Equal(t, POStatusOrdered, po.Status)
	require.False(t, po.IsDirect)
	require.Equal(t, int64(2), po.VendorID)
	require.Len(t, po.Items, 1)
	require.Equal(t, float64(90), po.Items[0].UnitRate)
	require.Equal(t, float64(5), po.Items[0].DiscountPercent)
	require.Equal(t, float64(18), po.Items[0].GSTRate)
	require.Equal(t, RequestStatusDeliveryStage, repo.requests[req.ID].Status)

	// 10 * 90 * 0.95 * 1.18 = 1008.9, rounded to whole rupees.
	require.Equal(t, float64(1009), po.TotalAmount)
}

func TestIssuePurchaseOrderRequiresApproval(t *testing.T) {
	svc, _, _, _ := newTestService()
	req := readyForCC(t, svc, "Copper Wire", 10)
	_, err := svc.AddOrUpdateQuote(context.Background(), req.ID, QuoteInput{VendorID: 1, UnitPrice: 100}, officer)
	require.NoError(t, err)

	_, err = svc.IssuePurchaseOrder(context.Background(), IssuePOInput{RequestID: req.ID}, officer)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestIssuePurchaseOrderIdempotencyGuard(t *testing.T) {
	svc, repo, _, _ := newTestService()
	req := approvedComparison(t, svc, 10)

	_, err := svc.IssuePurchaseOrder(context.Background(), IssuePOInput{RequestID: req.ID}, officer)
	require.NoError(t, err)

	// Reset the request stage so only the idempotency key stands in the way.
	stored := repo.requests[req.ID]
	stored.Status = RequestStatusReadyForPO
	repo.requests[req.ID] = stored

	_, err = svc.IssuePurchaseOrder(context.Background(), IssuePOInput{RequestID: req.ID}, officer)
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)
}

func directPO(t *testing.T, svc *Service) PurchaseOrder {
	t.Helper()
	po, err := svc.CreateDirectPO(context.Background(), DirectPOInput{
		VendorID: 4,
		SiteID:   10,
		Items: []POItemInput{{
			ItemName: "Diesel Generator", Quantity: 1, Unit: "pcs", UnitRate: 250000, GSTRate: 18,
		}},
	}, officer)
	require.NoError(t, err)
	require.Equal(t, POStatusPendingApproval, po.Status)
	require.True(t, po.IsDirect)
	return po
}

func TestDirectPOApprovalFlow(t *testing.T) {
	svc, repo, _, notifier := newTestService()
	po := directPO(t, svc)

	// Officers cannot resolve approvals.
	err := svc.ApproveDirectPO(context.Background(), po.ID, "", officer)
	require.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, svc.ApproveDirectPO(context.Background(), po.ID, "sig/manager.png", manager))
	stored := repo.orders[po.ID]
	require.Equal(t, POStatusOrdered, stored.Status)
	require.Equal(t, manager.UserID, stored.ApprovedBy)
	require.Equal(t, "sig/manager.png", stored.SignatureKey)

	var kinds []string
	for _, evt := range notifier.events {
		kinds = append(kinds, evt.Kind)
	}
	require.Contains(t, kinds, EventDirectPOCreated)
	require.Contains(t, kinds, EventDirectPOApproved)
}

func TestDirectPORejectionRequiresReason(t *testing.T) {
	svc, repo, _, _ := newTestService()
	po := directPO(t, svc)

	err := svc.RejectDirectPO(context.Background(), po.ID, "  ", manager)
	require.ErrorIs(t, err, ErrValidation)

	require.NoError(t, svc.RejectDirectPO(context.Background(), po.ID, "budget exceeded", manager))
	stored := repo.orders[po.ID]
	require.Equal(t, POStatusRejected, stored.Status)
	require.Equal(t, "budget exceeded", stored.RejectionReason)

	// Rejected is terminal.
	err = svc.ApproveDirectPO(context.Background(), po.ID, "", manager)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestResubmitRejectedDirectPOCreatesNewRecord(t *testing.T) {
	svc, repo, _, _ := newTestService()
	po := directPO(t, svc)
	require.NoError(t, svc.RejectDirectPO(context.Background(), po.ID, "budget exceeded", manager))

	resubmitted, err := svc.ResubmitDirectPO(context.Background(), po.ID, officer)
	require.NoError(t, err)
	require.NotEqual(t, po.ID, resubmitted.ID)
	require.NotEqual(t, po.PONumber, resubmitted.PONumber)
	require.Equal(t, POStatusPendingApproval, resubmitted.Status)
	require.Equal(t, po.VendorID, resubmitted.VendorID)
	require.Equal(t, po.Items[0].ItemName, resubmitted.Items[0].ItemName)

	// The rejected PO stays terminal and untouched.
	require.Equal(t, POStatusRejected, repo.orders[po.ID].Status)
}

func TestResubmitRequiresRejectedDirectPO(t *testing.T) {
	svc, _, _, _ := newTestService()
	po := directPO(t, svc)
	_, err := svc.ResubmitDirectPO(context.Background(), po.ID, officer)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestMarkDeliveredStampsDateOnce(t *testing.T) {
	svc, repo, _, _ := newTestService()
	req := approvedComparison(t, svc, 10)
	po, err := svc.IssuePurchaseOrder(context.Background(), IssuePOInput{RequestID: req.ID}, officer)
	require.NoError(t, err)

	require.NoError(t, svc.MarkDelivered(context.Background(), po.ID, officer))
	stored := repo.orders[po.ID]
	require.Equal(t, POStatusDelivered, stored.Status)
	require.NotNil(t, stored.ActualDeliveryDate)
	firstStamp := *stored.ActualDeliveryDate
	require.Equal(t, RequestStatusApproved, repo.requests[req.ID].Status)

	// Delivered is terminal; the stamp never moves.
	err = svc.MarkDelivered(context.Background(), po.ID, officer)
	require.ErrorIs(t, err, ErrInvalidState)
	require.Equal(t, firstStamp, *repo.orders[po.ID].ActualDeliveryDate)
}

func TestCancelOrderedPOIsTerminalNoRestock(t *testing.T) {
	svc, repo, inv, _ := newTestService()
	inv.stock["Copper Wire"] = 100
	req := approvedComparison(t, svc, 10)
	po, err := svc.IssuePurchaseOrder(context.Background(), IssuePOInput{RequestID: req.ID}, officer)
	require.NoError(t, err)

	require.NoError(t, svc.CancelPO(context.Background(), po.ID, officer))
	require.Equal(t, POStatusCancelled, repo.orders[po.ID].Status)
	require.Equal(t, float64(100), inv.stock["Copper Wire"])

	err = svc.MarkDelivered(context.Background(), po.ID, officer)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestDirectPOValidation(t *testing.T) {
	svc, _, _, _ := newTestService()
	_, err := svc.CreateDirectPO(context.Background(), DirectPOInput{SiteID: 10}, officer)
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateDirectPO(context.Background(), DirectPOInput{VendorID: 1, SiteID: 10}, officer)
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateDirectPO(context.Background(), DirectPOInput{
		VendorID: 1, SiteID: 10,
		Items: []POItemInput{{ItemName: "Pump", Quantity: 0, Unit: "pcs"}},
	}, officer)
	require.ErrorIs(t, err, ErrValidation)
}

type dispatchedEmail struct {
	to, subject, body, poNumber string
}

type fakeDispatcher struct {
	renders []int64
	emails  []dispatchedEmail
}

func (f *fakeDispatcher) DispatchPORender(ctx context.Context, poID int64) error {
	f.renders = append(f.renders, poID)
	return nil
}

func (f *fakeDispatcher) DispatchPOEmail(ctx context.Context, to, subject, body, poNumber string) error {
	f.emails = append(f.emails, dispatchedEmail{to: to, subject: subject, body: body, poNumber: poNumber})
	return nil
}

type fakeContacts struct {
	name, email, phone string
}

func (f fakeContacts) VendorContact(ctx context.Context, vendorID int64) (string, string, string, error) {
	return f.name, f.email, f.phone, nil
}

func dispatchTestService(contacts fakeContacts) (*Service, *fakeDispatcher) {
	repo := newMemoryRepo()
	inv := &fakeInventory{stock: make(map[string]float64)}
	dispatcher := &fakeDispatcher{}
	svc := NewService(repo, inv, nil, nil, &fakeIdempotency{}, dispatcher, contacts)
	return svc, dispatcher
}

func TestDispatchPOQueuesRenderAndEmail(t *testing.T) {
	svc, dispatcher := dispatchTestService(fakeContacts{
		name:  "Sharma Electricals",
		email: "sales@sharma.example",
		phone: "+91 98765 43210",
	})
	po := directPO(t, svc)
	require.NoError(t, svc.ApproveDirectPO(context.Background(), po.ID, "", manager))

	result, err := svc.DispatchPO(context.Background(), po.ID, officer)
	require.NoError(t, err)
	require.True(t, result.DocumentQueued)
	require.True(t, result.EmailQueued)
	require.Equal(t, []int64{po.ID}, dispatcher.renders)

	require.Len(t, dispatcher.emails, 1)
	mail := dispatcher.emails[0]
	require.Equal(t, "sales@sharma.example", mail.to)
	require.Contains(t, mail.subject, po.PONumber)
	require.Contains(t, mail.body, "Sharma Electricals")
	require.Equal(t, po.PONumber, mail.poNumber)

	require.Contains(t, result.WhatsAppLink, "https://wa.me/919876543210")
	require.Contains(t, result.WhatsAppLink, "text=")
}

func TestDispatchPORequiresOrderedState(t *testing.T) {
	svc, dispatcher := dispatchTestService(fakeContacts{email: "sales@sharma.example"})
	po := directPO(t, svc)

	_, err := svc.DispatchPO(context.Background(), po.ID, officer)
	require.ErrorIs(t, err, ErrInvalidState)
	require.Empty(t, dispatcher.renders)
	require.Empty(t, dispatcher.emails)
}

func TestDispatchPOWithoutContactDetails(t *testing.T) {
	svc, dispatcher := dispatchTestService(fakeContacts{name: "Sharma Electricals"})
	po := directPO(t, svc)
	require.NoError(t, svc.ApproveDirectPO(context.Background(), po.ID, "", manager))

	result, err := svc.DispatchPO(context.Background(), po.ID, officer)
	require.NoError(t, err)
	require.True(t, result.DocumentQueued)
	require.False(t, result.EmailQueued)
	require.Empty(t, result.WhatsAppLink)
	require.Equal(t, []int64{po.ID}, dispatcher.renders)
	require.Empty(t, dispatcher.emails)
}
