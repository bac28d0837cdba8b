package procurement

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ampere-erp/ampere-erp/internal/shared"
)

func readyForCC(t *testing.T, svc *Service, itemName string, qty float64) PurchaseRequest {
	t.Helper()
	req := createDraft(t, svc, itemName, qty)
	require.NoError(t, svc.SubmitRequest(context.Background(), req.ID, requester))
	require.NoError(t, svc.PickupRequest(context.Background(), req.ID, officer))
	return req
}

func TestAddOrUpdateQuoteValidation(t *testing.T) {
	svc, _, _, _ := newTestService()
	req := readyForCC(t, svc, "Copper Wire", 10)

	_, err := svc.AddOrUpdateQuote(context.Background(), req.ID, QuoteInput{VendorID: 1, UnitPrice: -5}, officer)
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.AddOrUpdateQuote(context.Background(), req.ID, QuoteInput{VendorID: 1, UnitPrice: 10, DiscountPercent: 120}, officer)
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.AddOrUpdateQuote(context.Background(), req.ID, QuoteInput{VendorID: 1, UnitPrice: 10, GSTPercent: -1}, officer)
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.AddOrUpdateQuote(context.Background(), req.ID, QuoteInput{VendorID: 0, UnitPrice: 10}, officer)
	require.ErrorIs(t, err, ErrValidation)
}

func TestQuoteUpsertKeyedByVendor(t *testing.T) {
	svc, _, _, _ := newTestService()
	req := readyForCC(t, svc, "Copper Wire", 10)

	_, err := svc.AddOrUpdateQuote(context.Background(), req.ID, QuoteInput{VendorID: 1, UnitPrice: 100}, officer)
	require.NoError(t, err)
	_, err = svc.AddOrUpdateQuote(context.Background(), req.ID, QuoteInput{VendorID: 1, UnitPrice: 95}, officer)
	require.NoError(t, err)

	_, quotes, err := svc.GetComparison(context.Background(), req.ID)
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	require.Equal(t, float64(95), quotes[0].UnitPrice)
}

func TestSubmitRequiresQuotes(t *testing.T) {
	svc, _, _, _ := newTestService()
	req := readyForCC(t, svc, "Copper Wire", 10)

	// No comparison at all.
	err := svc.SubmitComparison(context.Background(), req.ID, officer)
	require.ErrorIs(t, err, ErrNotFound)

	// Comparison exists but all quotes removed.
	_, err = svc.AddOrUpdateQuote(context.Background(), req.ID, QuoteInput{VendorID: 1, UnitPrice: 100}, officer)
	require.NoError(t, err)
	require.NoError(t, svc.RemoveQuote(context.Background(), req.ID, 1, officer))
	err = svc.SubmitComparison(context.Background(), req.ID, officer)
	require.ErrorIs(t, err, ErrValidation)
}

func TestReviewApproveRequiresQuotedVendor(t *testing.T) {
	svc, repo, _, _ := newTestService()
	req := readyForCC(t, svc, "Copper Wire", 10)
	_, err := svc.AddOrUpdateQuote(context.Background(), req.ID, QuoteInput{VendorID: 1, UnitPrice: 100}, officer)
	require.NoError(t, err)
	require.NoError(t, svc.SubmitComparison(context.Background(), req.ID, officer))

	err = svc.ReviewComparison(context.Background(), req.ID, ReviewInput{Approve: true, SelectedVendorID: 99}, manager)
	require.ErrorIs(t, err, ErrValidation)

	require.NoError(t, svc.ReviewComparison(context.Background(), req.ID, ReviewInput{Approve: true, SelectedVendorID: 1}, manager))
	cc, _, err := svc.GetComparison(context.Background(), req.ID)
	require.NoError(t, err)
	require.Equal(t, CCStatusApproved, cc.Status)
	require.Equal(t, int64(1), cc.SelectedVendorID)
	require.Equal(t, RequestStatusReadyForPO, repo.requests[req.ID].Status)
}

func TestReviewRejectRequiresNotes(t *testing.T) {
	svc, repo, _, _ := newTestService()
	req := readyForCC(t, svc, "Copper Wire", 10)
	_, err := svc.AddOrUpdateQuote(context.Background(), req.ID, QuoteInput{VendorID: 1, UnitPrice: 100}, officer)
	require.NoError(t, err)
	require.NoError(t, svc.SubmitComparison(context.Background(), req.ID, officer))

	err = svc.ReviewComparison(context.Background(), req.ID, ReviewInput{Approve: false, Notes: "  "}, manager)
	require.ErrorIs(t, err, ErrValidation)

	require.NoError(t, svc.ReviewComparison(context.Background(), req.ID, ReviewInput{Approve: false, Notes: "prices too high"}, manager))
	cc, _, err := svc.GetComparison(context.Background(), req.ID)
	require.NoError(t, err)
	require.Equal(t, CCStatusRejected, cc.Status)
	require.Equal(t, "prices too high", cc.ManagerNotes)
	require.Equal(t, RequestStatusReadyForCC, repo.requests[req.ID].Status)
}

func TestReviewRequiresManager(t *testing.T) {
	svc, _, _, _ := newTestService()
	req := readyForCC(t, svc, "Copper Wire", 10)
	err := svc.ReviewComparison(context.Background(), req.ID, ReviewInput{Approve: true, SelectedVendorID: 1}, officer)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestResubmitOnlyFromRejected(t *testing.T) {
	svc, repo, _, _ := newTestService()
	req := readyForCC(t, svc, "Copper Wire", 10)
	_, err := svc.AddOrUpdateQuote(context.Background(), req.ID, QuoteInput{VendorID: 1, UnitPrice: 100}, officer)
	require.NoError(t, err)

	// Still draft: resubmit refused.
	err = svc.ResubmitComparison(context.Background(), req.ID, []QuoteInput{{VendorID: 1, UnitPrice: 90}}, officer)
	require.ErrorIs(t, err, ErrInvalidState)

	require.NoError(t, svc.SubmitComparison(context.Background(), req.ID, officer))
	require.NoError(t, svc.ReviewComparison(context.Background(), req.ID, ReviewInput{Approve: false, Notes: "revise"}, manager))

	require.NoError(t, svc.ResubmitComparison(context.Background(), req.ID, []QuoteInput{
		{VendorID: 2, UnitPrice: 80, GSTPercent: 18},
	}, officer))
	cc, quotes, err := svc.GetComparison(context.Background(), req.ID)
	require.NoError(t, err)
	require.Equal(t, CCStatusPending, cc.Status)
	require.Len(t, quotes, 1)
	require.Equal(t, int64(2), quotes[0].VendorID)
	require.Equal(t, RequestStatusCCPending, repo.requests[req.ID].Status)
}

func TestRankQuotes(t *testing.T) {
	// Vendor A: 100/bag flat + 18% GST. Vendor B: 90/bag, 5% discount, 18% GST.
	quotes := []Quote{
		{VendorID: 1, UnitPrice: 100, GSTPercent: 18, PerUnitBasis: 1, Position: 0},
		{VendorID: 2, UnitPrice: 90, DiscountPercent: 5, GSTPercent: 18, PerUnitBasis: 1, Position: 1},
	}
	ranked := RankQuotes(quotes, 10)
	require.Len(t, ranked, 2)
	require.Equal(t, int64(2), ranked[0].VendorID)
	require.True(t, ranked[0].BestPrice)
	require.False(t, ranked[1].BestPrice)
	require.InDelta(t, 90*0.95*1.18*10, ranked[0].Total, 1e-9)
	require.InDelta(t, 100*1.18*10, ranked[1].Total, 1e-9)
}

func TestRankQuotesNormalizesBundles(t *testing.T) {
	// 500 per bundle of 50 beats 11 per unit.
	quotes := []Quote{
		{VendorID: 1, UnitPrice: 11, PerUnitBasis: 1, Position: 0},
		{VendorID: 2, UnitPrice: 500, PerUnitBasis: 50, Position: 1},
	}
	ranked := RankQuotes(quotes, 100)
	require.Equal(t, int64(2), ranked[0].VendorID)
	require.InDelta(t, 10.0, ranked[0].NormalizedUnitPrice, 1e-9)
}

func TestRankQuotesTieKeepsInsertionOrder(t *testing.T) {
	quotes := []Quote{
		{VendorID: 5, UnitPrice: 100, PerUnitBasis: 1, Position: 0},
		{VendorID: 6, UnitPrice: 100, PerUnitBasis: 1, Position: 1},
	}
	ranked := RankQuotes(quotes, 10)
	require.Equal(t, int64(5), ranked[0].VendorID)
	require.True(t, ranked[0].BestPrice)
}

func TestDirectDeliveryDeductsStock(t *testing.T) {
	svc, repo, inv, _ := newTestService()
	inv.stock["Copper Wire"] = 50
	req := readyForCC(t, svc, "Copper Wire", 30)

	require.NoError(t, svc.MarkDirectDelivery(context.Background(), req.ID, DirectDeliveryInput{DeductQuantity: 30}, officer))
	require.Equal(t, float64(20), inv.stock["Copper Wire"])
	require.Equal(t, RequestStatusDeliveryStage, repo.requests[req.ID].Status)

	cc, quotes, err := svc.GetComparison(context.Background(), req.ID)
	require.NoError(t, err)
	require.True(t, cc.IsDirectDelivery)
	require.Equal(t, float64(30), cc.InventoryFulfillmentQuantity)
	require.Empty(t, quotes)
}

func TestDirectDeliveryPartialFulfillment(t *testing.T) {
	svc, _, inv, _ := newTestService()
	inv.stock["Copper Wire"] = 20
	req := readyForCC(t, svc, "Copper Wire", 30)

	require.NoError(t, svc.MarkDirectDelivery(context.Background(), req.ID, DirectDeliveryInput{
		DeductQuantity:   20,
		PurchaseQuantity: 15,
	}, officer))
	cc, _, err := svc.GetComparison(context.Background(), req.ID)
	require.NoError(t, err)
	require.Equal(t, float64(20), cc.InventoryFulfillmentQuantity)
	require.Equal(t, float64(15), cc.PurchaseQuantity)
}

func TestDirectDeliveryInsufficientStockLeavesRequest(t *testing.T) {
	svc, repo, inv, _ := newTestService()
	inv.stock["Copper Wire"] = 5
	req := readyForCC(t, svc, "Copper Wire", 30)

	err := svc.MarkDirectDelivery(context.Background(), req.ID, DirectDeliveryInput{DeductQuantity: 30}, officer)
	require.Error(t, err)
	require.Equal(t, float64(5), inv.stock["Copper Wire"])
	require.Equal(t, RequestStatusReadyForCC, repo.requests[req.ID].Status)
}

func TestSubmitNotifiesManagers(t *testing.T) {
	svc, _, _, notifier := newTestService()
	req := readyForCC(t, svc, "Copper Wire", 10)
	_, err := svc.AddOrUpdateQuote(context.Background(), req.ID, QuoteInput{VendorID: 1, UnitPrice: 100}, officer)
	require.NoError(t, err)
	require.NoError(t, svc.SubmitComparison(context.Background(), req.ID, officer))

	require.Len(t, notifier.events, 1)
	require.Equal(t, EventCCSubmitted, notifier.events[0].Kind)
	require.Equal(t, shared.RoleManager, notifier.events[0].TargetRole)
}

// txBoomRepo fails the workflow transaction on demand while leaving reads
// and setup traffic untouched.
type txBoomRepo struct {
	*memoryRepo
	boom bool
}

func (r *txBoomRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r.boom {
		return errTxBoom
	}
	return r.memoryRepo.WithTx(ctx, fn)
}

var errTxBoom = errors.New("tx failed")

func TestDirectDeliveryDoubleFireDeductsOnce(t *testing.T) {
	svc, repo, inv, _ := newTestService()
	inv.stock["Copper Wire"] = 50
	req := readyForCC(t, svc, "Copper Wire", 30)

	require.NoError(t, svc.MarkDirectDelivery(context.Background(), req.ID, DirectDeliveryInput{DeductQuantity: 30}, officer))
	require.Equal(t, float64(20), inv.stock["Copper Wire"])

	// Reset the request stage so only the idempotency key stands in the way.
	stored := repo.requests[req.ID]
	stored.Status = RequestStatusReadyForCC
	repo.requests[req.ID] = stored

	err := svc.MarkDirectDelivery(context.Background(), req.ID, DirectDeliveryInput{DeductQuantity: 30}, officer)
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	require.Equal(t, float64(20), inv.stock["Copper Wire"])
	require.Len(t, inv.deducts, 1)
}

func TestDirectDeliveryRestocksWhenTransitionFails(t *testing.T) {
	repo := &txBoomRepo{memoryRepo: newMemoryRepo()}
	inv := &fakeInventory{stock: map[string]float64{"Copper Wire": 50}}
	svc := NewService(repo, inv, nil, nil, &fakeIdempotency{}, nil, nil)
	req := readyForCC(t, svc, "Copper Wire", 30)

	repo.boom = true
	err := svc.MarkDirectDelivery(context.Background(), req.ID, DirectDeliveryInput{DeductQuantity: 30}, officer)
	require.ErrorIs(t, err, errTxBoom)
	require.Equal(t, float64(50), inv.stock["Copper Wire"])
	require.Len(t, inv.restocks, 1)
	require.Equal(t, RequestStatusReadyForCC, repo.requests[req.ID].Status)

	// The key was released with the rollback, so a retry goes through.
	repo.boom = false
	require.NoError(t, svc.MarkDirectDelivery(context.Background(), req.ID, DirectDeliveryInput{DeductQuantity: 30}, officer))
	require.Equal(t, float64(20), inv.stock["Copper Wire"])
}
