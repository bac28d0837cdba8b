package jobs

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ampere-erp/ampere-erp/internal/masterdata/sites"
	"github.com/ampere-erp/ampere-erp/internal/masterdata/vendors"
	"github.com/ampere-erp/ampere-erp/internal/procurement"
	"github.com/ampere-erp/ampere-erp/internal/storage"
	"github.com/ampere-erp/ampere-erp/internal/users"
)

type fakeOrders struct{ po procurement.PurchaseOrder }

func (f *fakeOrders) GetPO(ctx context.Context, id int64) (procurement.PurchaseOrder, error) {
	if id != f.po.ID {
		return procurement.PurchaseOrder{}, procurement.ErrNotFound
	}
	return f.po, nil
}

type fakeVendors struct{ vendor vendors.Vendor }

func (f *fakeVendors) Get(ctx context.Context, id int64) (vendors.Vendor, error) {
	return f.vendor, nil
}

type fakeSites struct{ site sites.Site }

func (f *fakeSites) Get(ctx context.Context, id int64) (sites.Site, error) {
	return f.site, nil
}

type fakeUsers struct{ byID map[int64]users.User }

func (f *fakeUsers) Get(ctx context.Context, id int64) (users.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	return u, nil
}

type captureConverter struct{ html string }

func (c *captureConverter) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	c.html = html
	return []byte("PDF"), nil
}

type captureSink struct {
	key     string
	content []byte
}

func (c *captureSink) Put(key string, r io.Reader) error {
	c.key = key
	content, err := io.ReadAll(r)
	c.content = content
	return err
}

func TestHandlePORender(t *testing.T) {
	po := procurement.PurchaseOrder{
		ID:           42,
		PONumber:     "PO-42",
		VendorID:     7,
		SiteID:       3,
		Status:       procurement.POStatusOrdered,
		CreatedBy:    2,
		ApprovedBy:   3,
		SignatureKey: "signature/mgr.png",
		ValidTill:    time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:    time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Items: []procurement.POItem{
			{ItemName: "Copper Wire", HSNCode: "8544", Quantity: 100, Unit: "m", UnitRate: 90, GSTRate: 18},
		},
	}
	converter := &captureConverter{}
	sink := &captureSink{}
	renderer := &PORenderer{
		Logger:    slog.Default(),
		Orders:    &fakeOrders{po: po},
		Vendors:   &fakeVendors{vendor: vendors.Vendor{ID: 7, Name: "Sharma Electricals", Address: "Pune"}},
		Sites:     &fakeSites{site: sites.Site{ID: 3, Name: "Unit 2", City: "Pune"}},
		Users:     &fakeUsers{byID: map[int64]users.User{2: {ID: 2, Name: "Purchase Officer"}, 3: {ID: 3, Name: "Plant Manager"}}},
		Converter: converter,
		Sink:      sink,
		Signer:    storage.NewSigner("https://api.example.com", []byte("secret")),
	}

	task, err := NewPORenderTask(42)
	require.NoError(t, err)
	require.NoError(t, renderer.HandlePORender(context.Background(), task))

	require.Equal(t, "documents/PO-42.pdf", sink.key)
	require.True(t, bytes.Equal([]byte("PDF"), sink.content))

	require.Contains(t, converter.html, "PO-42")
	require.Contains(t, converter.html, "Sharma Electricals")
	require.Contains(t, converter.html, "Unit 2")
	require.Contains(t, converter.html, "Approved by Plant Manager")
	require.Contains(t, converter.html, "Prepared by Purchase Officer")
	require.Contains(t, converter.html, "signature/mgr.png")
}

func TestHandlePORenderUnknownPO(t *testing.T) {
	renderer := &PORenderer{
		Logger: slog.Default(),
		Orders: &fakeOrders{po: procurement.PurchaseOrder{ID: 1}},
	}
	task, err := NewPORenderTask(99)
	require.NoError(t, err)
	require.Error(t, renderer.HandlePORender(context.Background(), task))
}
