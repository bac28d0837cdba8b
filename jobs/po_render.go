package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ampere-erp/ampere-erp/internal/masterdata/sites"
	"github.com/ampere-erp/ampere-erp/internal/masterdata/vendors"
	"github.com/ampere-erp/ampere-erp/internal/procurement"
	"github.com/ampere-erp/ampere-erp/internal/storage"
	"github.com/ampere-erp/ampere-erp/internal/users"
	"github.com/ampere-erp/ampere-erp/report"
)

// OrderSource fetches purchase orders for rendering.
type OrderSource interface {
	GetPO(ctx context.Context, id int64) (procurement.PurchaseOrder, error)
}

// VendorSource resolves the supplier block.
type VendorSource interface {
	Get(ctx context.Context, id int64) (vendors.Vendor, error)
}

// SiteSource resolves the delivery site block.
type SiteSource interface {
	Get(ctx context.Context, id int64) (sites.Site, error)
}

// UserSource resolves preparer and approver names.
type UserSource interface {
	Get(ctx context.Context, id int64) (users.User, error)
}

// PDFConverter turns HTML into PDF bytes.
type PDFConverter interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// BlobSink stores rendered documents.
type BlobSink interface {
	Put(key string, r io.Reader) error
}

// URLSigner mints the signature image URL embedded in the document.
type URLSigner interface {
	DownloadURL(key string, ttl time.Duration) storage.SignedURL
}

// PORenderer renders purchase order PDFs in the background.
type PORenderer struct {
	Logger    *slog.Logger
	Orders    OrderSource
	Vendors   VendorSource
	Sites     SiteSource
	Users     UserSource
	Converter PDFConverter
	Sink      BlobSink
	Signer    URLSigner
}

// DocumentKey names the stored PDF for a purchase order.
func DocumentKey(poNumber string) string {
	return "documents/" + poNumber + ".pdf"
}

// HandlePORender processes po:render tasks.
func (p *PORenderer) HandlePORender(ctx context.Context, t *asynq.Task) error {
	var payload PORenderPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	po, err := p.Orders.GetPO(ctx, payload.POID)
	if err != nil {
		return fmt.Errorf("load po %d: %w", payload.POID, err)
	}
	doc, err := p.buildPayload(ctx, po)
	if err != nil {
		return err
	}
	html, err := report.BuildPOHTML(doc)
	if err != nil {
		return err
	}
	pdf, err := p.Converter.RenderHTML(ctx, html)
	if err != nil {
		return fmt.Errorf("convert po %s: %w", po.PONumber, err)
	}
	key := DocumentKey(po.PONumber)
	if err := p.Sink.Put(key, bytes.NewReader(pdf)); err != nil {
		return fmt.Errorf("store po document: %w", err)
	}
	p.Logger.Info("po document rendered", "po_number", po.PONumber, "key", key, "bytes", len(pdf))
	return nil
}

func (p *PORenderer) buildPayload(ctx context.Context, po procurement.PurchaseOrder) (report.POPayload, error) {
	vendor, err := p.Vendors.Get(ctx, po.VendorID)
	if err != nil {
		return report.POPayload{}, fmt.Errorf("load vendor %d: %w", po.VendorID, err)
	}
	site, err := p.Sites.Get(ctx, po.SiteID)
	if err != nil {
		return report.POPayload{}, fmt.Errorf("load site %d: %w", po.SiteID, err)
	}

	doc := report.POPayload{
		PONumber:  po.PONumber,
		OrderDate: po.CreatedAt,
		ValidTill: po.ValidTill,
		IsDirect:  po.IsDirect,
		Vendor: report.POVendor{
			Name:          vendor.Name,
			ContactPerson: vendor.ContactPerson,
			Phone:         vendor.Phone,
			Email:         vendor.Email,
			GSTNumber:     vendor.GSTNumber,
			Address:       vendor.Address,
		},
		DeliverTo: report.PODeliverTo{
			Name:    site.Name,
			Address: site.Address,
			City:    site.City,
			State:   site.State,
			PINCode: site.PINCode,
		},
	}
	for _, item := range po.Items {
		doc.Lines = append(doc.Lines, report.POLine{
			ItemName:        item.ItemName,
			HSNCode:         item.HSNCode,
			Quantity:        item.Quantity,
			Unit:            item.Unit,
			UnitRate:        item.UnitRate,
			DiscountPercent: item.DiscountPercent,
			GSTRate:         item.GSTRate,
		})
	}
	if creator, err := p.Users.Get(ctx, po.CreatedBy); err == nil {
		doc.PreparedBy = creator.Name
	}
	if po.ApprovedBy != 0 {
		if approver, err := p.Users.Get(ctx, po.ApprovedBy); err == nil {
			doc.ApprovedBy = approver.Name
		}
	}
	if po.SignatureKey != "" && p.Signer != nil {
		doc.SignatureURL = p.Signer.DownloadURL(po.SignatureKey, 24*time.Hour).URL
	}
	return doc, nil
}
