package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/ampere-erp/ampere-erp/internal/gst"
)

// POVendor carries the supplier block of the purchase order document.
type POVendor struct {
	Name          string
	ContactPerson string
	Phone         string
	Email         string
	GSTNumber     string
	Address       string
}

// PODeliverTo carries the delivery site block.
type PODeliverTo struct {
	Name    string
	Address string
	City    string
	State   string
	PINCode string
}

// POLine is one order line. UnitRate is the per-unit price after bundle
// normalisation.
type POLine struct {
	ItemName        string
	HSNCode         string
	Quantity        float64
	Unit            string
	UnitRate        float64
	DiscountPercent float64
	GSTRate         float64
}

// POPayload aggregates everything the purchase order document renders.
type POPayload struct {
	PONumber     string
	OrderDate    time.Time
	ValidTill    time.Time
	IsDirect     bool
	Vendor       POVendor
	DeliverTo    PODeliverTo
	Lines        []POLine
	PreparedBy   string
	ApprovedBy   string
	SignatureURL string
	Notes        string
}

var inrPrinter = message.NewPrinter(language.MustParse("en-IN"))

// formatINR renders a money value with Indian digit grouping and two
// decimals.
func formatINR(d decimal.Decimal) string {
	f, _ := d.Float64()
	return inrPrinter.Sprint(number.Decimal(f,
		number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

func formatQty(qty float64) string {
	s := fmt.Sprintf("%.4f", qty)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

type poLineView struct {
	Index    int
	ItemName string
	HSNCode  string
	Quantity string
	Unit     string
	Rate     string
	Discount string
	GSTRate  string
	Taxable  string
	Total    string
}

type taxGroupView struct {
	HSNCode string
	GSTRate string
	Taxable string
	CGST    string
	SGST    string
}

type poView struct {
	PONumber      string
	OrderDate     string
	ValidTill     string
	IsDirect      bool
	Vendor        POVendor
	DeliverTo     PODeliverTo
	Lines         []poLineView
	TaxGroups     []taxGroupView
	Subtotal      string
	RoundOff      string
	GrandTotal    string
	AmountInWords string
	PreparedBy    string
	ApprovedBy    string
	SignatureURL  string
	Notes         string
	GeneratedAt   string
}

// BuildPOHTML renders the purchase order as a standalone HTML document
// ready for PDF conversion.
func BuildPOHTML(payload POPayload) (string, error) {
	if payload.PONumber == "" {
		return "", fmt.Errorf("po number required")
	}
	if len(payload.Lines) == 0 {
		return "", fmt.Errorf("at least one order line required")
	}

	lines := make([]gst.Line, 0, len(payload.Lines))
	for _, l := range payload.Lines {
		lines = append(lines, gst.Line{
			HSNCode:         l.HSNCode,
			Quantity:        l.Quantity,
			PerUnitBasis:    1,
			UnitRate:        l.UnitRate,
			DiscountPercent: l.DiscountPercent,
			GSTRate:         l.GSTRate,
		})
	}
	totals := gst.ComputeDocument(lines)

	view := poView{
		PONumber:      payload.PONumber,
		OrderDate:     payload.OrderDate.Format("02 Jan 2006"),
		IsDirect:      payload.IsDirect,
		Vendor:        payload.Vendor,
		DeliverTo:     payload.DeliverTo,
		Subtotal:      formatINR(totals.Raw.Round(2)),
		RoundOff:      formatINR(totals.RoundOff),
		GrandTotal:    formatINR(totals.GrandTotal),
		AmountInWords: gst.AmountInWords(totals.GrandTotal),
		PreparedBy:    payload.PreparedBy,
		ApprovedBy:    payload.ApprovedBy,
		SignatureURL:  payload.SignatureURL,
		Notes:         payload.Notes,
		GeneratedAt:   time.Now().Format("02 Jan 2006 15:04"),
	}
	if !payload.ValidTill.IsZero() {
		view.ValidTill = payload.ValidTill.Format("02 Jan 2006")
	}
	for i, l := range payload.Lines {
		amounts := gst.ComputeLine(lines[i])
		view.Lines = append(view.Lines, poLineView{
			Index:    i + 1,
			ItemName: l.ItemName,
			HSNCode:  l.HSNCode,
			Quantity: formatQty(l.Quantity),
			Unit:     l.Unit,
			Rate:     formatINR(decimal.NewFromFloat(l.UnitRate).Round(2)),
			Discount: formatQty(l.DiscountPercent),
			GSTRate:  formatQty(l.GSTRate),
			Taxable:  formatINR(amounts.Taxable.Round(2)),
			Total:    formatINR(amounts.Total.Round(2)),
		})
	}
	for _, g := range gst.GroupTax(lines) {
		view.TaxGroups = append(view.TaxGroups, taxGroupView{
			HSNCode: g.HSNCode,
			GSTRate: formatQty(g.GSTRate),
			Taxable: formatINR(g.Taxable.Round(2)),
			CGST:    formatINR(g.CGST.Round(2)),
			SGST:    formatINR(g.SGST.Round(2)),
		})
	}

	buf := &bytes.Buffer{}
	if err := poTemplate.Execute(buf, view); err != nil {
		return "", fmt.Errorf("render po template: %w", err)
	}
	return buf.String(), nil
}

var poTemplate = template.Must(template.New("po").Parse(poTemplateHTML))

const poTemplateHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Purchase Order - {{.PONumber}}</title>
<style>
  body { font-family: Arial, Helvetica, sans-serif; font-size: 12px; color: #222; }
  .header { text-align: center; border-bottom: 2px solid #222; padding-bottom: 8px; }
  .header h1 { margin: 0; font-size: 20px; letter-spacing: 2px; }
  .meta, .parties { width: 100%; margin-top: 12px; }
  .parties td { vertical-align: top; width: 50%; padding: 6px; border: 1px solid #999; }
  .items-table, .tax-table { width: 100%; border-collapse: collapse; margin-top: 12px; }
  .items-table th, .items-table td, .tax-table th, .tax-table td { border: 1px solid #999; padding: 4px 6px; }
  .items-table th, .tax-table th { background: #eee; }
  .num { text-align: right; }
  .totals { margin-top: 8px; width: 40%; margin-left: auto; }
  .totals td { padding: 2px 6px; }
  .words { margin-top: 8px; font-weight: bold; }
  .signature { margin-top: 32px; text-align: right; }
  .signature img { max-height: 60px; }
  .footer { margin-top: 24px; font-size: 10px; color: #666; text-align: center; }
</style>
</head>
<body>
<div class="header">
  <h1>PURCHASE ORDER</h1>
  <div>{{.PONumber}}{{if .IsDirect}} (Direct){{end}}</div>
</div>
<table class="meta">
  <tr>
    <td>Order Date: {{.OrderDate}}</td>
    {{if .ValidTill}}<td class="num">Valid Till: {{.ValidTill}}</td>{{end}}
  </tr>
</table>
<table class="parties">
  <tr>
    <td>
      <strong>Supplier</strong><br>
      {{.Vendor.Name}}<br>
      {{.Vendor.Address}}<br>
      {{if .Vendor.GSTNumber}}GSTIN: {{.Vendor.GSTNumber}}<br>{{end}}
      {{if .Vendor.ContactPerson}}Attn: {{.Vendor.ContactPerson}}{{if .Vendor.Phone}}, {{.Vendor.Phone}}{{end}}{{end}}
    </td>
    <td>
      <strong>Deliver To</strong><br>
      {{.DeliverTo.Name}}<br>
      {{.DeliverTo.Address}}<br>
      {{.DeliverTo.City}}{{if .DeliverTo.State}}, {{.DeliverTo.State}}{{end}}{{if .DeliverTo.PINCode}} - {{.DeliverTo.PINCode}}{{end}}
    </td>
  </tr>
</table>
<table class="items-table">
  <thead>
    <tr>
      <th>#</th><th>Item</th><th>HSN/SAC</th><th>Qty</th><th>Unit</th>
      <th>Rate</th><th>Disc %</th><th>GST %</th><th>Taxable</th><th>Total</th>
    </tr>
  </thead>
  <tbody>
    {{range .Lines}}
    <tr>
      <td>{{.Index}}</td>
      <td>{{.ItemName}}</td>
      <td>{{.HSNCode}}</td>
      <td class="num">{{.Quantity}}</td>
      <td>{{.Unit}}</td>
      <td class="num">{{.Rate}}</td>
      <td class="num">{{.Discount}}</td>
      <td class="num">{{.GSTRate}}</td>
      <td class="num">{{.Taxable}}</td>
      <td class="num">{{.Total}}</td>
    </tr>
    {{end}}
  </tbody>
</table>
<table class="tax-table">
  <thead>
    <tr><th>HSN/SAC</th><th>GST %</th><th>Taxable Value</th><th>CGST</th><th>SGST</th></tr>
  </thead>
  <tbody>
    {{range .TaxGroups}}
    <tr>
      <td>{{.HSNCode}}</td>
      <td class="num">{{.GSTRate}}</td>
      <td class="num">{{.Taxable}}</td>
      <td class="num">{{.CGST}}</td>
      <td class="num">{{.SGST}}</td>
    </tr>
    {{end}}
  </tbody>
</table>
<table class="totals">
  <tr><td>Subtotal</td><td class="num">{{.Subtotal}}</td></tr>
  <tr><td>Round Off</td><td class="num">{{.RoundOff}}</td></tr>
  <tr><td><strong>Grand Total</strong></td><td class="num"><strong>{{.GrandTotal}}</strong></td></tr>
</table>
<div class="words">Amount in words: {{.AmountInWords}}</div>
{{if .Notes}}<div class="notes">Notes: {{.Notes}}</div>{{end}}
<div class="signature">
  {{if .SignatureURL}}<img src="{{.SignatureURL}}" alt="signature"><br>{{end}}
  {{if .ApprovedBy}}Approved by {{.ApprovedBy}}<br>{{end}}
  Prepared by {{.PreparedBy}}
</div>
<div class="footer">Computer-generated purchase order. Generated {{.GeneratedAt}}.</div>
</body>
</html>`
