package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testPayload() POPayload {
	return POPayload{
		PONumber:  "PO-1750000000000000000",
		OrderDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		ValidTill: time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		Vendor: POVendor{
			Name:          "Sharma Electricals",
			ContactPerson: "R. Sharma",
			Phone:         "+91 98765 43210",
			GSTNumber:     "27AAACS1234A1Z5",
			Address:       "14 MIDC Estate, Pune",
		},
		DeliverTo: PODeliverTo{
			Name:    "Unit 2 Assembly",
			Address: "Plot 7, Industrial Area",
			City:    "Pune",
			State:   "Maharashtra",
			PINCode: "411019",
		},
		Lines: []POLine{
			{ItemName: "Copper Wire 2.5sqmm", HSNCode: "8544", Quantity: 1000, Unit: "m", UnitRate: 100, GSTRate: 18},
			{ItemName: "MCB 16A", HSNCode: "8536", Quantity: 20, Unit: "pcs", UnitRate: 250, DiscountPercent: 10, GSTRate: 18},
		},
		PreparedBy:   "Procurement Officer",
		ApprovedBy:   "Plant Manager",
		SignatureURL: "https://api.example.com/objects/signature/abc.png?expires=1&sig=x",
	}
}

func TestBuildPOHTMLStructureAndParties(t *testing.T) {
	html, err := BuildPOHTML(testPayload())
	require.NoError(t, err)

	require.Contains(t, html, "<!DOCTYPE html>")
	require.Contains(t, html, "<title>Purchase Order - PO-1750000000000000000</title>")
	require.Contains(t, html, "PURCHASE ORDER")
	require.Contains(t, html, "Sharma Electricals")
	require.Contains(t, html, "GSTIN: 27AAACS1234A1Z5")
	require.Contains(t, html, "Unit 2 Assembly")
	require.Contains(t, html, "Pune, Maharashtra - 411019")
	require.Contains(t, html, "Valid Till: 30 Jun 2025")
}

func TestBuildPOHTMLTotalsUseIndianGrouping(t *testing.T) {
	html, err := BuildPOHTML(testPayload())
	require.NoError(t, err)

	// Line 1: 1000 * 100 = 1,00,000 taxable.
	require.Contains(t, html, "1,00,000.00")
	// Line 2: 20 * 250 * 0.9 = 4,500 taxable.
	require.Contains(t, html, "4,500.00")
	// Grand total: (100000 + 4500) * 1.18 = 1,23,310.
	require.Contains(t, html, "1,23,310.00")
	require.Contains(t, html, "Amount in words: One Lakh Twenty Three Thousand Three Hundred Ten Rupees Only")
}

func TestBuildPOHTMLTaxTableGroupsByHSN(t *testing.T) {
	payload := testPayload()
	payload.Lines = append(payload.Lines, POLine{
		ItemName: "Copper Wire 1.5sqmm", HSNCode: "8544", Quantity: 100, Unit: "m", UnitRate: 60, GSTRate: 18,
	})
	html, err := BuildPOHTML(payload)
	require.NoError(t, err)

	// Both wire lines share (8544, 18): taxable 1,00,000 + 6,000.
	require.Contains(t, html, "1,06,000.00")

	_, taxTable, found := strings.Cut(html, `<table class="tax-table">`)
	require.True(t, found)
	taxTable, _, _ = strings.Cut(taxTable, "</table>")
	require.Equal(t, 1, strings.Count(taxTable, "<td>8544</td>"))
	require.Equal(t, 1, strings.Count(taxTable, "<td>8536</td>"))
}

func TestBuildPOHTMLSignatureBlock(t *testing.T) {
	html, err := BuildPOHTML(testPayload())
	require.NoError(t, err)
	require.Contains(t, html, `<img src="https://api.example.com/objects/signature/abc.png?expires=1&amp;sig=x"`)
	require.Contains(t, html, "Approved by Plant Manager")
	require.Contains(t, html, "Prepared by Procurement Officer")
}

func TestBuildPOHTMLEscapesContent(t *testing.T) {
	payload := testPayload()
	payload.Vendor.Name = "<script>alert('x')</script>"
	html, err := BuildPOHTML(payload)
	require.NoError(t, err)
	require.NotContains(t, html, "<script>")
	require.Contains(t, html, "&lt;script&gt;")
}

func TestBuildPOHTMLValidation(t *testing.T) {
	payload := testPayload()
	payload.PONumber = ""
	_, err := BuildPOHTML(payload)
	require.Error(t, err)

	payload = testPayload()
	payload.Lines = nil
	_, err = BuildPOHTML(payload)
	require.Error(t, err)
}
