package gst

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestComputeLine(t *testing.T) {
	// 10 units at 100/unit, 5% discount, 18% GST.
	amounts := ComputeLine(Line{Quantity: 10, UnitRate: 100, DiscountPercent: 5, GSTRate: 18})
	require.True(t, amounts.Taxable.Equal(decimal.NewFromFloat(950)), "taxable = %s", amounts.Taxable)
	require.True(t, amounts.CGST.Equal(decimal.NewFromFloat(85.5)), "cgst = %s", amounts.CGST)
	require.True(t, amounts.SGST.Equal(decimal.NewFromFloat(85.5)), "sgst = %s", amounts.SGST)
	require.True(t, amounts.Total.Equal(decimal.NewFromFloat(1121)), "total = %s", amounts.Total)
}

func TestComputeLineBundleBasis(t *testing.T) {
	// 500 per bundle of 50 is 10 per unit.
	amounts := ComputeLine(Line{Quantity: 50, PerUnitBasis: 50, UnitRate: 500, GSTRate: 0})
	require.True(t, amounts.Taxable.Equal(decimal.NewFromFloat(500)), "taxable = %s", amounts.Taxable)
}

func TestTaxSplitInvariant(t *testing.T) {
	cases := []Line{
		{Quantity: 3, UnitRate: 99.99, GSTRate: 18},
		{Quantity: 7, UnitRate: 1234.56, DiscountPercent: 12.5, GSTRate: 28},
		{Quantity: 1, UnitRate: 0.01, GSTRate: 5},
	}
	for _, line := range cases {
		amounts := ComputeLine(line)
		want := amounts.Taxable.Mul(decimal.NewFromFloat(line.GSTRate)).Div(decimal.NewFromInt(100))
		require.True(t, amounts.CGST.Add(amounts.SGST).Equal(want),
			"cgst+sgst = %s, want %s", amounts.CGST.Add(amounts.SGST), want)
	}
}

func TestComputeDocumentRounding(t *testing.T) {
	// Raw totals summing to 12345.67 round up to 12346 with 0.33 round-off.
	totals := ComputeDocument([]Line{
		{Quantity: 1, UnitRate: 12000, GSTRate: 0},
		{Quantity: 1, UnitRate: 345.67, GSTRate: 0},
	})
	require.True(t, totals.Raw.Equal(decimal.NewFromFloat(12345.67)), "raw = %s", totals.Raw)
	require.True(t, totals.GrandTotal.Equal(decimal.NewFromInt(12346)), "grand = %s", totals.GrandTotal)
	require.True(t, totals.RoundOff.Equal(decimal.NewFromFloat(0.33)), "roundoff = %s", totals.RoundOff)
}

func TestComputeDocumentRoundsDown(t *testing.T) {
	totals := ComputeDocument([]Line{{Quantity: 1, UnitRate: 100.4, GSTRate: 0}})
	require.True(t, totals.GrandTotal.Equal(decimal.NewFromInt(100)), "grand = %s", totals.GrandTotal)
	require.True(t, totals.RoundOff.Equal(decimal.NewFromFloat(-0.4)), "roundoff = %s", totals.RoundOff)
}

func TestGroupTax(t *testing.T) {
	groups := GroupTax([]Line{
		{HSNCode: "8544", Quantity: 10, UnitRate: 100, GSTRate: 18},
		{HSNCode: "8544", Quantity: 5, UnitRate: 200, GSTRate: 18},
		{HSNCode: "8536", Quantity: 2, UnitRate: 50, GSTRate: 12},
	})
	require.Len(t, groups, 2)
	require.Equal(t, "8544", groups[0].HSNCode)
	require.True(t, groups[0].Taxable.Equal(decimal.NewFromInt(2000)), "taxable = %s", groups[0].Taxable)
	require.True(t, groups[0].CGST.Equal(decimal.NewFromInt(180)), "cgst = %s", groups[0].CGST)
	require.Equal(t, "8536", groups[1].HSNCode)
	require.Equal(t, float64(12), groups[1].GSTRate)
}
