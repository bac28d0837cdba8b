// Package gst implements the Indian GST arithmetic used on purchase order
// documents: per-line taxable values, the CGST/SGST split, grand-total
// rounding and the compliance tax breakdown table. All functions are pure;
// money flows through decimals, never floats.
package gst

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Line is one document line before tax computation. PerUnitBasis defaults
// to 1 and normalises bundle-quoted rates to a single unit.
type Line struct {
	HSNCode         string
	Quantity        float64
	PerUnitBasis    float64
	UnitRate        float64
	DiscountPercent float64
	GSTRate         float64
}

// LineAmounts holds the computed money values for one line.
type LineAmounts struct {
	Taxable decimal.Decimal
	CGST    decimal.Decimal
	SGST    decimal.Decimal
	Total   decimal.Decimal
}

// ComputeLine derives taxable value, the equal CGST/SGST split and the line
// total. taxable = (qty / basis) * rate * (1 - discount/100); each GST half
// is taxable * (rate/2)/100.
func ComputeLine(line Line) LineAmounts {
	basis := line.PerUnitBasis
	if basis <= 0 {
		basis = 1
	}
	qty := decimal.NewFromFloat(line.Quantity).Div(decimal.NewFromFloat(basis))
	rate := decimal.NewFromFloat(line.UnitRate)
	discount := decimal.NewFromFloat(line.DiscountPercent)
	taxable := qty.Mul(rate).Mul(decimal.NewFromInt(1).Sub(discount.Div(hundred)))
	halfRate := decimal.NewFromFloat(line.GSTRate).Div(decimal.NewFromInt(2))
	cgst := taxable.Mul(halfRate).Div(hundred)
	sgst := cgst
	return LineAmounts{
		Taxable: taxable,
		CGST:    cgst,
		SGST:    sgst,
		Total:   taxable.Add(cgst).Add(sgst),
	}
}

// Totals aggregates a document. GrandTotal is the raw sum rounded
// half-away-from-zero to whole rupees; RoundOff is the signed delta kept at
// two decimals for auditability.
type Totals struct {
	Raw        decimal.Decimal
	GrandTotal decimal.Decimal
	RoundOff   decimal.Decimal
}

// ComputeDocument computes every line and folds them into document totals.
func ComputeDocument(lines []Line) Totals {
	raw := decimal.Zero
	for _, line := range lines {
		raw = raw.Add(ComputeLine(line).Total)
	}
	grand := raw.Round(0)
	return Totals{
		Raw:        raw,
		GrandTotal: grand,
		RoundOff:   grand.Sub(raw).Round(2),
	}
}

// TaxGroup is one row of the compliance breakdown table, grouping lines by
// (HSN/SAC code, GST rate).
type TaxGroup struct {
	HSNCode string
	GSTRate float64
	Taxable decimal.Decimal
	CGST    decimal.Decimal
	SGST    decimal.Decimal
}

// GroupTax builds the HSN/rate breakdown in first-seen order.
func GroupTax(lines []Line) []TaxGroup {
	type key struct {
		hsn  string
		rate float64
	}
	index := make(map[key]int)
	var groups []TaxGroup
	for _, line := range lines {
		amounts := ComputeLine(line)
		k := key{hsn: line.HSNCode, rate: line.GSTRate}
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, TaxGroup{HSNCode: line.HSNCode, GSTRate: line.GSTRate})
		}
		groups[i].Taxable = groups[i].Taxable.Add(amounts.Taxable)
		groups[i].CGST = groups[i].CGST.Add(amounts.CGST)
		groups[i].SGST = groups[i].SGST.Add(amounts.SGST)
	}
	return groups
}
