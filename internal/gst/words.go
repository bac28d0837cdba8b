package gst

import (
	"strings"

	"github.com/shopspring/decimal"
)

var onesWords = []string{
	"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine",
	"Ten", "Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen", "Sixteen",
	"Seventeen", "Eighteen", "Nineteen",
}

var tensWords = []string{
	"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety",
}

// AmountInWords spells an amount using the Indian numbering system
// (crore/lakh/thousand), with paise when present.
// 12345678.50 -> "One Crore Twenty Three Lakh Forty Five Thousand Six
// Hundred Seventy Eight Rupees and Fifty Paise Only".
func AmountInWords(amount decimal.Decimal) string {
	if amount.IsNegative() {
		return "Minus " + AmountInWords(amount.Neg())
	}
	rupees := amount.Truncate(0)
	paise := amount.Sub(rupees).Mul(hundred).Round(0)

	var parts []string
	r := rupees.IntPart()
	if r == 0 {
		parts = append(parts, "Zero Rupees")
	} else {
		parts = append(parts, integerInWords(r)+" Rupees")
	}
	if p := paise.IntPart(); p > 0 {
		parts = append(parts, "and "+integerInWords(p)+" Paise")
	}
	parts = append(parts, "Only")
	return strings.Join(parts, " ")
}

// integerInWords handles Indian grouping: two-digit groups for crore and
// above, then lakh, thousand, hundred.
func integerInWords(n int64) string {
	if n == 0 {
		return "Zero"
	}
	var parts []string
	if crore := n / 10000000; crore > 0 {
		parts = append(parts, integerInWords(crore), "Crore")
		n %= 10000000
	}
	if lakh := n / 100000; lakh > 0 {
		parts = append(parts, belowHundred(lakh), "Lakh")
		n %= 100000
	}
	if thousand := n / 1000; thousand > 0 {
		parts = append(parts, belowHundred(thousand), "Thousand")
		n %= 1000
	}
	if hundreds := n / 100; hundreds > 0 {
		parts = append(parts, onesWords[hundreds], "Hundred")
		n %= 100
	}
	if n > 0 {
		parts = append(parts, belowHundred(n))
	}
	return strings.Join(parts, " ")
}

func belowHundred(n int64) string {
	if n < 20 {
		return onesWords[n]
	}
	word := tensWords[n/10]
	if n%10 > 0 {
		word += " " + onesWords[n%10]
	}
	return word
}
