package gst

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestAmountInWords(t *testing.T) {
	cases := []struct {
		amount float64
		want   string
	}{
		{0, "Zero Rupees Only"},
		{1, "One Rupees Only"},
		{21, "Twenty One Rupees Only"},
		{105, "One Hundred Five Rupees Only"},
		{1100, "One Thousand One Hundred Rupees Only"},
		{100000, "One Lakh Rupees Only"},
		{2550000, "Twenty Five Lakh Fifty Thousand Rupees Only"},
		{10000000, "One Crore Rupees Only"},
		{12345678, "One Crore Twenty Three Lakh Forty Five Thousand Six Hundred Seventy Eight Rupees Only"},
		{12346.33, "Twelve Thousand Three Hundred Forty Six Rupees and Thirty Three Paise Only"},
		{0.5, "Zero Rupees and Fifty Paise Only"},
	}
	for _, tc := range cases {
		got := AmountInWords(decimal.NewFromFloat(tc.amount))
		require.Equal(t, tc.want, got, "amount %v", tc.amount)
	}
}

func TestAmountInWordsLargeCrore(t *testing.T) {
	// 123 crore groups the crore part recursively.
	got := AmountInWords(decimal.NewFromInt(1230000000))
	require.Equal(t, "One Hundred Twenty Three Crore Rupees Only", got)
}
