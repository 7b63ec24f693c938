package coerce

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"sales-forecast-lab/internal/domain"
)

var amountNoise = strings.NewReplacer(
	",", "", " ", "", "\t", "", "\u00a0", "",
	"$", "", "₩", "", "€", "", "£", "", "¥", "", "원", "",
)

// Amount coerces a cell to a non-negative decimal amount. Thousands
// separators, whitespace and currency symbols are stripped first. Empty,
// unparseable, non-finite and negative values report false and must be dropped.
func Amount(v domain.Value) (decimal.Decimal, bool) {
	switch v.Kind {
	case domain.KindNumber:
		if math.IsNaN(v.Num) || math.IsInf(v.Num, 0) || v.Num < 0 {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(v.Num), true
	case domain.KindString:
		s := amountNoise.Replace(strings.TrimSpace(v.Str))
		s = stripCurrencyCode(s)
		if s == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(s)
		if err != nil || d.IsNegative() {
			return decimal.Zero, false
		}
		return d, true
	}
	return decimal.Zero, false
}

// stripCurrencyCode removes a leading or trailing three-letter code such as
// "USD1200" or "1200KRW".
func stripCurrencyCode(s string) string {
	if len(s) > 3 && isUpperCode(s[:3]) {
		return s[3:]
	}
	if len(s) > 3 && isUpperCode(s[len(s)-3:]) {
		return s[:len(s)-3]
	}
	return s
}

func isUpperCode(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}
