package schema

// Canonical column labels.
const (
	LabelDate     = "date"
	LabelAmount   = "amount"
	LabelQuantity = "quantity"
	LabelCurrency = "currency"
	LabelRate     = "rate"
)

// aliases maps a lower-cased cleaned label to its canonical label.
var aliases = map[string]string{
	"date":       LabelDate,
	"날짜":         LabelDate,
	"판매일":        LabelDate,
	"일자":         LabelDate,
	"거래일":        LabelDate,
	"sale_date":  LabelDate,
	"order_date": LabelDate,

	"amount":  LabelAmount,
	"sales":   LabelAmount,
	"revenue": LabelAmount,
	"매출":      LabelAmount,
	"매출액":     LabelAmount,
	"금액":      LabelAmount,
	"판매금액":    LabelAmount,
	"total":   LabelAmount,

	"quantity": LabelQuantity,
	"qty":      LabelQuantity,
	"수량":       LabelQuantity,
	"판매수량":     LabelQuantity,

	"currency": LabelCurrency,
	"통화":       LabelCurrency,
	"ccy":      LabelCurrency,

	"exchange_rate": LabelRate,
	"fx_rate":       LabelRate,
	"환율":            LabelRate,
}

// Inference patterns, most specific first. Matching is a case-insensitive
// substring test against the normalized label.
var (
	datePatterns     = []string{LabelDate, "날짜", "판매일", "일자", "거래일"}
	amountPatterns   = []string{LabelAmount, "매출액", "매출", "금액", "sales", "revenue", "total"}
	currencyPatterns = []string{LabelCurrency, "통화", "ccy"}
	ratePatterns     = []string{LabelRate, "환율", "fx"}
)

// Canonical returns the canonical label for a cleaned label, if it is a known alias.
func Canonical(label string) (string, bool) {
	c, ok := aliases[lower(label)]
	return c, ok
}
