package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SeriesPoint is one day of the canonical series.
type SeriesPoint struct {
	Date        time.Time       // calendar date, UTC midnight
	Amount      decimal.Decimal // sum of all observations on Date
	RecordCount int             // number of observations aggregated
}

// Series is the canonical training series: unique dates in ascending order.
type Series []SeriesPoint

// Last returns the final point. Panics on an empty series.
func (s Series) Last() SeriesPoint {
	return s[len(s)-1]
}

// Total sums all amounts in the series.
func (s Series) Total() decimal.Decimal {
	total := decimal.Zero
	for _, p := range s {
		total = total.Add(p.Amount)
	}
	return total
}

// ForecastPoint is one predicted day. Predicted is never negative.
type ForecastPoint struct {
	Date      time.Time
	Predicted int64
}

// Summary holds statistics over the per-record (pre-aggregation) amounts.
type Summary struct {
	Total        decimal.Decimal
	Mean         decimal.Decimal
	Max          decimal.Decimal
	Min          decimal.Decimal
	RecordCount  int
	OutlierCount int
}
