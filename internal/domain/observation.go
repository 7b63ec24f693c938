package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Observation is a coerced sales record: one valid (date, amount) pair.
// Amount is always finite and non-negative; rows that fail coercion never
// become an Observation.
type Observation struct {
	Date     time.Time        // calendar date, UTC midnight
	Amount   decimal.Decimal  // in canonical currency once currency normalization ran
	Currency string           // upper-cased currency tag, empty if the source has none
	Rate     *decimal.Decimal // per-row exchange rate override (nullable)
	Source   string           // originating file or store source
	Row      int              // 0-based row index within the source
}

// DateKey returns the ISO calendar date of the observation.
func (o Observation) DateKey() string {
	return o.Date.Format(DateLayout)
}

// DateLayout is the ISO calendar date layout used for keys and output.
const DateLayout = "2006-01-02"

// Day truncates t to its calendar date in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
