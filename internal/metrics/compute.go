package metrics

import (
	"math"

	"github.com/shopspring/decimal"

	"sales-forecast-lab/internal/domain"
)

// DefaultOutlierThreshold is the absolute z-score above which a record is flagged.
const DefaultOutlierThreshold = 2.0

// Summarize computes total, mean, max and min over per-record amounts, before
// any per-day aggregation. Returns a zero Summary for no records.
func Summarize(obs []domain.Observation) domain.Summary {
	n := len(obs)
	if n == 0 {
		return domain.Summary{}
	}

	total := decimal.Zero
	maxAmount, minAmount := obs[0].Amount, obs[0].Amount
	for _, o := range obs {
		total = total.Add(o.Amount)
		if o.Amount.GreaterThan(maxAmount) {
			maxAmount = o.Amount
		}
		if o.Amount.LessThan(minAmount) {
			minAmount = o.Amount
		}
	}

	return domain.Summary{
		Total:       total,
		Mean:        total.Div(decimal.NewFromInt(int64(n))),
		Max:         maxAmount,
		Min:         minAmount,
		RecordCount: n,
	}
}

// Outliers returns the records whose amount z-score exceeds threshold in
// absolute value, in input order. The z-score uses the mean and sample
// standard deviation of the full record set; a zero deviation flags nothing.
func Outliers(obs []domain.Observation, threshold float64) []domain.Observation {
	amounts := make([]float64, len(obs))
	for i, o := range obs {
		amounts[i] = o.Amount.InexactFloat64()
	}

	mean := computeMean(amounts)
	stddev := computeStddev(amounts, mean)
	if stddev == 0 || math.IsNaN(stddev) {
		return nil
	}

	var flagged []domain.Observation
	for i, a := range amounts {
		if math.Abs((a-mean)/stddev) > threshold {
			flagged = append(flagged, obs[i])
		}
	}
	return flagged
}

// computeMean calculates arithmetic mean.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}
