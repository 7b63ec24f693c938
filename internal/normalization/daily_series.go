package normalization

import (
	"sales-forecast-lab/internal/domain"
)

// Merge concatenates observations from several sources into one slice.
func Merge(sources ...[]domain.Observation) []domain.Observation {
	n := 0
	for _, s := range sources {
		n += len(s)
	}
	merged := make([]domain.Observation, 0, n)
	for _, s := range sources {
		merged = append(merged, s...)
	}
	return merged
}

// DailySeries folds observations into one point per calendar date.
//
// Aggregation for the same date:
//   - amount = SUM(amount)
//   - record_count = COUNT(*)
//
// The result has unique dates in ascending order. Input is not reordered.
func DailySeries(obs []domain.Observation) domain.Series {
	if len(obs) == 0 {
		return nil
	}

	sorted := make([]domain.Observation, len(obs))
	copy(sorted, obs)
	SortObservations(sorted)

	var result domain.Series
	var current *domain.SeriesPoint

	for _, o := range sorted {
		d := domain.Day(o.Date)
		if current == nil || !current.Date.Equal(d) {
			if current != nil {
				result = append(result, *current)
			}
			current = &domain.SeriesPoint{Date: d, Amount: o.Amount, RecordCount: 1}
			continue
		}
		current.Amount = current.Amount.Add(o.Amount)
		current.RecordCount++
	}

	if current != nil {
		result = append(result, *current)
	}
	return result
}
