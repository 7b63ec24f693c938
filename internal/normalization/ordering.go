package normalization

import (
	"sort"

	"sales-forecast-lab/internal/domain"
)

// SortObservations orders observations by (date ASC, source ASC, row ASC).
// This gives a deterministic order independent of input file order.
func SortObservations(obs []domain.Observation) {
	sort.SliceStable(obs, func(i, j int) bool {
		return compareObservations(&obs[i], &obs[j]) < 0
	})
}

// compareObservations returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
func compareObservations(a, b *domain.Observation) int {
	if !a.Date.Equal(b.Date) {
		if a.Date.Before(b.Date) {
			return -1
		}
		return 1
	}
	if a.Source != b.Source {
		if a.Source < b.Source {
			return -1
		}
		return 1
	}
	if a.Row != b.Row {
		if a.Row < b.Row {
			return -1
		}
		return 1
	}
	return 0
}
