package schema

import (
	"fmt"
	"regexp"
	"strings"

	"sales-forecast-lab/internal/domain"
)

var mangled = regexp.MustCompile(`^(.+)\.(\d+)$`)

// CleanLabel strips byte-order marks and surrounding whitespace.
func CleanLabel(label string) string {
	return strings.TrimSpace(strings.ReplaceAll(label, "\ufeff", ""))
}

func lower(s string) string {
	return strings.ToLower(s)
}

// Normalize canonicalizes the table's labels in place.
//
// Known aliases are renamed to their canonical label. When a canonical label
// is already taken, the later column keeps its cleaned label. A column whose
// label is already taken is dropped when its values equal the earlier column,
// otherwise it is renamed with a ".N" suffix. Finally "X.N" columns whose
// values equal column X are dropped. Normalize is idempotent.
func Normalize(table *domain.RawTable) {
	labels := make([]string, len(table.Columns))
	taken := make(map[string]int, len(table.Columns))
	drop := make(map[int]bool)

	for i, col := range table.Columns {
		label := CleanLabel(col)
		if canon, ok := Canonical(label); ok {
			if _, used := taken[canon]; !used {
				label = canon
			}
		}

		if j, used := taken[label]; used {
			if sameValues(table, j, i) {
				drop[i] = true
				continue
			}
			label = uniqueLabel(label, taken)
		}
		taken[label] = i
		labels[i] = label
	}

	for i, label := range labels {
		if drop[i] {
			continue
		}
		m := mangled.FindStringSubmatch(label)
		if m == nil {
			continue
		}
		if j, ok := taken[m[1]]; ok && j != i && !drop[j] && sameValues(table, j, i) {
			drop[i] = true
		}
	}

	table.Columns = labels
	table.DropColumns(drop)
}

func uniqueLabel(label string, taken map[string]int) string {
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s.%d", label, n)
		if _, used := taken[candidate]; !used {
			return candidate
		}
	}
}

func sameValues(table *domain.RawTable, a, b int) bool {
	for _, row := range table.Rows {
		if !row[a].Equal(row[b]) {
			return false
		}
	}
	return true
}
