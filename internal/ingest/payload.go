package ingest

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"sales-forecast-lab/internal/domain"
	"sales-forecast-lab/internal/schema"
)

// FromPayloads builds a table from stored JSON payloads. Canonical date,
// amount, currency and rate keys lead in that order; the remaining columns
// are the union of keys in first-seen order, with each payload's keys
// visited sorted.
func FromPayloads(source string, payloads []map[string]any) *domain.RawTable {
	var columns []string
	seen := make(map[string]bool)
	for _, label := range schema.CanonicalOrder {
		for _, p := range payloads {
			if _, ok := p[label]; ok {
				seen[label] = true
				columns = append(columns, label)
				break
			}
		}
	}
	for _, p := range payloads {
		for _, k := range sortedKeys(p) {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}

	table := domain.NewRawTable(source, columns)
	for _, p := range payloads {
		cells := make([]domain.Value, len(columns))
		for i, c := range columns {
			cells[i] = payloadValue(p[c])
		}
		table.AppendRow(cells)
	}
	return table
}

func payloadValue(v any) domain.Value {
	switch x := v.(type) {
	case nil:
		return domain.Null()
	case string:
		return cell(x)
	case float64:
		return domain.Number(x)
	case float32:
		return domain.Number(float64(x))
	case int:
		return domain.Number(float64(x))
	case int64:
		return domain.Number(float64(x))
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return domain.Number(f)
		}
		return domain.String(x.String())
	case time.Time:
		return domain.Time(x)
	}
	return domain.String(fmt.Sprint(v))
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
