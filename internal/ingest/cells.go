package ingest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"sales-forecast-lab/internal/domain"
)

var plainNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// cell types a raw text cell: plain numbers become numeric, blanks null.
// Anything with separators or symbols stays text for the coercion stage.
func cell(raw string) domain.Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return domain.Null()
	}
	if plainNumber.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return domain.Number(f)
		}
	}
	return domain.String(raw)
}

// buildTable turns a header row plus records into a RawTable. Blank records
// are skipped; records wider than the header get "Unnamed: N" columns.
func buildTable(source string, records [][]string) (*domain.RawTable, error) {
	headerAt := -1
	for i, rec := range records {
		if !blank(rec) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil, fmt.Errorf("no header row")
	}

	width := 0
	for _, rec := range records[headerAt:] {
		if len(rec) > width {
			width = len(rec)
		}
	}

	header := records[headerAt]
	columns := make([]string, width)
	for i := range columns {
		if i < len(header) && strings.TrimSpace(header[i]) != "" {
			columns[i] = header[i]
		} else {
			columns[i] = fmt.Sprintf("Unnamed: %d", i)
		}
	}

	table := domain.NewRawTable(source, columns)
	for _, rec := range records[headerAt+1:] {
		if blank(rec) {
			continue
		}
		cells := make([]domain.Value, len(rec))
		for i, raw := range rec {
			cells[i] = cell(raw)
		}
		table.AppendRow(cells)
	}
	return table, nil
}

func blank(rec []string) bool {
	for _, s := range rec {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}
