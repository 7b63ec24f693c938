package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"

	"sales-forecast-lab/internal/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// delimiters in tie-break order.
var delimiters = []rune{',', ';', '\t', '|'}

// decodeText returns the input as UTF-8. Invalid UTF-8 is retried as CP949,
// the legacy Korean spreadsheet export encoding.
func decodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), nil
	}

	decoded, err := korean.EUCKR.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("cp949 fallback: %w", err)
	}
	if bytes.ContainsRune(decoded, utf8.RuneError) {
		return "", errors.New("input is neither UTF-8 nor CP949")
	}
	return string(decoded), nil
}

// sniffDelimiter picks the candidate occurring most often, outside quotes,
// in the first non-blank line. Defaults to comma.
func sniffDelimiter(text string) rune {
	var line string
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			line = l
			break
		}
	}

	counts := make(map[rune]int, len(delimiters))
	inQuotes := false
	for _, r := range line {
		if r == '"' {
			inQuotes = !inQuotes
			continue
		}
		if !inQuotes {
			counts[r]++
		}
	}

	best, bestCount := ',', 0
	for _, d := range delimiters {
		if counts[d] > bestCount {
			best, bestCount = d, counts[d]
		}
	}
	return best
}

func readDelimited(filename string, data []byte) (*domain.RawTable, error) {
	text, err := decodeText(data)
	if err != nil {
		return nil, &DecodeError{Filename: filename, Err: err}
	}

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = sniffDelimiter(text)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, &DecodeError{Filename: filename, Err: fmt.Errorf("parse delimited text: %w", err)}
	}

	table, err := buildTable(filename, records)
	if err != nil {
		return nil, &DecodeError{Filename: filename, Err: err}
	}
	return table, nil
}
