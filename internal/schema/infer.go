package schema

import (
	"fmt"
	"strings"

	"sales-forecast-lab/internal/domain"
)

// Columns is the explicit mapping from canonical field to column position.
// Optional fields are -1 when absent.
type Columns struct {
	Date     int
	Amount   int
	Currency int
	Rate     int
}

// HasCurrency reports whether a currency column was found.
func (c Columns) HasCurrency() bool { return c.Currency >= 0 }

// HasRate reports whether a per-row rate column was found.
func (c Columns) HasRate() bool { return c.Rate >= 0 }

// InferenceError reports a table whose required columns could not be found.
type InferenceError struct {
	Source  string
	Columns []string
	Missing []string
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("%s: cannot infer %s column among %q",
		e.Source, strings.Join(e.Missing, " and "), e.Columns)
}

// Kind returns the stable error kind.
func (e *InferenceError) Kind() string { return "schema_inference_error" }

// Infer locates the date and amount columns, plus optional currency and rate.
// Patterns are tried in order; for each pattern all columns are scanned in
// order, so the first column matching the first pattern wins. A column claimed
// by one field is not offered to the next.
func Infer(table *domain.RawTable) (Columns, error) {
	claimed := make(map[int]bool)
	cols := Columns{
		Date:   match(table.Columns, datePatterns, claimed),
		Amount: -1, Currency: -1, Rate: -1,
	}
	cols.Amount = match(table.Columns, amountPatterns, claimed)
	cols.Currency = match(table.Columns, currencyPatterns, claimed)
	cols.Rate = match(table.Columns, ratePatterns, claimed)

	var missing []string
	if cols.Date < 0 {
		missing = append(missing, LabelDate)
	}
	if cols.Amount < 0 {
		missing = append(missing, LabelAmount)
	}
	if len(missing) > 0 {
		return Columns{}, &InferenceError{Source: table.Source, Columns: table.Columns, Missing: missing}
	}
	return cols, nil
}

func match(labels, patterns []string, claimed map[int]bool) int {
	for _, p := range patterns {
		for i, label := range labels {
			if claimed[i] {
				continue
			}
			if strings.Contains(lower(label), lower(p)) {
				claimed[i] = true
				return i
			}
		}
	}
	return -1
}

// Canonicalize renames the inferred columns to their canonical labels. Any
// other column already holding one of those labels gets a ".N" suffix.
//
// A canonicalized table whose columns are reordered with CanonicalOrder
// first infers to the same columns again, which is what keeps stored
// history consistent with the upload it came from.
func Canonicalize(table *domain.RawTable, cols Columns) {
	inferred := map[int]string{cols.Date: LabelDate, cols.Amount: LabelAmount}
	if cols.HasCurrency() {
		inferred[cols.Currency] = LabelCurrency
	}
	if cols.HasRate() {
		inferred[cols.Rate] = LabelRate
	}

	taken := make(map[string]int, len(table.Columns))
	for i, label := range table.Columns {
		if _, ok := inferred[i]; !ok {
			taken[label] = i
		}
	}
	for i, label := range inferred {
		taken[label] = i
	}
	for i, label := range table.Columns {
		if canon, ok := inferred[i]; ok {
			table.Columns[i] = canon
			continue
		}
		if j := taken[label]; j != i {
			label = uniqueLabel(label, taken)
			taken[label] = i
			table.Columns[i] = label
		}
	}
}

// CanonicalOrder lists the inferred labels in the order they must lead a
// rebuilt table.
var CanonicalOrder = []string{LabelDate, LabelAmount, LabelCurrency, LabelRate}
