package pipeline

import (
	"fmt"
	"strconv"

	"sales-forecast-lab/internal/domain"
)

// SufficiencyCheck represents one data sufficiency criterion.
type SufficiencyCheck struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// InsufficientDataError reports a series too short to forecast from.
type InsufficientDataError struct {
	Dates int
	Min   int
}

func (e *InsufficientDataError) Error() string {
	if e.Dates == 0 {
		return "no usable sales records"
	}
	return fmt.Sprintf("insufficient data: %d distinct dates, need at least %d", e.Dates, e.Min)
}

// Kind returns the stable error kind.
func (e *InsufficientDataError) Kind() string { return "insufficient_data" }

// CheckSufficiency verifies the series has at least min distinct dates.
// The returned check is filled in either way.
func CheckSufficiency(series domain.Series, min int) (SufficiencyCheck, error) {
	check := SufficiencyCheck{
		Name:      "distinct_dates",
		Threshold: ">= " + strconv.Itoa(min),
		Actual:    strconv.Itoa(len(series)),
		Pass:      len(series) >= min && len(series) > 0,
	}
	if !check.Pass {
		return check, &InsufficientDataError{Dates: len(series), Min: min}
	}
	return check, nil
}
