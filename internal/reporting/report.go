package reporting

import (
	"encoding/json"
	"sort"

	"sales-forecast-lab/internal/domain"
)

// ForecastKey is the result key of the forecast mapping.
const ForecastKey = "forecast_next_7_days"

// ResultJSON is the wire form of a successful analysis. Statistics are
// whole numbers, truncated toward zero.
type ResultJSON struct {
	TotalSales int64            `json:"total_sales"`
	AvgSales   int64            `json:"avg_sales"`
	MaxSales   int64            `json:"max_sales"`
	MinSales   int64            `json:"min_sales"`
	Forecast   map[string]int64 `json:"forecast_next_7_days"`
	Outliers   []string         `json:"outliers"`
	Warnings   []string         `json:"warnings,omitempty"`
	FileErrors []FileErrorJSON  `json:"file_errors,omitempty"`
}

// FailureJSON is the wire form of an aborted analysis.
type FailureJSON struct {
	Error   string          `json:"error"`
	Kind    string          `json:"kind"`
	Details []FileErrorJSON `json:"details,omitempty"`
}

// FileErrorJSON describes one rejected file.
type FileErrorJSON struct {
	Filename string `json:"filename"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
}

// NewResultJSON converts a result to its wire form.
func NewResultJSON(r *domain.Result) ResultJSON {
	out := ResultJSON{
		TotalSales: r.Summary.Total.IntPart(),
		AvgSales:   r.Summary.Mean.IntPart(),
		MaxSales:   r.Summary.Max.IntPart(),
		MinSales:   r.Summary.Min.IntPart(),
		Forecast:   make(map[string]int64, len(r.Forecast)),
		Outliers:   outlierDates(r.Outliers),
		Warnings:   r.Warnings,
		FileErrors: fileErrors(r.FileErrors),
	}
	for _, p := range r.Forecast {
		out.Forecast[p.Date.Format(domain.DateLayout)] = p.Predicted
	}
	return out
}

// NewFailureJSON converts a failure to its wire form.
func NewFailureJSON(f *domain.Failure) FailureJSON {
	return FailureJSON{Error: f.Message, Kind: f.Kind, Details: fileErrors(f.Details)}
}

// RenderJSON renders the single output object of a run.
func RenderJSON(out domain.Output) []byte {
	var v any
	if out.OK() {
		v = NewResultJSON(out.Result)
	} else {
		v = NewFailureJSON(out.Failure)
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return []byte(`{"error":"render output","kind":"internal_error"}`)
	}
	return append(b, '\n')
}

// outlierDates lists the distinct dates of flagged records in order.
func outlierDates(obs []domain.Observation) []string {
	seen := make(map[string]bool, len(obs))
	dates := make([]string, 0, len(obs))
	for _, o := range obs {
		k := o.DateKey()
		if !seen[k] {
			seen[k] = true
			dates = append(dates, k)
		}
	}
	sort.Strings(dates)
	return dates
}

func fileErrors(errs []domain.FileError) []FileErrorJSON {
	if len(errs) == 0 {
		return nil
	}
	out := make([]FileErrorJSON, len(errs))
	for i, e := range errs {
		out[i] = FileErrorJSON{Filename: e.Filename, Kind: e.Kind, Message: e.Message}
	}
	return out
}
