package reporting

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"sales-forecast-lab/internal/domain"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func sampleResult() *domain.Result {
	forecast := make([]domain.ForecastPoint, 7)
	for i := range forecast {
		forecast[i] = domain.ForecastPoint{Date: day(11 + i), Predicted: int64(1000 + i)}
	}
	return &domain.Result{
		Summary: domain.Summary{
			Total:        decimal.RequireFromString("9150.75"),
			Mean:         decimal.RequireFromString("831.88"),
			Max:          decimal.NewFromInt(1000),
			Min:          decimal.NewFromInt(500),
			RecordCount:  11,
			OutlierCount: 2,
		},
		Forecast: forecast,
		Series: domain.Series{
			{Date: day(1), Amount: decimal.NewFromInt(1500), RecordCount: 2},
			{Date: day(2), Amount: decimal.RequireFromString("800.5"), RecordCount: 1},
		},
		Outliers: []domain.Observation{
			{Date: day(5), Amount: decimal.NewFromInt(9000), Source: "b.csv"},
			{Date: day(1), Amount: decimal.NewFromInt(8000), Source: "a.csv"},
		},
		Warnings:   []string{"currency conversion skipped: no data"},
		FileErrors: []domain.FileError{{Filename: "x.pdf", Kind: "format_error", Message: "unsupported"}},
	}
}

func TestRenderJSON_Result(t *testing.T) {
	raw := RenderJSON(domain.NewResultOutput(sampleResult()))

	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for _, key := range []string{"total_sales", "avg_sales", "max_sales", "min_sales", ForecastKey, "outliers", "warnings", "file_errors"} {
		if _, ok := got[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
	if _, ok := got["error"]; ok {
		t.Error("result must not carry an error key")
	}

	var res ResultJSON
	if err := json.Unmarshal(raw, &res); err != nil {
		t.Fatal(err)
	}
	if res.TotalSales != 9150 || res.AvgSales != 831 {
		t.Errorf("expected truncated stats 9150/831, got %d/%d", res.TotalSales, res.AvgSales)
	}
	if len(res.Forecast) != 7 || res.Forecast["2024-01-11"] != 1000 {
		t.Errorf("unexpected forecast %v", res.Forecast)
	}
	if strings.Join(res.Outliers, ",") != "2024-01-01,2024-01-05" {
		t.Errorf("unexpected outliers %v", res.Outliers)
	}
}

func TestRenderJSON_Failure(t *testing.T) {
	out := domain.NewFailureOutput(&domain.Failure{
		Kind:    "format_error",
		Message: "none of 1 files yielded usable data",
		Details: []domain.FileError{{Filename: "a.pdf", Kind: "format_error", Message: "bad"}},
	})

	var got map[string]any
	if err := json.Unmarshal(RenderJSON(out), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got["kind"] != "format_error" || got["error"] == "" {
		t.Errorf("unexpected failure object %v", got)
	}
	if _, ok := got["total_sales"]; ok {
		t.Error("failure must not carry result keys")
	}
	details, ok := got["details"].([]any)
	if !ok || len(details) != 1 {
		t.Errorf("expected one detail, got %v", got["details"])
	}
}

func TestRenderMarkdown(t *testing.T) {
	md := RenderMarkdown(domain.NewResultOutput(sampleResult()))

	for _, want := range []string{
		"# Sales Forecast Report",
		"| Total Sales | 9150 |",
		"| 2024-01-11 | 1000 |",
		"| 2024-01-05 | 9000 | b.csv |",
		"- currency conversion skipped: no data",
		"| x.pdf | format_error | unsupported |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}

	failed := RenderMarkdown(domain.NewFailureOutput(&domain.Failure{Kind: "insufficient_data", Message: "no usable sales records"}))
	if !strings.Contains(failed, "**insufficient_data**: no usable sales records") {
		t.Errorf("unexpected failure markdown:\n%s", failed)
	}
}

func TestRenderCSV(t *testing.T) {
	r := sampleResult()

	forecast := RenderForecastCSV(r.Forecast)
	lines := strings.Split(strings.TrimSpace(forecast), "\n")
	if len(lines) != 8 || lines[0] != "date,predicted" || lines[1] != "2024-01-11,1000" {
		t.Errorf("unexpected forecast CSV:\n%s", forecast)
	}

	series := RenderSeriesCSV(r.Series)
	want := "date,amount,records\n2024-01-01,1500,2\n2024-01-02,800.5,1\n"
	if series != want {
		t.Errorf("series CSV = %q, want %q", series, want)
	}
}
