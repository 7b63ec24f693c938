package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-forecast-lab/internal/config"
	"sales-forecast-lab/internal/currency"
	"sales-forecast-lab/internal/domain"
	"sales-forecast-lab/internal/forecast"
	"sales-forecast-lab/internal/observability"
	"sales-forecast-lab/internal/storage/memory"
)

var testClock = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

// salesCSV builds a file with a doubled first day followed by days-1 more
// days of increasing sales.
func salesCSV(days int) []byte {
	var b strings.Builder
	b.WriteString("date,amount\n")
	b.WriteString("2024-01-01,\"1,000\"\n")
	b.WriteString("2024-01-01,500\n")
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < days-1; i++ {
		fmt.Fprintf(&b, "%s,%d\n", start.AddDate(0, 0, i).Format(domain.DateLayout), 800+i*10)
	}
	return []byte(b.String())
}

func currencyCSV(days int, code string) []byte {
	var b strings.Builder
	b.WriteString("판매일,매출액,통화\n")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < days; i++ {
		fmt.Fprintf(&b, "%s,%d,%s\n", start.AddDate(0, 0, i).Format("2006/01/02"), 100+i, code)
	}
	return []byte(b.String())
}

type failingProvider struct{}

func (failingProvider) Rates(context.Context, string) (map[string]decimal.Decimal, error) {
	return nil, errors.New("provider returned no data")
}

type brokenModel struct{}

func (brokenModel) Fit(context.Context, []forecast.TrainingPoint, forecast.Bounds) (forecast.Predictor, error) {
	return nil, forecast.ErrSingular
}

func newTestAnalyzer(t *testing.T, opts Options) *Analyzer {
	t.Helper()
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	if opts.Provider == nil {
		opts.Provider = failingProvider{}
	}
	opts.Clock = testClock
	return NewAnalyzer(opts)
}

func requireExactlyOne(t *testing.T, out domain.Output) {
	t.Helper()
	require.True(t, (out.Result == nil) != (out.Failure == nil), "output must hold exactly one of result or failure")
}

func TestAnalyzeFiles_AggregatesAndForecasts(t *testing.T) {
	a := newTestAnalyzer(t, Options{})

	out := a.AnalyzeFiles(context.Background(), []Input{{Filename: "sales.csv", Data: salesCSV(10)}})
	requireExactlyOne(t, out)
	require.True(t, out.OK(), "failure: %+v", out.Failure)

	res := out.Result
	require.Len(t, res.Series, 10)
	assert.True(t, res.Series[0].Amount.Equal(decimal.NewFromInt(1500)))
	assert.True(t, res.Summary.Total.Equal(res.Series.Total()))
	assert.True(t, res.Summary.Total.Equal(decimal.NewFromInt(9060)))
	assert.Equal(t, 11, res.Summary.RecordCount)

	require.Len(t, res.Forecast, 7)
	last := res.Series.Last().Date
	for i, p := range res.Forecast {
		assert.Equal(t, last.AddDate(0, 0, i+1), p.Date)
		assert.GreaterOrEqual(t, p.Predicted, int64(0))
	}
	assert.Empty(t, res.FileErrors)
}

func TestAnalyzeFiles_InsufficientData(t *testing.T) {
	a := newTestAnalyzer(t, Options{})

	out := a.AnalyzeFiles(context.Background(), []Input{{Filename: "sales.csv", Data: salesCSV(9)}})
	requireExactlyOne(t, out)
	require.False(t, out.OK())
	assert.Equal(t, "insufficient_data", out.Failure.Kind)
	assert.Contains(t, out.Failure.Message, "9 distinct dates")
}

func TestAnalyzeFiles_NoInputs(t *testing.T) {
	a := newTestAnalyzer(t, Options{})

	out := a.AnalyzeFiles(context.Background(), nil)
	requireExactlyOne(t, out)
	assert.Equal(t, "insufficient_data", out.Failure.Kind)
}

func TestAnalyzeFiles_PartialBatch(t *testing.T) {
	a := newTestAnalyzer(t, Options{})

	out := a.AnalyzeFiles(context.Background(), []Input{
		{Filename: "report.pdf", Data: []byte("%PDF-1.4 not a table")},
		{Filename: "sales.csv", Data: salesCSV(10)},
	})
	requireExactlyOne(t, out)
	require.True(t, out.OK(), "failure: %+v", out.Failure)
	require.Len(t, out.Result.FileErrors, 1)
	assert.Equal(t, "report.pdf", out.Result.FileErrors[0].Filename)
	assert.Equal(t, "format_error", out.Result.FileErrors[0].Kind)
}

func TestAnalyzeFiles_NoUsableFiles(t *testing.T) {
	a := newTestAnalyzer(t, Options{})

	out := a.AnalyzeFiles(context.Background(), []Input{
		{Filename: "a.pdf", Data: []byte("%PDF-1.4")},
		{Filename: "b.xls", Data: []byte{0xD0, 0xCF, 0x11, 0xE0}},
	})
	requireExactlyOne(t, out)
	require.False(t, out.OK())
	assert.Equal(t, "format_error", out.Failure.Kind)
	require.Len(t, out.Failure.Details, 2)
	assert.Equal(t, "decode_error", out.Failure.Details[1].Kind)
}

func TestAnalyzeFiles_SchemaErrorAborts(t *testing.T) {
	a := newTestAnalyzer(t, Options{})

	out := a.AnalyzeFiles(context.Background(), []Input{
		{Filename: "sales.csv", Data: salesCSV(10)},
		{Filename: "notes.csv", Data: []byte("foo,bar\n1,2\n")},
	})
	requireExactlyOne(t, out)
	require.False(t, out.OK())
	assert.Equal(t, "schema_inference_error", out.Failure.Kind)
	require.Len(t, out.Failure.Details, 1)
	assert.Equal(t, "notes.csv", out.Failure.Details[0].Filename)
}

func TestAnalyzeFiles_RateProviderFailureSkipsConversion(t *testing.T) {
	a := newTestAnalyzer(t, Options{Provider: failingProvider{}})

	out := a.AnalyzeFiles(context.Background(), []Input{{Filename: "usd.csv", Data: currencyCSV(10, "usd")}})
	requireExactlyOne(t, out)
	require.True(t, out.OK(), "failure: %+v", out.Failure)

	// 100 + 101 + ... + 109
	assert.True(t, out.Result.Summary.Total.Equal(decimal.NewFromInt(1045)))
	require.Len(t, out.Result.Warnings, 1)
	assert.Contains(t, out.Result.Warnings[0], "currency conversion skipped")
}

func TestAnalyzeFiles_ConvertsForeignCurrency(t *testing.T) {
	a := newTestAnalyzer(t, Options{Provider: currency.NewStaticProvider("KRW", decimal.NewFromInt(1300))})

	out := a.AnalyzeFiles(context.Background(), []Input{{Filename: "usd.csv", Data: currencyCSV(10, "USD")}})
	require.True(t, out.OK(), "failure: %+v", out.Failure)
	assert.True(t, out.Result.Summary.Total.Equal(decimal.NewFromInt(1045*1300)))
	assert.Empty(t, out.Result.Warnings)
}

func TestAnalyzeFiles_FitErrorAborts(t *testing.T) {
	a := newTestAnalyzer(t, Options{Model: brokenModel{}})

	out := a.AnalyzeFiles(context.Background(), []Input{{Filename: "sales.csv", Data: salesCSV(10)}})
	requireExactlyOne(t, out)
	require.False(t, out.OK())
	assert.Equal(t, "forecast_fit_error", out.Failure.Kind)
}

func TestAnalyzeProject_ForecastNeverRetrains(t *testing.T) {
	ctx := context.Background()
	rows := memory.NewSalesRowStore()
	runs := memory.NewForecastRunStore()
	a := newTestAnalyzer(t, Options{RowStore: rows, RunStore: runs})

	first := a.AnalyzeProject(ctx, "p1", []Input{{Filename: "sales.csv", Data: salesCSV(10)}})
	requireExactlyOne(t, first)
	require.True(t, first.OK(), "failure: %+v", first.Failure)

	stored, err := rows.GetByProject(ctx, "p1")
	require.NoError(t, err)
	predicted := 0
	for _, r := range stored {
		if r.IsPredicted() {
			predicted++
		}
	}
	assert.Equal(t, 7, predicted)
	assert.Len(t, stored, 11+7)

	second := a.AnalyzeProject(ctx, "p1", nil)
	require.True(t, second.OK(), "failure: %+v", second.Failure)
	require.Len(t, second.Result.Series, len(first.Result.Series))
	for i, sp := range first.Result.Series {
		assert.Equal(t, sp.Date, second.Result.Series[i].Date)
		assert.True(t, sp.Amount.Equal(second.Result.Series[i].Amount), "day %s", sp.Date)
	}
	assert.True(t, first.Result.Summary.Total.Equal(second.Result.Summary.Total))

	archived, err := a.Runs(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, archived, 2)
	assert.Equal(t, 10, archived[0].TrainingPoints)
	assert.Len(t, archived[1].Forecast, 7)
}

func TestAnalyzeProject_ReuploadIsWarning(t *testing.T) {
	ctx := context.Background()
	a := newTestAnalyzer(t, Options{RowStore: memory.NewSalesRowStore()})
	in := []Input{{Filename: "sales.csv", Data: salesCSV(10)}}

	require.True(t, a.AnalyzeProject(ctx, "p1", in).OK())
	out := a.AnalyzeProject(ctx, "p1", in)
	require.True(t, out.OK(), "failure: %+v", out.Failure)
	assert.Contains(t, out.Result.Warnings, "sales.csv: already stored")
	assert.Len(t, out.Result.Series, 10)
}

func TestAnalyzeProject_StoredHistoryInfersSameColumns(t *testing.T) {
	var b strings.Builder
	b.WriteString("date,net_amount,gross_amount\n")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		fmt.Fprintf(&b, "%s,100,1000\n", start.AddDate(0, 0, i).Format(domain.DateLayout))
	}
	in := []Input{{Filename: "net.csv", Data: []byte(b.String())}}

	ctx := context.Background()
	rows := memory.NewSalesRowStore()
	a := newTestAnalyzer(t, Options{RowStore: rows})

	files := a.AnalyzeFiles(ctx, in)
	require.True(t, files.OK(), "failure: %+v", files.Failure)
	project := a.AnalyzeProject(ctx, "p1", in)
	require.True(t, project.OK(), "failure: %+v", project.Failure)

	assert.True(t, files.Result.Summary.Total.Equal(decimal.NewFromInt(1200)))
	assert.True(t, project.Result.Summary.Total.Equal(files.Result.Summary.Total),
		"project total %s, files total %s", project.Result.Summary.Total, files.Result.Summary.Total)

	stored, err := rows.GetByProject(ctx, "p1")
	require.NoError(t, err)
	for _, r := range stored {
		if r.IsPredicted() {
			continue
		}
		assert.Contains(t, r.Payload, "amount")
		assert.Contains(t, r.Payload, "gross_amount")
		assert.NotContains(t, r.Payload, "net_amount")
	}
}

func TestAnalyzeProject_ExcludesTaggedRows(t *testing.T) {
	ctx := context.Background()
	rows := memory.NewSalesRowStore()
	require.NoError(t, rows.InsertBulk(ctx, []*domain.StoredRow{
		{
			RowID: "r1", ProjectID: "p1", Source: "upload.csv", Origin: domain.OriginObserved,
			Payload:    map[string]any{"date": "2024-01-02", "amount": 100.0},
			UploadedAt: testClock(),
		},
		{
			RowID: "r2", ProjectID: "p1", Source: "forecast", Origin: domain.OriginPredicted,
			Payload:    map[string]any{"date": "2024-01-01", "amount": int64(999999), domain.PayloadOriginKey: "forecast"},
			UploadedAt: testClock().Add(time.Second),
		},
	}))
	a := newTestAnalyzer(t, Options{RowStore: rows})

	records, outliers, err := a.ProjectRecords(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Amount.Equal(decimal.NewFromInt(100)))
	assert.Empty(t, outliers)

	out := a.AnalyzeProject(ctx, "p1", nil)
	require.False(t, out.OK())
	assert.Equal(t, "insufficient_data", out.Failure.Kind)
	assert.Contains(t, out.Failure.Message, "1 distinct dates")
}

func TestAnalyzeProject_SchemaErrorWritesNothing(t *testing.T) {
	ctx := context.Background()
	rows := memory.NewSalesRowStore()
	a := newTestAnalyzer(t, Options{RowStore: rows})

	out := a.AnalyzeProject(ctx, "p1", []Input{{Filename: "notes.csv", Data: []byte("foo,bar\n1,2\n")}})
	require.False(t, out.OK())
	assert.Equal(t, "schema_inference_error", out.Failure.Kind)

	stored, err := rows.GetByProject(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestAnalyzeProject_WithoutStore(t *testing.T) {
	a := newTestAnalyzer(t, Options{})

	out := a.AnalyzeProject(context.Background(), "p1", nil)
	requireExactlyOne(t, out)
	assert.Equal(t, "persistence_error", out.Failure.Kind)

	_, err := a.Runs(context.Background(), "p1")
	assert.ErrorIs(t, err, ErrNoRunStore)
}

func TestIngest_ReportsFiles(t *testing.T) {
	ctx := context.Background()
	a := newTestAnalyzer(t, Options{RowStore: memory.NewSalesRowStore()})

	report, err := a.Ingest(ctx, "p1", []Input{
		{Filename: "sales.csv", Data: salesCSV(10)},
		{Filename: "image.png", Data: []byte("\x89PNG\r\n\x1a\n")},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Files)
	assert.Equal(t, 11, report.Rows)
	require.Len(t, report.FileErrors, 1)
	assert.Equal(t, "image.png", report.FileErrors[0].Filename)

	listed, err := a.ObservedRows(ctx, "p1", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, listed, 11)
}

func TestAnalyzer_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := newTestAnalyzer(t, Options{Metrics: observability.NewMetrics("test", reg)})

	require.True(t, a.AnalyzeFiles(context.Background(), []Input{{Filename: "sales.csv", Data: salesCSV(10)}}).OK())

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["test_pipeline_runs_total"])
	assert.True(t, names["test_ingest_rows_coerced_total"])
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "insufficient_data", ErrorKind(fmt.Errorf("wrapped: %w", &InsufficientDataError{Dates: 3, Min: 10})))
	assert.Equal(t, KindInternal, ErrorKind(errors.New("plain")))
}

func TestCheckSufficiency(t *testing.T) {
	series := make(domain.Series, 10)
	check, err := CheckSufficiency(series, 10)
	require.NoError(t, err)
	assert.True(t, check.Pass)
	assert.Equal(t, "10", check.Actual)

	check, err = CheckSufficiency(series[:9], 10)
	var insufficient *InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 9, insufficient.Dates)
	assert.False(t, check.Pass)
}
