package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"sales-forecast-lab/internal/coerce"
	"sales-forecast-lab/internal/config"
	"sales-forecast-lab/internal/currency"
	"sales-forecast-lab/internal/domain"
	"sales-forecast-lab/internal/forecast"
	"sales-forecast-lab/internal/guard"
	"sales-forecast-lab/internal/idhash"
	"sales-forecast-lab/internal/metrics"
	"sales-forecast-lab/internal/normalization"
	"sales-forecast-lab/internal/observability"
	"sales-forecast-lab/internal/schema"
	"sales-forecast-lab/internal/storage"
)

// Run modes, also used as metric labels.
const (
	ModeFiles   = "files"
	ModeProject = "project"
)

// ErrNoRowStore is returned for project operations on an analyzer built
// without a row store.
var ErrNoRowStore = errors.New("no row store configured")

// Input is one uploaded file.
type Input struct {
	Filename string
	Data     []byte
}

// Options configures an Analyzer. A nil Config uses config.Default(); a nil
// Provider is built from Config.Rates; a nil Model uses the logistic model.
type Options struct {
	Config   *config.Config
	RowStore storage.SalesRowStore
	RunStore storage.ForecastRunStore
	Provider currency.RateProvider
	Model    forecast.Model
	Logger   *slog.Logger
	Metrics  *observability.Metrics
	Clock    func() time.Time
}

// Analyzer runs the ingest → schema → coerce → currency → aggregate →
// forecast chain and, for projects, the guarded write-back.
type Analyzer struct {
	cfg       *config.Config
	runs      storage.ForecastRunStore
	guard     *guard.Guard
	converter *currency.Converter
	engine    *forecast.Engine
	logger    *slog.Logger
	metrics   *observability.Metrics
	clock     func() time.Time
}

// NewAnalyzer creates an analyzer.
func NewAnalyzer(opts Options) *Analyzer {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = observability.Discard()
	}
	clock := opts.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	provider := opts.Provider
	if provider == nil {
		provider = ProviderFromConfig(cfg.Rates)
	}

	a := &Analyzer{
		cfg:     cfg,
		runs:    opts.RunStore,
		logger:  logger,
		metrics: opts.Metrics,
		clock:   clock,
		converter: currency.NewConverter(cfg.Rates.Canonical, cfg.Rates.Foreign,
			provider, cfg.Rates.Timeout, logger),
		engine: forecast.NewEngine(opts.Model,
			forecast.WithHorizon(cfg.Forecast.Horizon),
			forecast.WithMinPoints(cfg.Forecast.MinPoints),
			forecast.WithCeiling(cfg.Forecast.Ceiling),
			forecast.WithLogger(logger),
		),
	}
	if opts.RowStore != nil {
		a.guard = guard.New(opts.RowStore, guard.WithClock(clock), guard.WithLogger(logger))
	}
	return a
}

// AnalyzeFiles analyzes uploaded files without touching any store. Files
// that cannot be read are reported per file; the batch fails only when none
// is usable or when a file's columns cannot be inferred.
func (a *Analyzer) AnalyzeFiles(ctx context.Context, inputs []Input) domain.Output {
	start := time.Now()
	out := a.analyzeFiles(ctx, inputs)
	a.recordRun(ModeFiles, out, start)
	return out
}

func (a *Analyzer) analyzeFiles(ctx context.Context, inputs []Input) domain.Output {
	tables, fileErrs := a.readInputs(inputs)
	if len(tables) == 0 {
		return noUsableFiles(fileErrs)
	}

	var (
		sources  [][]domain.Observation
		warnings []string
	)
	for _, l := range tables {
		obs, err := a.coerceTable(l.table)
		if err != nil {
			return failure(err, append(fileErrs, fileError(l.input.Filename, err)))
		}
		if len(obs) == 0 {
			warnings = append(warnings, fmt.Sprintf("%s: no usable rows", l.input.Filename))
		}
		sources = append(sources, obs)
	}

	res, err := a.analyze(ctx, normalization.Merge(sources...))
	if err != nil {
		return failure(err, fileErrs)
	}
	res.Warnings = append(warnings, res.Warnings...)
	res.FileErrors = fileErrs
	return domain.NewResultOutput(res)
}

// AnalyzeProject stores inputs as observed rows of the project, reads the
// project's history back through the guard, analyzes it, writes the forecast
// back as predicted rows and archives the run.
func (a *Analyzer) AnalyzeProject(ctx context.Context, projectID string, inputs []Input) domain.Output {
	start := time.Now()
	out := a.analyzeProject(ctx, projectID, inputs)
	a.recordRun(ModeProject, out, start)
	return out
}

func (a *Analyzer) analyzeProject(ctx context.Context, projectID string, inputs []Input) domain.Output {
	if a.guard == nil {
		return failure(&storage.PersistenceError{Op: "read", ProjectID: projectID, Err: ErrNoRowStore}, nil)
	}

	report, err := a.Ingest(ctx, projectID, inputs)
	if err != nil {
		return failure(err, report.FileErrors)
	}

	tables, stats, err := a.loadTraining(ctx, projectID)
	if err != nil {
		return failure(err, report.FileErrors)
	}
	if len(tables) == 0 && len(inputs) > 0 && len(report.FileErrors) == len(inputs) {
		return noUsableFiles(report.FileErrors)
	}

	var sources [][]domain.Observation
	for _, t := range tables {
		obs, err := a.coerceTable(t)
		if err != nil {
			return failure(err, report.FileErrors)
		}
		sources = append(sources, obs)
	}

	res, err := a.analyze(ctx, normalization.Merge(sources...))
	if err != nil {
		return failure(err, report.FileErrors)
	}
	res.Warnings = append(report.Warnings, res.Warnings...)
	res.FileErrors = report.FileErrors

	runID := idhash.NewRunID()
	wctx, cancel := a.storeContext(ctx)
	defer cancel()
	written, err := a.guard.WriteForecast(wctx, projectID, runID, res.Forecast)
	if err != nil {
		return failure(err, report.FileErrors)
	}
	a.count(func(m *observability.Metrics) { m.ForecastRowsPersisted.Add(float64(written)) })

	if a.runs != nil {
		run := &domain.ForecastRun{
			RunID:          runID,
			ProjectID:      projectID,
			GeneratedAt:    a.clock(),
			TrainingPoints: len(res.Series),
			LastTrainDate:  res.Series.Last().Date,
			Summary:        res.Summary,
			Forecast:       res.Forecast,
		}
		if err := a.runs.Insert(wctx, run); err != nil {
			a.logger.Warn("forecast run not archived",
				slog.String("project_id", projectID),
				slog.String("run_id", runID),
				slog.String("error", err.Error()),
			)
			res.Warnings = append(res.Warnings, "forecast run not archived: "+err.Error())
		}
	}

	a.logger.Info("project analyzed",
		slog.String("project_id", projectID),
		slog.String("run_id", runID),
		slog.Int("predicted_excluded", stats.Predicted),
		slog.Int("training_dates", len(res.Series)),
	)
	return domain.NewResultOutput(res)
}

// analyze is the shared tail of both modes: currency normalization, daily
// aggregation, sufficiency, statistics and the forecast itself.
func (a *Analyzer) analyze(ctx context.Context, obs []domain.Observation) (*domain.Result, error) {
	var warnings []string

	obs, rep := a.converter.Normalize(ctx, obs)
	if rep.Skipped {
		a.count(func(m *observability.Metrics) { m.RateProviderFailures.Inc() })
		warnings = append(warnings, "currency conversion skipped: "+rep.Err.Error())
	}
	a.count(func(m *observability.Metrics) { m.RowsConverted.Add(float64(rep.Converted)) })

	series := normalization.DailySeries(obs)
	if _, err := CheckSufficiency(series, a.cfg.Forecast.MinPoints); err != nil {
		return nil, err
	}

	summary := metrics.Summarize(obs)
	outliers := metrics.Outliers(obs, a.cfg.Forecast.OutlierThreshold)
	summary.OutlierCount = len(outliers)

	points, err := a.engine.Forecast(ctx, series)
	if err != nil {
		return nil, err
	}

	return &domain.Result{
		Summary:  summary,
		Forecast: points,
		Series:   series,
		Outliers: outliers,
		Warnings: warnings,
	}, nil
}

// coerceTable normalizes labels, infers columns and coerces rows.
func (a *Analyzer) coerceTable(t *domain.RawTable) ([]domain.Observation, error) {
	schema.Normalize(t)
	cols, err := schema.Infer(t)
	if err != nil {
		return nil, err
	}
	obs, stats := coerce.Table(t, cols, a.logger)
	a.count(func(m *observability.Metrics) {
		m.RowsIngested.Add(float64(stats.Kept))
		for reason, n := range stats.Dropped {
			m.RowsDropped.WithLabelValues(reason).Add(float64(n))
		}
	})
	if stats.DroppedTotal() > 0 {
		a.logger.Info("rows dropped",
			slog.String("source", stats.Source),
			slog.Int("rows", stats.Rows),
			slog.Int("dropped", stats.DroppedTotal()),
		)
	}
	return obs, nil
}

func (a *Analyzer) loadTraining(ctx context.Context, projectID string) ([]*domain.RawTable, guard.FilterStats, error) {
	ctx, cancel := a.storeContext(ctx)
	defer cancel()

	start := time.Now()
	tables, stats, err := a.guard.LoadTraining(ctx, projectID)
	a.count(func(m *observability.Metrics) {
		m.RecordDBQuery("rows", "load_training", time.Since(start).Seconds(), err)
		m.SyntheticRowsFiltered.Add(float64(stats.Predicted))
	})
	return tables, stats, err
}

func (a *Analyzer) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.Store.Timeout > 0 {
		return context.WithTimeout(ctx, a.cfg.Store.Timeout)
	}
	return context.WithCancel(ctx)
}

func (a *Analyzer) recordRun(mode string, out domain.Output, start time.Time) {
	status := "success"
	if !out.OK() {
		status = out.Failure.Kind
		a.logger.Warn("analysis failed",
			slog.String("mode", mode),
			slog.String("kind", out.Failure.Kind),
			slog.String("error", out.Failure.Message),
		)
	}
	a.count(func(m *observability.Metrics) {
		m.RecordRun(mode, status, time.Since(start).Seconds())
		if out.OK() {
			m.LastSuccessfulRun.SetToCurrentTime()
		}
	})
}

// count applies fn when metrics are enabled.
func (a *Analyzer) count(fn func(m *observability.Metrics)) {
	if a.metrics != nil {
		fn(a.metrics)
	}
}
