package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"sales-forecast-lab/internal/domain"
	"sales-forecast-lab/internal/guard"
	"sales-forecast-lab/internal/idhash"
	"sales-forecast-lab/internal/ingest"
	"sales-forecast-lab/internal/metrics"
	"sales-forecast-lab/internal/normalization"
	"sales-forecast-lab/internal/observability"
	"sales-forecast-lab/internal/schema"
	"sales-forecast-lab/internal/storage"
)

// ErrNoRunStore is returned by Runs on an analyzer built without a run archive.
var ErrNoRunStore = errors.New("no forecast run store configured")

// IngestReport describes what an upload stored.
type IngestReport struct {
	Files      int                // files stored or already present
	Rows       int                // rows written
	Warnings   []string           // e.g. content already stored
	FileErrors []domain.FileError // files that could not be read
}

type loaded struct {
	input Input
	table *domain.RawTable
}

// readInputs parses every input, collecting per-file errors.
func (a *Analyzer) readInputs(inputs []Input) ([]loaded, []domain.FileError) {
	var (
		tables []loaded
		errs   []domain.FileError
	)
	for _, in := range inputs {
		t, err := ingest.ReadFile(in.Filename, in.Data)
		if err != nil {
			a.logger.Warn("file rejected",
				slog.String("filename", in.Filename),
				slog.String("error", err.Error()),
			)
			a.count(func(m *observability.Metrics) { m.FilesIngested.WithLabelValues(ErrorKind(err)).Inc() })
			errs = append(errs, fileError(in.Filename, err))
			continue
		}
		a.count(func(m *observability.Metrics) { m.FilesIngested.WithLabelValues("ok").Inc() })
		tables = append(tables, loaded{input: in, table: t})
	}
	return tables, errs
}

// Ingest stores inputs as observed rows of a project. Unreadable files are
// reported per file; a file whose columns cannot be inferred aborts the
// upload before anything of it is written. Content uploaded before is
// skipped with a warning.
func (a *Analyzer) Ingest(ctx context.Context, projectID string, inputs []Input) (IngestReport, error) {
	var report IngestReport
	if len(inputs) == 0 {
		return report, nil
	}
	if a.guard == nil {
		return report, &storage.PersistenceError{Op: "write", ProjectID: projectID, Err: ErrNoRowStore}
	}

	tables, fileErrs := a.readInputs(inputs)
	report.FileErrors = fileErrs

	for _, l := range tables {
		schema.Normalize(l.table)
		cols, err := schema.Infer(l.table)
		if err != nil {
			report.FileErrors = append(report.FileErrors, fileError(l.input.Filename, err))
			return report, err
		}
		schema.Canonicalize(l.table, cols)
	}

	for _, l := range tables {
		n, err := a.writeObserved(ctx, projectID, l)
		switch {
		case errors.Is(err, guard.ErrAlreadyStored):
			report.Files++
			report.Warnings = append(report.Warnings, fmt.Sprintf("%s: already stored", l.input.Filename))
		case err != nil:
			return report, err
		default:
			report.Files++
			report.Rows += n
		}
	}
	return report, nil
}

func (a *Analyzer) writeObserved(ctx context.Context, projectID string, l loaded) (int, error) {
	ctx, cancel := a.storeContext(ctx)
	defer cancel()

	start := time.Now()
	n, err := a.guard.WriteObserved(ctx, projectID, l.table, idhash.ComputeContentDigest(l.input.Data))
	a.count(func(m *observability.Metrics) {
		dbErr := err
		if errors.Is(err, guard.ErrAlreadyStored) {
			dbErr = nil
		}
		m.RecordDBQuery("rows", "write_observed", time.Since(start).Seconds(), dbErr)
		m.ObservedRowsPersisted.Add(float64(n))
	})
	return n, err
}

// ObservedRows lists a project's observed rows uploaded within [start, end].
// Zero bounds are open.
func (a *Analyzer) ObservedRows(ctx context.Context, projectID string, start, end time.Time) ([]*domain.StoredRow, error) {
	if a.guard == nil {
		return nil, &storage.PersistenceError{Op: "read", ProjectID: projectID, Err: ErrNoRowStore}
	}
	ctx, cancel := a.storeContext(ctx)
	defer cancel()

	rows, _, err := a.guard.ObservedRows(ctx, projectID, start, end)
	return rows, err
}

// ProjectRecords coerces a project's observed history and flags outliers
// among the records, in the canonical currency where conversion succeeds.
func (a *Analyzer) ProjectRecords(ctx context.Context, projectID string) (records, outliers []domain.Observation, err error) {
	if a.guard == nil {
		return nil, nil, &storage.PersistenceError{Op: "read", ProjectID: projectID, Err: ErrNoRowStore}
	}
	tables, _, err := a.loadTraining(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}

	var sources [][]domain.Observation
	for _, t := range tables {
		obs, err := a.coerceTable(t)
		if err != nil {
			return nil, nil, err
		}
		sources = append(sources, obs)
	}
	records, _ = a.converter.Normalize(ctx, normalization.Merge(sources...))
	return records, metrics.Outliers(records, a.cfg.Forecast.OutlierThreshold), nil
}

// Runs lists a project's archived forecast runs, oldest first.
func (a *Analyzer) Runs(ctx context.Context, projectID string) ([]*domain.ForecastRun, error) {
	if a.runs == nil {
		return nil, ErrNoRunStore
	}
	ctx, cancel := a.storeContext(ctx)
	defer cancel()

	start := time.Now()
	runs, err := a.runs.GetByProject(ctx, projectID)
	a.count(func(m *observability.Metrics) {
		m.RecordDBQuery("runs", "get_by_project", time.Since(start).Seconds(), err)
	})
	if err != nil {
		return nil, &storage.PersistenceError{Op: "read", ProjectID: projectID, Err: err}
	}
	return runs, nil
}
