package guard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"sales-forecast-lab/internal/domain"
	"sales-forecast-lab/internal/idhash"
	"sales-forecast-lab/internal/ingest"
	"sales-forecast-lab/internal/storage"
)

// ErrAlreadyStored is returned by WriteObserved when identical content was
// uploaded to the project before. Nothing is written.
var ErrAlreadyStored = errors.New("upload already stored")

// ForecastSource is the source label of forecast rows.
const ForecastSource = "forecast"

// Bookkeeping keys removed from payloads before they reach schema inference.
var (
	bookkeepingKeys = map[string]bool{
		"filename":              true,
		"index":                 true,
		"_merge":                true,
		domain.PayloadOriginKey: true,
		"id":                    true,
		"project_id":            true,
		"uploaded_at":           true,
	}
	bookkeepingPattern = regexp.MustCompile(`^_\d+$|^Unnamed`)
)

// FilterStats counts what the read filter did.
type FilterStats struct {
	Total        int // rows read from the store
	Predicted    int // forecast rows excluded
	Observed     int // rows passed on
	StrippedKeys int // bookkeeping keys removed across all rows
}

// Guard is the only path between analysis and the row store. Everything it
// writes from a forecast is marked, and everything it reads back for training
// excludes marked rows.
type Guard struct {
	store  storage.SalesRowStore
	clock  func() time.Time
	logger *slog.Logger
}

// Option configures Guard.
type Option func(*Guard)

// WithClock sets the time source for uploaded_at.
func WithClock(clock func() time.Time) Option {
	return func(g *Guard) {
		g.clock = clock
	}
}

// WithLogger sets the guard logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Guard) {
		if l != nil {
			g.logger = l
		}
	}
}

// New creates a guard over store.
func New(store storage.SalesRowStore, opts ...Option) *Guard {
	g := &Guard{
		store:  store,
		clock:  time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// WriteForecast persists one predicted row per forecast point. Each payload
// carries the marker label and the origin key so that legacy readers
// filtering on either recognize it.
func (g *Guard) WriteForecast(ctx context.Context, projectID, runID string, points []domain.ForecastPoint) (int, error) {
	now := g.batchTime()
	rows := make([]*domain.StoredRow, len(points))
	for i, p := range points {
		rows[i] = &domain.StoredRow{
			RowID:     idhash.ComputeRowID(projectID, domain.OriginPredicted, runID, i),
			ProjectID: projectID,
			Source:    ForecastSource,
			Origin:    domain.OriginPredicted,
			Payload: map[string]any{
				"name":                  domain.ForecastMarkerLabel,
				"date":                  p.Date.Format(domain.DateLayout),
				"amount":                p.Predicted,
				domain.PayloadOriginKey: string(domain.OriginPredicted),
			},
			UploadedAt: rowTime(now, i),
		}
	}

	if err := g.store.InsertBulk(ctx, rows); err != nil {
		return 0, &storage.PersistenceError{Op: "write", ProjectID: projectID, Err: fmt.Errorf("insert forecast rows: %w", err)}
	}
	g.logger.Info("forecast rows persisted",
		slog.String("project_id", projectID),
		slog.String("run_id", runID),
		slog.Int("rows", len(rows)),
	)
	return len(rows), nil
}

// WriteObserved persists every row of an uploaded table as observed data.
// digest identifies the upload content; the same content written twice
// returns ErrAlreadyStored.
func (g *Guard) WriteObserved(ctx context.Context, projectID string, table *domain.RawTable, digest string) (int, error) {
	now := g.batchTime()
	batch := table.Source + "|" + digest
	rows := make([]*domain.StoredRow, 0, table.Len())
	for i, r := range table.Rows {
		payload := make(map[string]any, len(table.Columns))
		for c, label := range table.Columns {
			payload[label] = r[c].Interface()
		}
		rows = append(rows, &domain.StoredRow{
			RowID:      idhash.ComputeRowID(projectID, domain.OriginObserved, batch, i),
			ProjectID:  projectID,
			Source:     table.Source,
			Origin:     domain.OriginObserved,
			Payload:    payload,
			UploadedAt: rowTime(now, i),
		})
	}
	if len(rows) == 0 {
		return 0, nil
	}

	if err := g.store.InsertBulk(ctx, rows); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return 0, ErrAlreadyStored
		}
		return 0, &storage.PersistenceError{Op: "write", ProjectID: projectID, Err: fmt.Errorf("insert observed rows: %w", err)}
	}
	g.logger.Info("observed rows persisted",
		slog.String("project_id", projectID),
		slog.String("source", table.Source),
		slog.Int("rows", len(rows)),
	)
	return len(rows), nil
}

// LoadTraining reads a project's history for training. Predicted rows are
// excluded before anything else looks at them, bookkeeping keys are
// stripped, and the remaining rows are grouped by source in upload order.
func (g *Guard) LoadTraining(ctx context.Context, projectID string) ([]*domain.RawTable, FilterStats, error) {
	rows, err := g.store.GetByProject(ctx, projectID)
	if err != nil {
		return nil, FilterStats{}, &storage.PersistenceError{Op: "read", ProjectID: projectID, Err: err}
	}

	observed, stats := Filter(rows)

	var order []string
	grouped := make(map[string][]map[string]any)
	for _, r := range observed {
		source := r.Source
		if source == "" {
			source = "project:" + projectID
		}
		if _, ok := grouped[source]; !ok {
			order = append(order, source)
		}
		grouped[source] = append(grouped[source], r.Payload)
	}

	tables := make([]*domain.RawTable, 0, len(order))
	for _, source := range order {
		tables = append(tables, ingest.FromPayloads(source, grouped[source]))
	}

	g.logger.Debug("training rows loaded",
		slog.String("project_id", projectID),
		slog.Int("total", stats.Total),
		slog.Int("predicted_excluded", stats.Predicted),
		slog.Int("sources", len(tables)),
	)
	return tables, stats, nil
}

// ObservedRows returns a project's observed rows uploaded within [start, end],
// with bookkeeping keys stripped. Zero bounds are open.
func (g *Guard) ObservedRows(ctx context.Context, projectID string, start, end time.Time) ([]*domain.StoredRow, FilterStats, error) {
	var (
		rows []*domain.StoredRow
		err  error
	)
	if start.IsZero() && end.IsZero() {
		rows, err = g.store.GetByProject(ctx, projectID)
	} else {
		if end.IsZero() {
			end = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
		}
		rows, err = g.store.GetByProjectRange(ctx, projectID, start, end)
	}
	if err != nil {
		return nil, FilterStats{}, &storage.PersistenceError{Op: "read", ProjectID: projectID, Err: err}
	}

	observed, stats := Filter(rows)
	return observed, stats, nil
}

// Filter drops predicted rows and returns copies of the rest with
// bookkeeping keys stripped from their payloads.
func Filter(rows []*domain.StoredRow) ([]*domain.StoredRow, FilterStats) {
	stats := FilterStats{Total: len(rows)}
	out := make([]*domain.StoredRow, 0, len(rows))
	for _, r := range rows {
		if r.IsPredicted() {
			stats.Predicted++
			continue
		}
		clean := *r
		clean.Payload = make(map[string]any, len(r.Payload))
		for k, v := range r.Payload {
			if bookkeepingKeys[k] || bookkeepingPattern.MatchString(k) {
				stats.StrippedKeys++
				continue
			}
			clean.Payload[k] = v
		}
		out = append(out, &clean)
	}
	stats.Observed = len(out)
	return out, stats
}

// batchTime truncates to microseconds, the resolution of timestamptz.
func (g *Guard) batchTime() time.Time {
	return g.clock().UTC().Truncate(time.Microsecond)
}

// rowTime spaces rows of one batch so upload order survives the
// (uploaded_at, row_id) read order.
func rowTime(batch time.Time, i int) time.Time {
	return batch.Add(time.Duration(i) * time.Microsecond)
}
