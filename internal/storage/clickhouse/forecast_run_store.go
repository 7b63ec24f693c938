package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"sales-forecast-lab/internal/domain"
	"sales-forecast-lab/internal/storage"
)

// ForecastRunStore implements storage.ForecastRunStore using ClickHouse.
// Each run is one row; the forecast is stored as two parallel arrays.
type ForecastRunStore struct {
	conn *Conn
}

// NewForecastRunStore creates a new ForecastRunStore.
func NewForecastRunStore(conn *Conn) *ForecastRunStore {
	return &ForecastRunStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ForecastRunStore = (*ForecastRunStore)(nil)

const forecastRunColumns = `
	run_id, project_id, generated_at, training_points, last_train_date,
	total_sales, mean_sales, max_sales, min_sales, record_count, outlier_count,
	forecast_dates, forecast_values
`

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *ForecastRunStore) Insert(ctx context.Context, run *domain.ForecastRun) error {
	if run == nil || run.RunID == "" || run.ProjectID == "" {
		return storage.ErrInvalidInput
	}

	// MergeTree does not enforce uniqueness, so check explicitly
	exists, err := s.exists(ctx, run.RunID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	dates := make([]time.Time, len(run.Forecast))
	values := make([]int64, len(run.Forecast))
	for i, p := range run.Forecast {
		dates[i] = p.Date
		values[i] = p.Predicted
	}

	query := `INSERT INTO forecast_runs (` + forecastRunColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	err = s.conn.Exec(ctx, query,
		run.RunID, run.ProjectID, run.GeneratedAt.UTC(), uint32(run.TrainingPoints), run.LastTrainDate,
		run.Summary.Total, run.Summary.Mean, run.Summary.Max, run.Summary.Min,
		uint32(run.Summary.RecordCount), uint32(run.Summary.OutlierCount),
		dates, values,
	)
	if err != nil {
		return fmt.Errorf("insert forecast run: %w", err)
	}
	return nil
}

// GetByProject retrieves all runs of a project, ordered by generated_at ASC.
func (s *ForecastRunStore) GetByProject(ctx context.Context, projectID string) ([]*domain.ForecastRun, error) {
	query := `SELECT ` + forecastRunColumns + `
		FROM forecast_runs
		WHERE project_id = ?
		ORDER BY generated_at ASC, run_id ASC
	`

	rows, err := s.conn.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("query forecast runs: %w", err)
	}
	defer rows.Close()

	return scanForecastRuns(rows)
}

// GetLatest retrieves the most recent run of a project. Returns ErrNotFound if none.
func (s *ForecastRunStore) GetLatest(ctx context.Context, projectID string) (*domain.ForecastRun, error) {
	query := `SELECT ` + forecastRunColumns + `
		FROM forecast_runs
		WHERE project_id = ?
		ORDER BY generated_at DESC, run_id DESC
		LIMIT 1
	`

	rows, err := s.conn.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("query latest forecast run: %w", err)
	}
	defer rows.Close()

	runs, err := scanForecastRuns(rows)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, storage.ErrNotFound
	}
	return runs[0], nil
}

// exists checks if a run with the given ID exists.
func (s *ForecastRunStore) exists(ctx context.Context, runID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count(*) FROM forecast_runs WHERE run_id = ?`, runID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanForecastRuns scans multiple rows into a slice.
func scanForecastRuns(rows chRows) ([]*domain.ForecastRun, error) {
	var runs []*domain.ForecastRun

	for rows.Next() {
		var (
			r                         domain.ForecastRun
			trainingPoints            uint32
			recordCount, outlierCount uint32
			total, mean, max, min     decimal.Decimal
			dates                     []time.Time
			values                    []int64
		)

		err := rows.Scan(
			&r.RunID, &r.ProjectID, &r.GeneratedAt, &trainingPoints, &r.LastTrainDate,
			&total, &mean, &max, &min, &recordCount, &outlierCount,
			&dates, &values,
		)
		if err != nil {
			return nil, fmt.Errorf("scan forecast run row: %w", err)
		}
		if len(dates) != len(values) {
			return nil, fmt.Errorf("forecast run %s: %d dates but %d values", r.RunID, len(dates), len(values))
		}

		r.GeneratedAt = r.GeneratedAt.UTC()
		r.LastTrainDate = domain.Day(r.LastTrainDate)
		r.TrainingPoints = int(trainingPoints)
		r.Summary = domain.Summary{
			Total:        total,
			Mean:         mean,
			Max:          max,
			Min:          min,
			RecordCount:  int(recordCount),
			OutlierCount: int(outlierCount),
		}
		r.Forecast = make([]domain.ForecastPoint, len(dates))
		for i := range dates {
			r.Forecast[i] = domain.ForecastPoint{Date: domain.Day(dates[i]), Predicted: values[i]}
		}

		runs = append(runs, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate forecast run rows: %w", err)
	}

	return runs, nil
}
