package storage

import (
	"context"
	"time"

	"sales-forecast-lab/internal/domain"
)

// SalesRowStore provides access to sales_rows storage: one JSON payload per
// ingested or forecast row, scoped by project.
type SalesRowStore interface {
	// InsertBulk adds multiple rows atomically. Fails entire batch on any duplicate row_id.
	InsertBulk(ctx context.Context, rows []*domain.StoredRow) error

	// GetByProject retrieves all rows of a project, ordered by uploaded_at ASC, row_id ASC.
	GetByProject(ctx context.Context, projectID string) ([]*domain.StoredRow, error)

	// GetByProjectRange retrieves rows of a project uploaded within [start, end] (inclusive).
	GetByProjectRange(ctx context.Context, projectID string, start, end time.Time) ([]*domain.StoredRow, error)
}

// ForecastRunStore provides access to the forecast_runs archive.
type ForecastRunStore interface {
	// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, run *domain.ForecastRun) error

	// GetByProject retrieves all runs of a project, ordered by generated_at ASC.
	GetByProject(ctx context.Context, projectID string) ([]*domain.ForecastRun, error)

	// GetLatest retrieves the most recent run of a project. Returns ErrNotFound if none.
	GetLatest(ctx context.Context, projectID string) (*domain.ForecastRun, error)
}
