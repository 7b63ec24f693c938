package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"sales-forecast-lab/internal/domain"
	"sales-forecast-lab/internal/storage"
)

// SalesRowStore implements storage.SalesRowStore using PostgreSQL.
type SalesRowStore struct {
	pool *Pool
}

// NewSalesRowStore creates a new SalesRowStore.
func NewSalesRowStore(pool *Pool) *SalesRowStore {
	return &SalesRowStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SalesRowStore = (*SalesRowStore)(nil)

// InsertBulk adds multiple rows atomically. Fails entire batch on any duplicate.
func (s *SalesRowStore) InsertBulk(ctx context.Context, rows []*domain.StoredRow) error {
	if len(rows) == 0 {
		return nil
	}

	for _, r := range rows {
		if r == nil || r.RowID == "" || r.ProjectID == "" || !r.Origin.IsValid() {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO sales_rows (
			row_id, project_id, source, origin, payload, uploaded_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
	`

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(query,
			r.RowID, r.ProjectID, r.Source, string(r.Origin), r.Payload, r.UploadedAt.UTC(),
		)
	}

	results := tx.SendBatch(ctx, batch)
	for range rows {
		if _, err := results.Exec(); err != nil {
			results.Close()
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert sales row in bulk: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByProject retrieves all rows of a project, ordered by uploaded_at ASC, row_id ASC.
func (s *SalesRowStore) GetByProject(ctx context.Context, projectID string) ([]*domain.StoredRow, error) {
	query := `
		SELECT row_id, project_id, source, origin, payload, uploaded_at
		FROM sales_rows
		WHERE project_id = $1
		ORDER BY uploaded_at ASC, row_id ASC
	`

	rows, err := s.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("get sales rows by project: %w", err)
	}
	defer rows.Close()

	return scanSalesRows(rows)
}

// GetByProjectRange retrieves rows of a project uploaded within [start, end] (inclusive).
func (s *SalesRowStore) GetByProjectRange(ctx context.Context, projectID string, start, end time.Time) ([]*domain.StoredRow, error) {
	query := `
		SELECT row_id, project_id, source, origin, payload, uploaded_at
		FROM sales_rows
		WHERE project_id = $1 AND uploaded_at >= $2 AND uploaded_at <= $3
		ORDER BY uploaded_at ASC, row_id ASC
	`

	rows, err := s.pool.Query(ctx, query, projectID, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("get sales rows by range: %w", err)
	}
	defer rows.Close()

	return scanSalesRows(rows)
}

// scanSalesRows scans multiple rows into a slice of StoredRow.
func scanSalesRows(rows pgx.Rows) ([]*domain.StoredRow, error) {
	var result []*domain.StoredRow

	for rows.Next() {
		var (
			r      domain.StoredRow
			origin string
		)

		err := rows.Scan(&r.RowID, &r.ProjectID, &r.Source, &origin, &r.Payload, &r.UploadedAt)
		if err != nil {
			return nil, fmt.Errorf("scan sales row: %w", err)
		}

		r.Origin = domain.RecordOrigin(origin)
		r.UploadedAt = r.UploadedAt.UTC()
		result = append(result, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sales rows: %w", err)
	}

	return result, nil
}
