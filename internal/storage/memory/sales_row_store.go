package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"sales-forecast-lab/internal/domain"
	"sales-forecast-lab/internal/storage"
)

// SalesRowStore is an in-memory implementation of storage.SalesRowStore.
type SalesRowStore struct {
	mu   sync.RWMutex
	data map[string]*domain.StoredRow // keyed by row_id
}

// NewSalesRowStore creates a new in-memory sales row store.
func NewSalesRowStore() *SalesRowStore {
	return &SalesRowStore{
		data: make(map[string]*domain.StoredRow),
	}
}

// Compile-time interface check.
var _ storage.SalesRowStore = (*SalesRowStore)(nil)

// InsertBulk adds multiple rows atomically. Fails entire batch on any duplicate.
func (s *SalesRowStore) InsertBulk(_ context.Context, rows []*domain.StoredRow) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(rows))

	// First pass: validate and check for duplicates (existing + intra-batch)
	for _, r := range rows {
		if r == nil || r.RowID == "" || r.ProjectID == "" || !r.Origin.IsValid() {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[r.RowID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[r.RowID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[r.RowID] = struct{}{}
	}

	// Second pass: insert all
	for _, r := range rows {
		s.data[r.RowID] = cloneRow(r)
	}

	return nil
}

// GetByProject retrieves all rows of a project, ordered by uploaded_at ASC, row_id ASC.
func (s *SalesRowStore) GetByProject(_ context.Context, projectID string) ([]*domain.StoredRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.StoredRow
	for _, r := range s.data {
		if r.ProjectID == projectID {
			result = append(result, cloneRow(r))
		}
	}

	sortRows(result)
	return result, nil
}

// GetByProjectRange retrieves rows of a project uploaded within [start, end] (inclusive).
func (s *SalesRowStore) GetByProjectRange(_ context.Context, projectID string, start, end time.Time) ([]*domain.StoredRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.StoredRow
	for _, r := range s.data {
		if r.ProjectID != projectID {
			continue
		}
		if r.UploadedAt.Before(start) || r.UploadedAt.After(end) {
			continue
		}
		result = append(result, cloneRow(r))
	}

	sortRows(result)
	return result, nil
}

func sortRows(rows []*domain.StoredRow) {
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].UploadedAt.Equal(rows[j].UploadedAt) {
			return rows[i].UploadedAt.Before(rows[j].UploadedAt)
		}
		return rows[i].RowID < rows[j].RowID
	})
}

// cloneRow copies the row and its payload map so callers cannot mutate stored state.
func cloneRow(r *domain.StoredRow) *domain.StoredRow {
	c := *r
	if r.Payload != nil {
		c.Payload = make(map[string]any, len(r.Payload))
		for k, v := range r.Payload {
			c.Payload[k] = v
		}
	}
	return &c
}
