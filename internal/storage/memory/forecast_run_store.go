package memory

import (
	"context"
	"sort"
	"sync"

	"sales-forecast-lab/internal/domain"
	"sales-forecast-lab/internal/storage"
)

// ForecastRunStore is an in-memory implementation of storage.ForecastRunStore.
type ForecastRunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ForecastRun // keyed by run_id
}

// NewForecastRunStore creates a new in-memory forecast run store.
func NewForecastRunStore() *ForecastRunStore {
	return &ForecastRunStore{
		data: make(map[string]*domain.ForecastRun),
	}
}

// Compile-time interface check.
var _ storage.ForecastRunStore = (*ForecastRunStore)(nil)

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *ForecastRunStore) Insert(_ context.Context, run *domain.ForecastRun) error {
	if run == nil || run.RunID == "" || run.ProjectID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[run.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[run.RunID] = cloneRun(run)
	return nil
}

// GetByProject retrieves all runs of a project, ordered by generated_at ASC.
func (s *ForecastRunStore) GetByProject(_ context.Context, projectID string) ([]*domain.ForecastRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ForecastRun
	for _, r := range s.data {
		if r.ProjectID == projectID {
			result = append(result, cloneRun(r))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].GeneratedAt.Equal(result[j].GeneratedAt) {
			return result[i].GeneratedAt.Before(result[j].GeneratedAt)
		}
		return result[i].RunID < result[j].RunID
	})

	return result, nil
}

// GetLatest retrieves the most recent run of a project. Returns ErrNotFound if none.
func (s *ForecastRunStore) GetLatest(ctx context.Context, projectID string) (*domain.ForecastRun, error) {
	runs, err := s.GetByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, storage.ErrNotFound
	}
	return runs[len(runs)-1], nil
}

func cloneRun(r *domain.ForecastRun) *domain.ForecastRun {
	c := *r
	c.Forecast = make([]domain.ForecastPoint, len(r.Forecast))
	copy(c.Forecast, r.Forecast)
	return &c
}
