package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"sales-forecast-lab/internal/domain"
	"sales-forecast-lab/internal/storage"
)

func TestForecastRunStore_InsertAndLatest(t *testing.T) {
	store := NewForecastRunStore()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	runs := []*domain.ForecastRun{
		{RunID: "run-2", ProjectID: "p1", GeneratedAt: base.Add(time.Hour)},
		{RunID: "run-1", ProjectID: "p1", GeneratedAt: base},
		{RunID: "run-3", ProjectID: "p2", GeneratedAt: base.Add(2 * time.Hour)},
	}
	for _, r := range runs {
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("Insert %s failed: %v", r.RunID, err)
		}
	}

	all, err := store.GetByProject(ctx, "p1")
	if err != nil {
		t.Fatalf("GetByProject failed: %v", err)
	}
	if len(all) != 2 || all[0].RunID != "run-1" || all[1].RunID != "run-2" {
		t.Errorf("expected [run-1 run-2], got %+v", all)
	}

	latest, err := store.GetLatest(ctx, "p1")
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if latest.RunID != "run-2" {
		t.Errorf("expected latest run-2, got %s", latest.RunID)
	}
}

func TestForecastRunStore_Errors(t *testing.T) {
	store := NewForecastRunStore()
	ctx := context.Background()

	if _, err := store.GetLatest(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	run := &domain.ForecastRun{RunID: "r", ProjectID: "p"}
	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, run); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
	if err := store.Insert(ctx, &domain.ForecastRun{RunID: "x"}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
