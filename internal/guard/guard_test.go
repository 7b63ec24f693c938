package guard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-forecast-lab/internal/domain"
	"sales-forecast-lab/internal/storage"
	"sales-forecast-lab/internal/storage/memory"
)

var fixedNow = time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)

func newGuard(store storage.SalesRowStore) *Guard {
	return New(store, WithClock(func() time.Time { return fixedNow }))
}

func uploadTable() *domain.RawTable {
	t := domain.NewRawTable("jan.csv", []string{"date", "amount", "Unnamed: 2"})
	t.AppendRow([]domain.Value{domain.String("2024-01-01"), domain.Number(100), domain.Null()})
	t.AppendRow([]domain.Value{domain.String("2024-01-02"), domain.Number(200), domain.Null()})
	return t
}

func TestGuard_ForecastRowsNeverReadBack(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSalesRowStore()
	g := newGuard(store)

	_, err := g.WriteObserved(ctx, "p1", uploadTable(), "d1")
	require.NoError(t, err)

	forecast := []domain.ForecastPoint{
		{Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Predicted: 150},
		{Date: time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), Predicted: 160},
	}
	n, err := g.WriteForecast(ctx, "p1", "run-1", forecast)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	tables, stats, err := g.LoadTraining(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.Predicted)
	assert.Equal(t, 2, stats.Observed)

	require.Len(t, tables, 1)
	assert.Equal(t, "jan.csv", tables[0].Source)
	assert.Equal(t, []string{"date", "amount"}, tables[0].Columns, "Unnamed columns stripped")
	require.Equal(t, 2, tables[0].Len())
	assert.Equal(t, domain.Number(100), tables[0].Rows[0][1], "upload order preserved")
}

func TestGuard_ForecastPayloadCarriesMarkers(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSalesRowStore()
	g := newGuard(store)

	_, err := g.WriteForecast(ctx, "p1", "run-1", []domain.ForecastPoint{{Date: fixedNow, Predicted: 7}})
	require.NoError(t, err)

	rows, err := store.GetByProject(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, domain.OriginPredicted, rows[0].Origin)
	assert.Equal(t, domain.ForecastMarkerLabel, rows[0].Payload["name"])
	assert.Equal(t, "forecast", rows[0].Payload["_origin"])
	assert.Equal(t, "2024-02-01", rows[0].Payload["date"])
}

func TestFilter_LegacyMarkerAndBookkeeping(t *testing.T) {
	rows := []*domain.StoredRow{
		{RowID: "a", Origin: domain.OriginObserved, Payload: map[string]any{"name": domain.ForecastMarkerLabel, "date": "2024-01-01", "amount": 5.0}},
		{RowID: "b", Origin: domain.OriginObserved, Payload: map[string]any{"_origin": "forecast"}},
		{RowID: "c", Origin: domain.OriginObserved, Payload: map[string]any{
			"date": "2024-01-01", "amount": 5.0, "filename": "x.csv", "_1": 1.0, "_merge": "both", "id": 3.0, "Unnamed: 0": 0.0,
		}},
	}

	out, stats := Filter(rows)

	require.Len(t, out, 1)
	assert.Equal(t, "c", out[0].RowID)
	assert.Equal(t, map[string]any{"date": "2024-01-01", "amount": 5.0}, out[0].Payload)
	assert.Equal(t, 2, stats.Predicted)
	assert.Equal(t, 5, stats.StrippedKeys)
	assert.Len(t, rows[2].Payload, 7, "input rows untouched")
}

func TestGuard_DuplicateUploadIsReported(t *testing.T) {
	ctx := context.Background()
	g := newGuard(memory.NewSalesRowStore())

	_, err := g.WriteObserved(ctx, "p1", uploadTable(), "same")
	require.NoError(t, err)
	_, err = g.WriteObserved(ctx, "p1", uploadTable(), "same")
	assert.ErrorIs(t, err, ErrAlreadyStored)
}

type brokenStore struct{ storage.SalesRowStore }

func (brokenStore) GetByProject(context.Context, string) ([]*domain.StoredRow, error) {
	return nil, errors.New("connection reset")
}

func (brokenStore) InsertBulk(context.Context, []*domain.StoredRow) error {
	return errors.New("connection reset")
}

func TestGuard_StoreFailuresArePersistenceErrors(t *testing.T) {
	ctx := context.Background()
	g := newGuard(brokenStore{})

	_, _, err := g.LoadTraining(ctx, "p1")
	var pErr *storage.PersistenceError
	require.True(t, errors.As(err, &pErr))
	assert.Equal(t, "read", pErr.Op)

	_, err = g.WriteForecast(ctx, "p1", "r", []domain.ForecastPoint{{Date: fixedNow}})
	require.True(t, errors.As(err, &pErr))
	assert.Equal(t, "write", pErr.Op)
	assert.Equal(t, "persistence_error", pErr.Kind())
}

func TestGuard_ObservedRowsRange(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSalesRowStore()
	g := newGuard(store)

	_, err := g.WriteObserved(ctx, "p1", uploadTable(), "d1")
	require.NoError(t, err)
	_, err = g.WriteForecast(ctx, "p1", "run-1", []domain.ForecastPoint{{Date: fixedNow, Predicted: 1}})
	require.NoError(t, err)

	rows, stats, err := g.ObservedRows(ctx, "p1", fixedNow.Add(-time.Hour), time.Time{})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, 1, stats.Predicted)

	rows, _, err = g.ObservedRows(ctx, "p1", fixedNow.Add(time.Hour), fixedNow.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, rows)
}
