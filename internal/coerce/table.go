package coerce

import (
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"sales-forecast-lab/internal/domain"
	"sales-forecast-lab/internal/schema"
)

// Drop reasons counted in Stats.
const (
	ReasonBadDate   = "bad_date"
	ReasonBadAmount = "bad_amount"
)

// Stats counts coerced and dropped rows of one table.
type Stats struct {
	Source  string
	Rows    int
	Kept    int
	Dropped map[string]int
}

// DroppedTotal sums dropped rows across reasons.
func (s Stats) DroppedTotal() int {
	n := 0
	for _, c := range s.Dropped {
		n += c
	}
	return n
}

// Table coerces every row of a normalized table into observations.
// Rows with a missing date or invalid amount are dropped and counted, never
// zero-filled. A nil logger disables per-row debug logging.
func Table(table *domain.RawTable, cols schema.Columns, logger *slog.Logger) ([]domain.Observation, Stats) {
	stats := Stats{Source: table.Source, Rows: table.Len(), Dropped: make(map[string]int)}
	dates := Dates(table.Column(cols.Date))

	obs := make([]domain.Observation, 0, table.Len())
	for r, row := range table.Rows {
		if dates[r] == nil {
			stats.Dropped[ReasonBadDate]++
			debugDrop(logger, table.Source, r, ReasonBadDate, row[cols.Date])
			continue
		}
		amount, ok := Amount(row[cols.Amount])
		if !ok {
			stats.Dropped[ReasonBadAmount]++
			debugDrop(logger, table.Source, r, ReasonBadAmount, row[cols.Amount])
			continue
		}

		o := domain.Observation{
			Date:   *dates[r],
			Amount: amount,
			Source: table.Source,
			Row:    r,
		}
		if cols.HasCurrency() {
			o.Currency = strings.ToUpper(strings.TrimSpace(row[cols.Currency].Text()))
		}
		if cols.HasRate() {
			if rate, ok := Amount(row[cols.Rate]); ok && rate.GreaterThan(decimal.Zero) {
				o.Rate = &rate
			}
		}
		obs = append(obs, o)
	}

	stats.Kept = len(obs)
	return obs, stats
}

func debugDrop(logger *slog.Logger, source string, row int, reason string, v domain.Value) {
	if logger == nil {
		return
	}
	logger.Debug("row dropped",
		slog.String("source", source),
		slog.Int("row", row),
		slog.String("reason", reason),
		slog.String("value", v.Text()),
	)
}
