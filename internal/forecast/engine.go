package forecast

import (
	"context"
	"log/slog"
	"math"
	"time"

	"sales-forecast-lab/internal/domain"
)

// Default engine settings.
const (
	DefaultHorizon   = 7
	DefaultMinPoints = 10
	DefaultCeiling   = 1e9
)

// Engine turns a daily series into a fixed-horizon forecast.
type Engine struct {
	model     Model
	horizon   int
	minPoints int
	ceiling   float64
	logger    *slog.Logger
}

// EngineOption configures Engine.
type EngineOption func(*Engine)

// WithHorizon sets the number of forecast days.
func WithHorizon(days int) EngineOption {
	return func(e *Engine) {
		if days > 0 {
			e.horizon = days
		}
	}
}

// WithMinPoints sets the minimum number of distinct training dates.
func WithMinPoints(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.minPoints = n
		}
	}
}

// WithCeiling sets the capacity the model saturates at.
func WithCeiling(c float64) EngineOption {
	return func(e *Engine) {
		if c > 0 {
			e.ceiling = c
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an engine around model. A nil model uses LogisticModel.
func NewEngine(model Model, opts ...EngineOption) *Engine {
	if model == nil {
		model = NewLogisticModel()
	}
	e := &Engine{
		model:     model,
		horizon:   DefaultHorizon,
		minPoints: DefaultMinPoints,
		ceiling:   DefaultCeiling,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Horizon returns the configured number of forecast days.
func (e *Engine) Horizon() int { return e.horizon }

// Forecast fits the model on series and predicts the horizon days that
// follow the last date. Targets are clipped into [0, ceiling]; predictions
// that are NaN, infinite or negative become 0 and all are rounded.
// Any fit failure is a *FitError.
func (e *Engine) Forecast(ctx context.Context, series domain.Series) ([]domain.ForecastPoint, error) {
	if len(series) < e.minPoints {
		return nil, &FitError{Points: len(series), Err: ErrTooFewPoints}
	}

	points := make([]TrainingPoint, len(series))
	for i, sp := range series {
		v := sp.Amount.InexactFloat64()
		points[i] = TrainingPoint{Date: sp.Date, Value: math.Min(math.Max(v, 0), e.ceiling)}
	}

	start := time.Now()
	predictor, err := e.model.Fit(ctx, points, Bounds{Floor: 0, Cap: e.ceiling})
	if err != nil {
		return nil, &FitError{Points: len(points), Err: err}
	}

	last := series.Last().Date
	dates := make([]time.Time, e.horizon)
	for i := range dates {
		dates[i] = last.AddDate(0, 0, i+1)
	}

	raw := predictor.Predict(dates)
	if len(raw) != len(dates) {
		return nil, &FitError{Points: len(points), Err: errPredictionLength(len(raw), len(dates))}
	}

	out := make([]domain.ForecastPoint, len(dates))
	for i, d := range dates {
		out[i] = domain.ForecastPoint{Date: d, Predicted: sanitize(raw[i])}
	}

	e.logger.Debug("forecast fitted",
		slog.Int("points", len(points)),
		slog.String("last_date", last.Format(domain.DateLayout)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

func sanitize(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(math.Round(v))
}
