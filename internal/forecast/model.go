package forecast

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// TrainingPoint is one (date, value) pair fed to a model.
type TrainingPoint struct {
	Date  time.Time
	Value float64
}

// Bounds is the saturating range of a capacity-bounded model.
type Bounds struct {
	Floor float64
	Cap   float64
}

// Model fits a predictor to a daily series. Implementations are treated as a
// black box: the engine only relies on this contract.
type Model interface {
	Fit(ctx context.Context, points []TrainingPoint, bounds Bounds) (Predictor, error)
}

// Predictor predicts one value per requested date.
type Predictor interface {
	Predict(dates []time.Time) []float64
}

var (
	// ErrTooFewPoints is returned when the series cannot support a fit.
	ErrTooFewPoints = errors.New("too few training points")
	// ErrSingular is returned when the design matrix has no unique solution.
	ErrSingular = errors.New("singular design matrix")
	// ErrInvalidBounds is returned when cap does not exceed floor.
	ErrInvalidBounds = errors.New("cap must exceed floor")
)

// FitError reports a failed model fit. No fallback forecast is produced.
type FitError struct {
	Points int
	Err    error
}

func (e *FitError) Error() string {
	return fmt.Sprintf("forecast fit failed on %d points: %v", e.Points, e.Err)
}

func (e *FitError) Unwrap() error { return e.Err }

// Kind returns the stable error kind.
func (e *FitError) Kind() string { return "forecast_fit_error" }

func errPredictionLength(got, want int) error {
	return fmt.Errorf("predictor returned %d values for %d dates", got, want)
}
