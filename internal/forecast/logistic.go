package forecast

import (
	"context"
	"fmt"
	"math"
	"time"
)

const (
	hoursPerDay  = 24
	pivotEpsilon = 1e-12
)

// LogisticModel is a capacity-bounded logistic growth curve with additive
// day-of-week seasonality. Values are mapped into logit space between
// floor and cap and fitted by ordinary least squares on
// intercept + trend + weekday indicators.
type LogisticModel struct{}

// NewLogisticModel creates the built-in model.
func NewLogisticModel() *LogisticModel {
	return &LogisticModel{}
}

type logisticPredictor struct {
	origin   time.Time
	span     float64
	bounds   Bounds
	smooth   float64
	coef     []float64
	weekdays []time.Weekday // weekday of each indicator column
}

// Fit implements Model.
func (m *LogisticModel) Fit(ctx context.Context, points []TrainingPoint, bounds Bounds) (Predictor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if bounds.Cap <= bounds.Floor {
		return nil, ErrInvalidBounds
	}
	if len(points) < 3 {
		return nil, ErrTooFewPoints
	}

	p := &logisticPredictor{origin: points[0].Date, bounds: bounds}
	for _, pt := range points {
		if pt.Date.Before(p.origin) {
			p.origin = pt.Date
		}
	}

	present := make(map[time.Weekday]bool)
	last := p.origin
	mean := 0.0
	for _, pt := range points {
		present[pt.Date.Weekday()] = true
		if pt.Date.After(last) {
			last = pt.Date
		}
		mean += pt.Value
	}
	mean /= float64(len(points))
	p.span = last.Sub(p.origin).Hours() / hoursPerDay
	if p.span <= 0 {
		return nil, fmt.Errorf("%w: all points share one date", ErrSingular)
	}
	// Smoothing keeps zero days from dominating the logit fit.
	p.smooth = math.Max(1, 0.1*math.Max(mean-bounds.Floor, 0))

	// The first present weekday is the baseline; others get an indicator.
	baselineSet := false
	for d := time.Sunday; d <= time.Saturday; d++ {
		if !present[d] {
			continue
		}
		if !baselineSet {
			baselineSet = true
			continue
		}
		p.weekdays = append(p.weekdays, d)
	}

	k := 2 + len(p.weekdays)
	if len(points) < k+1 {
		return nil, fmt.Errorf("%w: %d points for %d parameters", ErrTooFewPoints, len(points), k)
	}

	xtx := make([][]float64, k)
	for i := range xtx {
		xtx[i] = make([]float64, k)
	}
	xtz := make([]float64, k)
	row := make([]float64, k)

	for _, pt := range points {
		p.features(pt.Date, row)
		z := p.logit(pt.Value)
		for i := 0; i < k; i++ {
			xtz[i] += row[i] * z
			for j := 0; j < k; j++ {
				xtx[i][j] += row[i] * row[j]
			}
		}
	}

	coef, err := solve(xtx, xtz)
	if err != nil {
		return nil, err
	}
	for _, c := range coef {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, fmt.Errorf("%w: non-finite coefficient", ErrSingular)
		}
	}
	p.coef = coef
	return p, nil
}

// Predict implements Predictor.
func (p *logisticPredictor) Predict(dates []time.Time) []float64 {
	out := make([]float64, len(dates))
	row := make([]float64, len(p.coef))
	width := p.bounds.Cap - p.bounds.Floor + 2*p.smooth
	for i, d := range dates {
		p.features(d, row)
		z := 0.0
		for j, c := range p.coef {
			z += c * row[j]
		}
		out[i] = p.bounds.Floor + width/(1+math.Exp(-z)) - p.smooth
		out[i] = math.Min(math.Max(out[i], p.bounds.Floor), p.bounds.Cap)
	}
	return out
}

func (p *logisticPredictor) features(d time.Time, row []float64) {
	row[0] = 1
	row[1] = d.Sub(p.origin).Hours() / hoursPerDay / p.span
	wd := d.Weekday()
	for i, w := range p.weekdays {
		if wd == w {
			row[2+i] = 1
		} else {
			row[2+i] = 0
		}
	}
}

func (p *logisticPredictor) logit(y float64) float64 {
	y = math.Min(math.Max(y, p.bounds.Floor), p.bounds.Cap)
	width := p.bounds.Cap - p.bounds.Floor + 2*p.smooth
	q := (y - p.bounds.Floor + p.smooth) / width
	return math.Log(q / (1 - q))
}

// solve runs Gaussian elimination with partial pivoting on a copy of a.
func solve(a [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	m := make([][]float64, n)
	scale := 0.0
	for i := range a {
		m[i] = make([]float64, n+1)
		copy(m[i], a[i])
		m[i][n] = b[i]
		scale = math.Max(scale, math.Abs(a[i][i]))
	}

	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(m[r][col]) > math.Abs(m[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(m[pivot][col]) <= pivotEpsilon*math.Max(scale, 1) {
			return nil, ErrSingular
		}
		m[col], m[pivot] = m[pivot], m[col]

		for r := col + 1; r < n; r++ {
			f := m[r][col] / m[col][col]
			for c := col; c <= n; c++ {
				m[r][c] -= f * m[col][c]
			}
		}
	}

	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := m[i][n]
		for j := i + 1; j < n; j++ {
			sum -= m[i][j] * x[j]
		}
		x[i] = sum / m[i][i]
	}
	return x, nil
}

var _ Model = (*LogisticModel)(nil)
