package currency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"sales-forecast-lab/internal/domain"
)

// DefaultCanonical is the currency all amounts are reported in.
const DefaultCanonical = "KRW"

// Converter normalizes observation amounts into the canonical currency.
type Converter struct {
	canonical string
	foreign   map[string]bool
	provider  RateProvider
	timeout   time.Duration
	logger    *slog.Logger
}

// NewConverter creates a converter. Codes are upper-cased; a nil provider
// means only per-row rates can be applied.
func NewConverter(canonical string, foreign []string, provider RateProvider, timeout time.Duration, logger *slog.Logger) *Converter {
	canonical = strings.ToUpper(strings.TrimSpace(canonical))
	if canonical == "" {
		canonical = DefaultCanonical
	}
	if logger == nil {
		logger = slog.Default()
	}
	set := make(map[string]bool, len(foreign))
	for _, f := range foreign {
		if code := strings.ToUpper(strings.TrimSpace(f)); code != "" && code != canonical {
			set[code] = true
		}
	}
	return &Converter{
		canonical: canonical,
		foreign:   set,
		provider:  provider,
		timeout:   timeout,
		logger:    logger,
	}
}

// Report describes what one Normalize call did.
type Report struct {
	Converted int                // rows multiplied by a rate
	Skipped   bool               // conversion skipped for the whole run
	Err       *RateProviderError // set when Skipped
}

// Normalize converts every row tagged with a recognized foreign code. A per-row
// rate wins over the run's global rate, which is fetched at most once per code.
// When a needed global rate is unavailable, no row is converted and the
// returned report carries the provider error. Input is not modified.
func (c *Converter) Normalize(ctx context.Context, obs []domain.Observation) ([]domain.Observation, Report) {
	out := make([]domain.Observation, len(obs))
	copy(out, obs)

	needGlobal := make(map[string]bool)
	for _, o := range out {
		if c.foreign[o.Currency] && o.Rate == nil {
			needGlobal[o.Currency] = true
		}
	}

	global := make(map[string]decimal.Decimal, len(needGlobal))
	for code := range needGlobal {
		r, err := c.globalRate(ctx, code)
		if err != nil {
			var rpErr *RateProviderError
			if !errors.As(err, &rpErr) {
				rpErr = &RateProviderError{Base: code, Target: c.canonical, Err: err}
			}
			c.logger.Warn("currency conversion skipped",
				slog.String("base", code),
				slog.String("target", c.canonical),
				slog.String("error", rpErr.Err.Error()),
			)
			return obs, Report{Skipped: true, Err: rpErr}
		}
		global[code] = r
	}

	var report Report
	for i := range out {
		code := out[i].Currency
		if !c.foreign[code] {
			continue
		}
		r := global[code]
		if out[i].Rate != nil {
			r = *out[i].Rate
		}
		out[i].Amount = out[i].Amount.Mul(r)
		out[i].Currency = c.canonical
		report.Converted++
	}
	return out, report
}

func (c *Converter) globalRate(ctx context.Context, code string) (decimal.Decimal, error) {
	if c.provider == nil {
		return decimal.Zero, &RateProviderError{Base: code, Target: c.canonical, Err: errors.New("no rate provider configured")}
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	rates, err := c.provider.Rates(ctx, code)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch %s rates: %w", code, err)
	}
	r, ok := rates[c.canonical]
	if !ok || !r.IsPositive() {
		return decimal.Zero, &RateProviderError{Base: code, Target: c.canonical, Err: fmt.Errorf("no %s quote", c.canonical)}
	}
	return r, nil
}
