package currency

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RateProvider returns conversion rates from base to every quoted currency:
// one unit of base equals rates[code] units of code.
type RateProvider interface {
	Rates(ctx context.Context, base string) (map[string]decimal.Decimal, error)
}

// RateProviderError reports that no usable rate could be obtained.
// Conversion is skipped for the run; the error is surfaced as a warning.
type RateProviderError struct {
	Base   string
	Target string
	Err    error
}

func (e *RateProviderError) Error() string {
	return fmt.Sprintf("exchange rate %s->%s unavailable, currency conversion skipped: %v", e.Base, e.Target, e.Err)
}

func (e *RateProviderError) Unwrap() error { return e.Err }

// Kind returns the stable error kind.
func (e *RateProviderError) Kind() string { return "rate_provider_error" }

// StaticProvider serves one fixed rate into the canonical currency for every
// base. Used in test mode and offline runs.
type StaticProvider struct {
	target string
	rate   decimal.Decimal
}

// NewStaticProvider creates a provider quoting rate units of target per base unit.
func NewStaticProvider(target string, rate decimal.Decimal) *StaticProvider {
	return &StaticProvider{target: strings.ToUpper(target), rate: rate}
}

// Rates implements RateProvider.
func (p *StaticProvider) Rates(_ context.Context, base string) (map[string]decimal.Decimal, error) {
	return map[string]decimal.Decimal{
		strings.ToUpper(base): decimal.NewFromInt(1),
		p.target:              p.rate,
	}, nil
}

var _ RateProvider = (*StaticProvider)(nil)
