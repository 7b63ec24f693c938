package pipeline

import (
	"github.com/shopspring/decimal"

	"sales-forecast-lab/internal/config"
	"sales-forecast-lab/internal/currency"
)

// ProviderFromConfig builds the rate provider a run uses. Test mode yields a
// fixed rate; without an API key there is no provider and only per-row
// rates can convert.
func ProviderFromConfig(cfg config.RatesConfig) currency.RateProvider {
	switch {
	case cfg.TestMode:
		return currency.NewStaticProvider(cfg.Canonical, decimal.NewFromFloat(cfg.TestRate))
	case cfg.APIKey != "":
		return currency.NewHTTPProvider(cfg.Endpoint, cfg.APIKey,
			currency.WithTimeout(cfg.Timeout),
			currency.WithMaxRetries(cfg.MaxRetries),
			currency.WithRateLimit(cfg.RPS, 1),
		)
	default:
		return nil
	}
}
