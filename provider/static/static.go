// Package static provides the hardcoded fallback rate table, used when
// every live source is unavailable.
package static

import (
	"context"
	"maps"
	"time"

	"github.com/sig-0/fxconvert/provider/currencies"
	"github.com/sig-0/fxconvert/storage/types"
)

var Source types.Source = "static"

// fallbackRates are the approximate USD-based rates
var fallbackRates = map[types.Currency]float64{
	currencies.USD: 1.0,
	currencies.EUR: 0.85,
	currencies.GBP: 0.73,
	currencies.JPY: 149.50,
	currencies.AUD: 1.52,
	currencies.CAD: 1.35,
	currencies.CHF: 0.88,
	currencies.CNY: 7.24,
	currencies.INR: 83.12,
	currencies.MXN: 17.25,
}

// Provider serves the fallback table
type Provider struct{}

// NewProvider creates a new static fallback provider
func NewProvider() *Provider {
	return &Provider{}
}

func (p *Provider) Name() string {
	return Source.String()
}

func (p *Provider) Interval() time.Duration {
	return time.Hour * 24
}

// Fetch returns a fresh copy of the fallback table, stamped with the current time
func (p *Provider) Fetch(_ context.Context) (*types.ExchangeRateSnapshot, error) {
	return Snapshot(), nil
}

// Snapshot returns the fallback rates as a snapshot
func Snapshot() *types.ExchangeRateSnapshot {
	return &types.ExchangeRateSnapshot{
		Base:      currencies.USD,
		Rates:     maps.Clone(fallbackRates),
		Source:    Source,
		Timestamp: types.NowMillis(),
	}
}
