package ingest

import (
	"context"
	"time"

	"github.com/sig-0/fxconvert/storage/types"
)

// Provider is a single exchange rate source
type Provider interface {
	// Name returns the human-readable name of the provider
	Name() string

	// Interval returns the interval at which the provider should be called
	Interval() time.Duration

	// Fetch is the provider's main fetch job, yielding a rate snapshot
	Fetch(context.Context) (*types.ExchangeRateSnapshot, error)
}
