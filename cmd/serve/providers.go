package serve

import (
	"log/slog"
	"time"

	"github.com/sig-0/fxconvert/ingest"
	"github.com/sig-0/fxconvert/provider/ecb"
	"github.com/sig-0/fxconvert/provider/frankfurter"
	"github.com/sig-0/fxconvert/provider/static"
	"github.com/sig-0/fxconvert/rates"
	"github.com/sig-0/fxconvert/server/config"
	"github.com/sig-0/fxconvert/storage"
)

// newSources returns the configured live rate sources, in priority order
func newSources(cfg *config.Rates) []ingest.Provider {
	if cfg == nil {
		cfg = config.DefaultRatesConfig()
	}

	timeout := time.Duration(cfg.FetchTimeout) * time.Second

	sources := make([]ingest.Provider, 0, 2)

	// USD-based rates, ECB reference data
	if cfg.FrankfurterURL != "" {
		sources = append(sources, frankfurter.NewProvider(cfg.FrankfurterURL, timeout))
	}

	// EUR-based rates, straight from the ECB feed
	if cfg.ECBURL != "" {
		sources = append(sources, ecb.NewProvider(cfg.ECBURL, timeout))
	}

	return sources
}

// newRateService creates the rate service, with the static table as
// the last resort
func newRateService(
	store storage.Storage,
	cfg *config.Rates,
	sources []ingest.Provider,
	logger *slog.Logger,
) (*rates.Service, error) {
	if cfg == nil {
		cfg = config.DefaultRatesConfig()
	}

	return rates.New(
		store,
		rates.WithLogger(logger),
		rates.WithSources(sources...),
		rates.WithFallback(static.NewProvider()),
		rates.WithFetchTimeout(time.Duration(cfg.FetchTimeout)*time.Second),
		rates.WithMaxAge(time.Duration(cfg.MaxAge)*time.Second),
	)
}
