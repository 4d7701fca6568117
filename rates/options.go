package rates

import (
	"log/slog"
	"time"

	"github.com/sig-0/fxconvert/ingest"
)

type Option func(s *Service)

// WithLogger specifies the logger for the service
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithSources specifies the live sources, tried in order on a cache miss
func WithSources(sources ...ingest.Provider) Option {
	return func(s *Service) {
		s.sources = append(s.sources, sources...)
	}
}

// WithFallback specifies the source used when every live source fails.
// Fallback snapshots are never cached or stored
func WithFallback(p ingest.Provider) Option {
	return func(s *Service) {
		s.fallback = p
	}
}

// WithMaxAge specifies how old a stored or cached snapshot can be before
// the live sources are queried again. Defaults to 1h
func WithMaxAge(d time.Duration) Option {
	return func(s *Service) {
		s.maxAge = d
	}
}

// WithFetchTimeout specifies the per-source fetch timeout. Defaults to 10s
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.fetchTimeout = d
	}
}
