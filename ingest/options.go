package ingest

import (
	"log/slog"
	"time"

	"github.com/sig-0/fxconvert/storage/types"
)

type Option func(o *Orchestrator)

// WithLogger specifies the logger for the orchestrator
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithQueryInterval specifies query interval for the orchestrator's jobs.
// Defaults to 1s.
// Rate sources publish hourly at best, so this rarely needs tuning
func WithQueryInterval(q time.Duration) Option {
	return func(o *Orchestrator) {
		o.queryInterval = q
	}
}

// WithRetryDelay specifies how long to wait before retrying a failed fetch.
// Defaults to 10s
func WithRetryDelay(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.retryDelay = d
	}
}

// WithSaveHook specifies a callback invoked after every saved snapshot
func WithSaveHook(fn func(*types.ExchangeRateSnapshot)) Option {
	return func(o *Orchestrator) {
		o.onSave = fn
	}
}
