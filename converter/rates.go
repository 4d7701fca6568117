package converter

import (
	"context"
	"sync"

	"github.com/sig-0/fxconvert/storage/types"
)

// Fetcher yields the latest rate snapshot
type Fetcher interface {
	Fetch(context.Context) (*types.ExchangeRateSnapshot, error)
}

// RatesState is a point-in-time view of the rates tracker
type RatesState struct {
	Snapshot *types.ExchangeRateSnapshot
	Err      error
	Loading  bool
}

// Rates tracks the most recently fetched snapshot
type Rates struct {
	fetcher Fetcher
	state   RatesState
	mu      sync.Mutex
}

// NewRates creates a new rates tracker on top of the given fetcher
func NewRates(f Fetcher) *Rates {
	return &Rates{
		fetcher: f,
	}
}

// Refresh fetches a new snapshot. A failed refresh keeps the previous
// snapshot and records the error.
// Concurrent refreshes are not coordinated, the last one to complete wins
func (r *Rates) Refresh(ctx context.Context) error {
	r.mu.Lock()
	r.state.Loading = true
	r.state.Err = nil
	r.mu.Unlock()

	snapshot, err := r.fetcher.Fetch(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.Loading = false

	if err != nil {
		r.state.Err = err

		return err
	}

	r.state.Snapshot = snapshot

	return nil
}

// State returns the current tracker state
func (r *Rates) State() RatesState {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.state
}

// Snapshot returns the current snapshot, if any
func (r *Rates) Snapshot() *types.ExchangeRateSnapshot {
	return r.State().Snapshot
}
