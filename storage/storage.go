package storage

import (
	"context"
	"time"

	"github.com/sig-0/fxconvert/storage/types"
)

// Storage is an abstraction over exchange rate snapshot data
type Storage interface {
	// SaveSnapshot saves the given exchange rate snapshot
	SaveSnapshot(context.Context, *types.ExchangeRateSnapshot) error

	// SnapshotAsOf fetches the newest snapshot matching the query,
	// taken at or before the given time. Returns nil if there is none
	SnapshotAsOf(context.Context, *types.SnapshotQuery, time.Time) (*types.ExchangeRateSnapshot, error)

	// ListSources lists all present snapshot sources
	ListSources(context.Context) ([]types.Source, error)
}
