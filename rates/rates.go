// Package rates serves the latest exchange rate snapshot, reading through
// a short-lived cache, the snapshot storage and the live sources, in that
// order, and falling back to a static table when all of them fail.
package rates

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dgraph-io/ristretto"
	"golang.org/x/sync/singleflight"

	"github.com/sig-0/fxconvert/ingest"
	"github.com/sig-0/fxconvert/storage"
	"github.com/sig-0/fxconvert/storage/types"
)

const (
	DefaultMaxAge       = time.Hour
	DefaultFetchTimeout = time.Second * 10

	latestKey = "latest"
)

// ErrUnavailable is returned when no snapshot could be produced
var ErrUnavailable = errors.New("Failed to fetch exchange rates") //nolint:stylecheck // user-facing message

// Service resolves the latest rate snapshot
type Service struct {
	storage  storage.Storage // optional
	cache    *ristretto.Cache
	logger   *slog.Logger
	fallback ingest.Provider
	group    singleflight.Group

	sources []ingest.Provider

	maxAge       time.Duration
	fetchTimeout time.Duration
}

// New creates a new rate service. The storage can be nil
func New(s storage.Storage, opts ...Option) (*Service, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        100,
		MaxCost:            10,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create snapshot cache: %w", err)
	}

	svc := &Service{
		storage:      s,
		cache:        cache,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxAge:       DefaultMaxAge,
		fetchTimeout: DefaultFetchTimeout,
	}

	// Apply the options
	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

// Latest returns the latest snapshot wrapped in the rates response contract
func (s *Service) Latest(ctx context.Context) *types.RatesResponse {
	snapshot, err := s.Fetch(ctx)
	if err != nil {
		s.logger.Error(
			"unable to resolve exchange rates",
			"err", err,
		)

		return &types.RatesResponse{
			Success: false,
			Error:   ErrUnavailable.Error(),
		}
	}

	return &types.RatesResponse{
		Success: true,
		Data:    snapshot,
	}
}

// Fetch returns the latest snapshot. The returned snapshot is shared
// and must be treated as read-only
func (s *Service) Fetch(ctx context.Context) (*types.ExchangeRateSnapshot, error) {
	if v, ok := s.cache.Get(latestKey); ok {
		if snapshot, ok := v.(*types.ExchangeRateSnapshot); ok {
			return snapshot, nil
		}
	}

	// Concurrent misses share a single resolution, which must not be
	// aborted by whichever caller happened to start it. Source fetches
	// are still bounded by the fetch timeout
	v, err, _ := s.group.Do(latestKey, func() (any, error) {
		return s.resolve(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}

	return v.(*types.ExchangeRateSnapshot), nil
}

// Invalidate drops the cached snapshot, so the next read goes to storage
func (s *Service) Invalidate() {
	s.cache.Del(latestKey)
}

// Close releases the cache resources
func (s *Service) Close() {
	s.cache.Close()
}

func (s *Service) resolve(ctx context.Context) (*types.ExchangeRateSnapshot, error) {
	now := time.Now()

	// Check the stored snapshots
	if snapshot := s.stored(ctx, now); snapshot != nil {
		s.remember(snapshot, s.maxAge-now.Sub(snapshot.Time()))

		return snapshot, nil
	}

	// Query the live sources, in order
	for _, source := range s.sources {
		snapshot, err := s.fetchFrom(ctx, source)
		if err != nil {
			s.logger.Warn(
				"unable to fetch rates from source",
				"source", source.Name(),
				"err", err,
			)

			continue
		}

		if s.storage != nil {
			if err = s.storage.SaveSnapshot(ctx, snapshot); err != nil {
				s.logger.Error(
					"unable to save snapshot",
					"source", source.Name(),
					"err", err,
				)
			}
		}

		s.remember(snapshot, s.maxAge)

		return snapshot, nil
	}

	if s.fallback == nil {
		return nil, ErrUnavailable
	}

	snapshot, err := s.fetchFrom(ctx, s.fallback)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch fallback rates: %w", err)
	}

	s.logger.Warn(
		"serving fallback exchange rates",
		"source", s.fallback.Name(),
	)

	return snapshot, nil
}

// stored returns the newest stored snapshot, if it is fresh enough
func (s *Service) stored(ctx context.Context, now time.Time) *types.ExchangeRateSnapshot {
	if s.storage == nil {
		return nil
	}

	snapshot, err := s.storage.SnapshotAsOf(ctx, &types.SnapshotQuery{}, now)
	if err != nil {
		s.logger.Error(
			"unable to fetch stored snapshot",
			"err", err,
		)

		return nil
	}

	if snapshot == nil || len(snapshot.Rates) == 0 {
		return nil
	}

	if now.Sub(snapshot.Time()) > s.maxAge {
		return nil
	}

	return snapshot
}

func (s *Service) fetchFrom(ctx context.Context, p ingest.Provider) (*types.ExchangeRateSnapshot, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	snapshot, err := p.Fetch(fetchCtx)
	if err != nil {
		return nil, err
	}

	if snapshot == nil || len(snapshot.Rates) == 0 {
		return nil, errors.New("empty snapshot")
	}

	return snapshot, nil
}

func (s *Service) remember(snapshot *types.ExchangeRateSnapshot, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	s.cache.SetWithTTL(latestKey, snapshot, 1, ttl)
	s.cache.Wait()
}
