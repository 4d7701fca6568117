package rates

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sig-0/fxconvert/provider/currencies"
	"github.com/sig-0/fxconvert/provider/static"
	"github.com/sig-0/fxconvert/storage/memory"
	"github.com/sig-0/fxconvert/storage/mock"
	"github.com/sig-0/fxconvert/storage/types"
)

// testSnapshot generates a USD-based snapshot taken at the given time
func testSnapshot(source types.Source, at time.Time) *types.ExchangeRateSnapshot {
	return &types.ExchangeRateSnapshot{
		Base:   currencies.USD,
		Source: source,
		Rates: map[types.Currency]float64{
			currencies.USD: 1,
			currencies.EUR: 0.9,
		},
		Timestamp: at.UnixMilli(),
	}
}

func returning(snapshot *types.ExchangeRateSnapshot, err error) fetchDelegate {
	return func(context.Context) (*types.ExchangeRateSnapshot, error) {
		return snapshot, err
	}
}

func newService(t *testing.T, s *mock.Storage, opts ...Option) *Service {
	t.Helper()

	svc, err := New(s, opts...)
	require.NoError(t, err)

	t.Cleanup(svc.Close)

	return svc
}

func TestService_New(t *testing.T) {
	t.Parallel()

	svc, err := New(nil)
	require.NoError(t, err)

	defer svc.Close()

	assert.Equal(t, DefaultMaxAge, svc.maxAge)
	assert.Equal(t, DefaultFetchTimeout, svc.fetchTimeout)
	assert.Nil(t, svc.fallback)
	assert.Empty(t, svc.sources)
}

func TestService_Latest(t *testing.T) {
	t.Parallel()

	t.Run("fresh stored snapshot", func(t *testing.T) {
		t.Parallel()

		var (
			stored = testSnapshot("stored", time.Now().Add(-time.Minute))
			source = &mockProvider{
				name:    "live",
				fetchFn: returning(testSnapshot("live", time.Now()), nil),
			}

			mockStorage = &mock.Storage{
				SnapshotAsOfFn: func(context.Context, *types.SnapshotQuery, time.Time) (*types.ExchangeRateSnapshot, error) {
					return stored, nil
				},
			}
		)

		svc := newService(t, mockStorage, WithSources(source))

		resp := svc.Latest(context.Background())

		require.True(t, resp.Success)
		assert.Equal(t, stored, resp.Data)
		assert.Empty(t, resp.Error)
		assert.Zero(t, source.calls.Load())
	})

	t.Run("stale stored snapshot queries sources", func(t *testing.T) {
		t.Parallel()

		var (
			live   = testSnapshot("live", time.Now())
			saved  *types.ExchangeRateSnapshot
			source = &mockProvider{
				name:    "live",
				fetchFn: returning(live, nil),
			}

			mockStorage = &mock.Storage{
				SnapshotAsOfFn: func(context.Context, *types.SnapshotQuery, time.Time) (*types.ExchangeRateSnapshot, error) {
					return testSnapshot("stored", time.Now().Add(-2*time.Hour)), nil
				},
				SaveSnapshotFn: func(_ context.Context, s *types.ExchangeRateSnapshot) error {
					saved = s

					return nil
				},
			}
		)

		svc := newService(t, mockStorage, WithSources(source))

		resp := svc.Latest(context.Background())

		require.True(t, resp.Success)
		assert.Equal(t, live, resp.Data)
		assert.Equal(t, live, saved)
		assert.EqualValues(t, 1, source.calls.Load())
	})

	t.Run("cancelled caller does not abort the shared resolution", func(t *testing.T) {
		t.Parallel()

		var (
			live   = testSnapshot("live", time.Now())
			source = &mockProvider{
				name: "live",
				fetchFn: func(ctx context.Context) (*types.ExchangeRateSnapshot, error) {
					if err := ctx.Err(); err != nil {
						return nil, err
					}

					return live, nil
				},
			}
		)

		svc := newService(t, &mock.Storage{}, WithSources(source))

		ctx, cancelFn := context.WithCancel(context.Background())
		cancelFn()

		resp := svc.Latest(ctx)

		require.True(t, resp.Success)
		assert.Equal(t, live, resp.Data)

		// The resolved snapshot is cached for the next caller
		require.True(t, svc.Latest(context.Background()).Success)
		assert.EqualValues(t, 1, source.calls.Load())
	})

	t.Run("live snapshot is cached", func(t *testing.T) {
		t.Parallel()

		source := &mockProvider{
			name:    "live",
			fetchFn: returning(testSnapshot("live", time.Now()), nil),
		}

		svc := newService(t, &mock.Storage{}, WithSources(source))

		for range 3 {
			require.True(t, svc.Latest(context.Background()).Success)
		}

		assert.EqualValues(t, 1, source.calls.Load())

		// Invalidate and make sure the source is queried again
		svc.Invalidate()

		require.True(t, svc.Latest(context.Background()).Success)
		assert.EqualValues(t, 2, source.calls.Load())
	})

	t.Run("sources are tried in order", func(t *testing.T) {
		t.Parallel()

		var (
			second = testSnapshot("second", time.Now())

			failing = &mockProvider{
				name:    "first",
				fetchFn: returning(nil, errors.New("unreachable")),
			}
			empty = &mockProvider{
				name:    "empty",
				fetchFn: returning(&types.ExchangeRateSnapshot{}, nil),
			}
			working = &mockProvider{
				name:    "second",
				fetchFn: returning(second, nil),
			}
		)

		svc := newService(t, &mock.Storage{}, WithSources(failing, empty, working))

		resp := svc.Latest(context.Background())

		require.True(t, resp.Success)
		assert.Equal(t, second, resp.Data)

		assert.EqualValues(t, 1, failing.calls.Load())
		assert.EqualValues(t, 1, empty.calls.Load())
		assert.EqualValues(t, 1, working.calls.Load())
	})

	t.Run("fallback is served and not cached", func(t *testing.T) {
		t.Parallel()

		var (
			saved  bool
			source = &mockProvider{
				name:    "live",
				fetchFn: returning(nil, errors.New("unreachable")),
			}

			mockStorage = &mock.Storage{
				SaveSnapshotFn: func(context.Context, *types.ExchangeRateSnapshot) error {
					saved = true

					return nil
				},
			}
		)

		svc := newService(
			t,
			mockStorage,
			WithSources(source),
			WithFallback(static.NewProvider()),
		)

		resp := svc.Latest(context.Background())

		require.True(t, resp.Success)
		require.NotNil(t, resp.Data)
		assert.Equal(t, static.Source, resp.Data.Source)
		assert.Equal(t, 149.50, resp.Data.Rates[currencies.JPY])
		assert.False(t, saved)

		// The live source is retried on the next read
		require.True(t, svc.Latest(context.Background()).Success)
		assert.EqualValues(t, 2, source.calls.Load())
	})

	t.Run("no source and no fallback", func(t *testing.T) {
		t.Parallel()

		source := &mockProvider{
			name:    "live",
			fetchFn: returning(nil, errors.New("unreachable")),
		}

		svc := newService(t, &mock.Storage{}, WithSources(source))

		resp := svc.Latest(context.Background())

		assert.False(t, resp.Success)
		assert.Nil(t, resp.Data)
		assert.Equal(t, "Failed to fetch exchange rates", resp.Error)
	})

	t.Run("storage error is treated as a miss", func(t *testing.T) {
		t.Parallel()

		var (
			live   = testSnapshot("live", time.Now())
			source = &mockProvider{
				name:    "live",
				fetchFn: returning(live, nil),
			}

			mockStorage = &mock.Storage{
				SnapshotAsOfFn: func(context.Context, *types.SnapshotQuery, time.Time) (*types.ExchangeRateSnapshot, error) {
					return nil, errors.New("connection refused")
				},
				SaveSnapshotFn: func(context.Context, *types.ExchangeRateSnapshot) error {
					return errors.New("connection refused")
				},
			}
		)

		svc := newService(t, mockStorage, WithSources(source))

		resp := svc.Latest(context.Background())

		require.True(t, resp.Success)
		assert.Equal(t, live, resp.Data)
	})

	t.Run("source timeout", func(t *testing.T) {
		t.Parallel()

		slow := &mockProvider{
			name: "slow",
			fetchFn: func(ctx context.Context) (*types.ExchangeRateSnapshot, error) {
				<-ctx.Done()

				return nil, ctx.Err()
			},
		}

		svc := newService(
			t,
			&mock.Storage{},
			WithSources(slow),
			WithFetchTimeout(20*time.Millisecond),
		)

		resp := svc.Latest(context.Background())

		assert.False(t, resp.Success)
	})
}

func TestService_MemoryStorage(t *testing.T) {
	t.Parallel()

	var (
		ctx    = context.Background()
		store  = memory.NewStorage()
		source = &mockProvider{
			name:    "live",
			fetchFn: returning(testSnapshot("live", time.Now()), nil),
		}
	)

	first, err := New(store, WithSources(source))
	require.NoError(t, err)

	defer first.Close()

	_, err = first.Fetch(ctx)
	require.NoError(t, err)

	// A second service sharing the storage reads the saved snapshot
	second, err := New(store, WithSources(source))
	require.NoError(t, err)

	defer second.Close()

	snapshot, err := second.Fetch(ctx)
	require.NoError(t, err)

	assert.Equal(t, types.Source("live"), snapshot.Source)
	assert.EqualValues(t, 1, source.calls.Load())
}
