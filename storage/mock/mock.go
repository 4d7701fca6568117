package mock

import (
	"context"
	"time"

	"github.com/sig-0/fxconvert/storage/types"
)

type (
	SaveSnapshotDelegate func(context.Context, *types.ExchangeRateSnapshot) error
	SnapshotAsOfDelegate func(context.Context, *types.SnapshotQuery, time.Time) (*types.ExchangeRateSnapshot, error)
	ListSourcesDelegate  func(context.Context) ([]types.Source, error)
)

type Storage struct {
	SaveSnapshotFn SaveSnapshotDelegate
	SnapshotAsOfFn SnapshotAsOfDelegate
	ListSourcesFn  ListSourcesDelegate
}

func (m *Storage) SaveSnapshot(ctx context.Context, snapshot *types.ExchangeRateSnapshot) error {
	if m.SaveSnapshotFn != nil {
		return m.SaveSnapshotFn(ctx, snapshot)
	}

	return nil
}

func (m *Storage) SnapshotAsOf(
	ctx context.Context,
	query *types.SnapshotQuery,
	at time.Time,
) (*types.ExchangeRateSnapshot, error) {
	if m.SnapshotAsOfFn != nil {
		return m.SnapshotAsOfFn(ctx, query, at)
	}

	return nil, nil //nolint:nilnil // valid case
}

func (m *Storage) ListSources(ctx context.Context) ([]types.Source, error) {
	if m.ListSourcesFn != nil {
		return m.ListSourcesFn(ctx)
	}

	return nil, nil
}
