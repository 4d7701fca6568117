package rates

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sig-0/fxconvert/storage/types"
)

type fetchDelegate func(context.Context) (*types.ExchangeRateSnapshot, error)

type mockProvider struct {
	fetchFn fetchDelegate
	name    string
	calls   atomic.Int64
}

func (m *mockProvider) Name() string {
	return m.name
}

func (m *mockProvider) Interval() time.Duration {
	return time.Hour
}

func (m *mockProvider) Fetch(ctx context.Context) (*types.ExchangeRateSnapshot, error) {
	m.calls.Add(1)

	if m.fetchFn != nil {
		return m.fetchFn(ctx)
	}

	return nil, nil
}
