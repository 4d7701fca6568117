package mock

import (
	"context"

	"github.com/sig-0/fxconvert/kv"
)

type (
	GetDelegate    func(context.Context, string) (string, error)
	SetDelegate    func(context.Context, string, string) error
	RemoveDelegate func(context.Context, string) error
	WatchDelegate  func(context.Context) (<-chan kv.Event, error)
)

type Store struct {
	GetFn    GetDelegate
	SetFn    SetDelegate
	RemoveFn RemoveDelegate
}

func (m *Store) Get(ctx context.Context, key string) (string, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, key)
	}

	return "", kv.ErrNotFound
}

func (m *Store) Set(ctx context.Context, key, value string) error {
	if m.SetFn != nil {
		return m.SetFn(ctx, key, value)
	}

	return nil
}

func (m *Store) Remove(ctx context.Context, key string) error {
	if m.RemoveFn != nil {
		return m.RemoveFn(ctx, key)
	}

	return nil
}

// WatchingStore is a mock store that also observes external changes
type WatchingStore struct {
	Store

	WatchFn WatchDelegate
}

func (m *WatchingStore) Watch(ctx context.Context) (<-chan kv.Event, error) {
	if m.WatchFn != nil {
		return m.WatchFn(ctx)
	}

	return nil, nil
}
