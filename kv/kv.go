// Package kv defines the key-value persistence contract used by the
// history and favorites stores.
//
// A Store handle is scoped to a single execution context. Backends that
// can observe writes made through other handles (another process, another
// connection) additionally implement Watcher. Change delivery is
// best-effort: events carry no ordering guarantee relative to concurrent
// local writes, and may be dropped for slow consumers.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the requested key is not present
var ErrNotFound = errors.New("key not found")

// Store is a string key-value store
type Store interface {
	// Get fetches the value for the key, or ErrNotFound
	Get(ctx context.Context, key string) (string, error)

	// Set replaces the value for the key
	Set(ctx context.Context, key, value string) error

	// Remove deletes the key. Removing an absent key is not an error
	Remove(ctx context.Context, key string) error
}

// Event notifies that a key was changed by another execution context
type Event struct {
	Key string
}

// Watcher is implemented by stores that can observe external changes.
// The returned channel is closed once the context is done, or the
// underlying watch fails
type Watcher interface {
	Watch(ctx context.Context) (<-chan Event, error)
}

// WatchBufferSize is the per-watcher event buffer used by the backends
const WatchBufferSize = 16
