// Package favorites implements a bounded, deduplicated, insertion-ordered
// set of favorite currency codes with change notification.
//
// The store keeps its state in memory and mirrors it to the persistence
// layer. Any persistence failure (missing backend, read or write error,
// malformed payload) switches the store to memory-only mode for the rest
// of its lifetime. When the backend can observe external changes, Start
// reloads the set and renotifies subscribers on every foreign write. This
// is best-effort: there is no ordering guarantee against local writes.
package favorites

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"slices"
	"sync"

	"github.com/sig-0/fxconvert/kv"
	"github.com/sig-0/fxconvert/storage/types"
)

const (
	// Key is the persistence key for the favorites payload
	Key = "tcc.favorites"

	// MaxItems is the favorites capacity
	MaxItems = 20
)

var codeRegex = regexp.MustCompile(`^[A-Z]{3}$`)

// Subscriber receives the current favorites list on every change
type Subscriber func([]types.Currency)

type subscription struct {
	fn Subscriber
	id uint64
}

// Store is the favorites store
type Store struct {
	kv     kv.Store
	logger *slog.Logger

	codes   []types.Currency
	persist bool
	mu      sync.Mutex

	subs   []subscription
	nextID uint64
	subsMu sync.Mutex
}

// New creates a new favorites store, and loads the persisted favorites.
// A nil persistence layer yields a memory-only store
func New(ctx context.Context, store kv.Store, opts ...Option) *Store {
	s := &Store{
		kv:      store,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		codes:   make([]types.Currency, 0),
		persist: store != nil,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.mu.Lock()
	s.load(ctx)
	s.mu.Unlock()

	return s
}

// IsValid checks if the code is exactly three uppercase letters
func IsValid(code types.Currency) bool {
	return codeRegex.MatchString(code.String())
}

// List returns a copy of the current favorites, in insertion order
func (s *Store) List() []types.Currency {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.codes)
}

// Contains checks if the code is a favorite
func (s *Store) Contains(code types.Currency) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Contains(s.codes, code)
}

// Add adds the code to the favorites. Invalid or present codes are ignored.
// When over capacity, only the most recently added codes are kept
func (s *Store) Add(ctx context.Context, code types.Currency) {
	if !IsValid(code) {
		return
	}

	s.mu.Lock()

	if slices.Contains(s.codes, code) {
		s.mu.Unlock()

		return
	}

	s.codes = append(s.codes, code)
	if len(s.codes) > MaxItems {
		s.codes = slices.Clone(s.codes[len(s.codes)-MaxItems:])
	}

	s.save(ctx)
	snapshot := slices.Clone(s.codes)

	s.mu.Unlock()

	s.notify(snapshot)
}

// Remove removes the code from the favorites, if present
func (s *Store) Remove(ctx context.Context, code types.Currency) {
	s.mu.Lock()

	idx := slices.Index(s.codes, code)
	if idx == -1 {
		s.mu.Unlock()

		return
	}

	s.codes = slices.Delete(s.codes, idx, idx+1)

	s.save(ctx)
	snapshot := slices.Clone(s.codes)

	s.mu.Unlock()

	s.notify(snapshot)
}

// Subscribe registers the subscriber, and immediately invokes it with the
// current favorites. The returned function deregisters the subscriber
func (s *Store) Subscribe(fn Subscriber) func() {
	s.subsMu.Lock()

	s.nextID++
	id := s.nextID

	s.subs = append(s.subs, subscription{
		id: id,
		fn: fn,
	})

	s.subsMu.Unlock()

	s.invoke(fn, s.List())

	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()

		s.subs = slices.DeleteFunc(s.subs, func(sub subscription) bool {
			return sub.id == id
		})
	}
}

// Persistent returns true if the store is still mirrored to the
// persistence layer
func (s *Store) Persistent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.persist
}

// Start consumes external change events for the favorites key,
// reloading and renotifying on each one [BLOCKING].
// Returns immediately if the persistence layer cannot observe changes
func (s *Store) Start(ctx context.Context) error {
	watcher, ok := s.kv.(kv.Watcher)
	if !ok {
		return nil
	}

	events, err := watcher.Watch(ctx)
	if err != nil {
		return fmt.Errorf("unable to watch favorites: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, more := <-events:
			if !more {
				return nil
			}

			if ev.Key != Key {
				continue
			}

			s.handleExternalChange(ctx)
		}
	}
}

// handleExternalChange reloads the persisted favorites, and renotifies
func (s *Store) handleExternalChange(ctx context.Context) {
	s.mu.Lock()

	if !s.persist {
		// memory-only, the persisted value is no longer authoritative
		s.mu.Unlock()

		return
	}

	s.load(ctx)
	snapshot := slices.Clone(s.codes)

	s.mu.Unlock()

	s.logger.Debug(
		"favorites changed externally",
		"count", len(snapshot),
	)

	s.notify(snapshot)
}

// notify invokes every subscriber with the given snapshot
func (s *Store) notify(snapshot []types.Currency) {
	s.subsMu.Lock()
	subs := slices.Clone(s.subs)
	s.subsMu.Unlock()

	for _, sub := range subs {
		s.invoke(sub.fn, slices.Clone(snapshot))
	}
}

// invoke calls the subscriber, isolating any panic
func (s *Store) invoke(fn Subscriber, list []types.Currency) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(
				"favorites subscriber panicked",
				"panic", r,
			)
		}
	}()

	fn(list)
}

// load reads the persisted favorites. Must be called with the lock held
func (s *Store) load(ctx context.Context) {
	if !s.persist {
		return
	}

	raw, err := s.kv.Get(ctx, Key)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			s.codes = make([]types.Currency, 0)

			return
		}

		s.codes = make([]types.Currency, 0)
		s.degrade("unable to read favorites", err)

		return
	}

	if raw == "" {
		s.codes = make([]types.Currency, 0)

		return
	}

	var parsed any

	if err = json.Unmarshal([]byte(raw), &parsed); err != nil {
		s.codes = make([]types.Currency, 0)
		s.degrade("malformed favorites", err)

		return
	}

	items, ok := parsed.([]any)
	if !ok {
		s.codes = make([]types.Currency, 0)

		return
	}

	codes := make([]types.Currency, 0, len(items))

	for _, item := range items {
		str, ok := item.(string)
		if !ok {
			continue
		}

		code := types.Currency(str)
		if !IsValid(code) || slices.Contains(codes, code) {
			continue
		}

		codes = append(codes, code)
	}

	if len(codes) > MaxItems {
		codes = codes[:MaxItems]
	}

	s.codes = codes
}

// save persists the current favorites. Must be called with the lock held
func (s *Store) save(ctx context.Context) {
	if !s.persist {
		return
	}

	raw, err := json.Marshal(s.codes)
	if err != nil {
		s.degrade("unable to encode favorites", err)

		return
	}

	if err = s.kv.Set(ctx, Key, string(raw)); err != nil {
		s.degrade("unable to save favorites", err)
	}
}

// degrade switches the store to memory-only mode.
// Must be called with the lock held
func (s *Store) degrade(msg string, err error) {
	s.logger.Warn(
		msg+", falling back to memory-only favorites",
		"err", err,
	)

	s.persist = false
}
