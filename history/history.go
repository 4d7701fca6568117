// Package history implements the bounded, newest-first conversion history.
//
// Persistence failures never reach the caller: reads degrade to an empty
// history, writes are skipped, and every anomaly is reported to the logger.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/sig-0/fxconvert/kv"
	"github.com/sig-0/fxconvert/storage/types"
)

const (
	// Key is the persistence key for the history payload
	Key = "currency_converter_history"

	// MaxEntries is the history capacity
	MaxEntries = 10
)

// payload is the persisted history format
type payload struct {
	Conversions []types.ConversionRecord `json:"conversions"`
}

// Store is the conversion history store
type Store struct {
	kv     kv.Store
	logger *slog.Logger

	mu sync.Mutex
}

// New creates a new history store over the given persistence layer
func New(store kv.Store, opts ...Option) *Store {
	s := &Store{
		kv:     store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Append prepends the record, and keeps only the newest MaxEntries records
func (s *Store) Append(ctx context.Context, record types.ConversionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.read(ctx)

	updated := make([]types.ConversionRecord, 0, len(current)+1)
	updated = append(updated, record)
	updated = append(updated, current...)

	if len(updated) > MaxEntries {
		updated = updated[:MaxEntries]
	}

	raw, err := json.Marshal(payload{Conversions: updated})
	if err != nil {
		s.logger.Error(
			"unable to encode conversion history",
			"err", err,
		)

		return
	}

	if err = s.kv.Set(ctx, Key, string(raw)); err != nil {
		s.logger.Error(
			"unable to save conversion history",
			"err", err,
		)
	}
}

// List returns the persisted history, newest first
func (s *Store) List(ctx context.Context) []types.ConversionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.read(ctx)
}

// Clear removes all persisted history
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Remove(ctx, Key); err != nil {
		s.logger.Error(
			"unable to clear conversion history",
			"err", err,
		)
	}
}

// read fetches the persisted history, treating any anomaly as empty
func (s *Store) read(ctx context.Context) []types.ConversionRecord {
	raw, err := s.kv.Get(ctx, Key)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.logger.Error(
				"unable to read conversion history",
				"err", err,
			)
		}

		return []types.ConversionRecord{}
	}

	if raw == "" {
		return []types.ConversionRecord{}
	}

	var p payload

	if err = json.Unmarshal([]byte(raw), &p); err != nil {
		s.logger.Error(
			"malformed conversion history",
			"err", err,
		)

		return []types.ConversionRecord{}
	}

	if p.Conversions == nil {
		return []types.ConversionRecord{}
	}

	return p.Conversions
}
