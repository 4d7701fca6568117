package memory

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/sig-0/fxconvert/storage/types"
)

// maxSnapshots is the retention limit, oldest snapshots are dropped first
const maxSnapshots = 1000

type Storage struct {
	// snapshots ordered by timestamp, oldest first
	snapshots []types.ExchangeRateSnapshot

	mu sync.RWMutex
}

func NewStorage() *Storage {
	return &Storage{
		snapshots: make([]types.ExchangeRateSnapshot, 0),
	}
}

func (s *Storage) SaveSnapshot(_ context.Context, snapshot *types.ExchangeRateSnapshot) error {
	elem := copySnapshot(snapshot)

	s.mu.Lock()
	defer s.mu.Unlock()

	// keep the slice sorted, inserting after equal timestamps
	idx := sort.Search(len(s.snapshots), func(i int) bool {
		return s.snapshots[i].Timestamp > elem.Timestamp
	})

	s.snapshots = append(s.snapshots, types.ExchangeRateSnapshot{})
	copy(s.snapshots[idx+1:], s.snapshots[idx:])
	s.snapshots[idx] = elem

	if len(s.snapshots) > maxSnapshots {
		s.snapshots = s.snapshots[len(s.snapshots)-maxSnapshots:]
	}

	return nil
}

func (s *Storage) SnapshotAsOf(
	_ context.Context,
	query *types.SnapshotQuery,
	at time.Time,
) (*types.ExchangeRateSnapshot, error) {
	cutoff := at.UnixMilli()

	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.snapshots) - 1; i >= 0; i-- {
		v := s.snapshots[i]

		if v.Timestamp > cutoff {
			continue
		}

		if query != nil && query.Base != nil && v.Base != *query.Base {
			continue
		}

		if query != nil && query.Source != nil && v.Source != *query.Source {
			continue
		}

		out := copySnapshot(&v)

		return &out, nil
	}

	return nil, nil //nolint:nilnil // valid case
}

func (s *Storage) ListSources(_ context.Context) ([]types.Source, error) {
	s.mu.RLock()

	seen := make(map[types.Source]struct{})

	for _, v := range s.snapshots {
		seen[v.Source] = struct{}{}
	}

	s.mu.RUnlock()

	out := make([]types.Source, 0, len(seen))

	for v := range seen {
		out = append(out, v)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})

	return out, nil
}

// copySnapshot deep-copies the snapshot, detaching the rates map
func copySnapshot(snapshot *types.ExchangeRateSnapshot) types.ExchangeRateSnapshot {
	elem := *snapshot
	elem.Rates = maps.Clone(snapshot.Rates)

	return elem
}
