package memory

import (
	"context"
	"sync"

	"github.com/sig-0/fxconvert/kv"
)

// space is the data shared between all handles
type space struct {
	data     map[string]string
	watchers map[*watcher]struct{}

	mu sync.RWMutex
}

type watcher struct {
	owner *Store
	ch    chan kv.Event
}

// Store is an in-process key-value store handle.
// Handles created with Fork share data, and observe each other's writes
type Store struct {
	space *space
}

// NewStore creates a new store, with its own data space
func NewStore() *Store {
	return &Store{
		space: &space{
			data:     make(map[string]string),
			watchers: make(map[*watcher]struct{}),
		},
	}
}

// Fork opens a new handle (execution context) over the same data
func (s *Store) Fork() *Store {
	return &Store{
		space: s.space,
	}
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.space.mu.RLock()
	defer s.space.mu.RUnlock()

	v, ok := s.space.data[key]
	if !ok {
		return "", kv.ErrNotFound
	}

	return v, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.space.mu.Lock()
	defer s.space.mu.Unlock()

	s.space.data[key] = value
	s.broadcast(key)

	return nil
}

func (s *Store) Remove(_ context.Context, key string) error {
	s.space.mu.Lock()
	defer s.space.mu.Unlock()

	if _, ok := s.space.data[key]; !ok {
		return nil
	}

	delete(s.space.data, key)
	s.broadcast(key)

	return nil
}

// Watch subscribes to changes made through other handles
func (s *Store) Watch(ctx context.Context) (<-chan kv.Event, error) {
	w := &watcher{
		owner: s,
		ch:    make(chan kv.Event, kv.WatchBufferSize),
	}

	s.space.mu.Lock()
	s.space.watchers[w] = struct{}{}
	s.space.mu.Unlock()

	go func() {
		<-ctx.Done()

		s.space.mu.Lock()
		delete(s.space.watchers, w)
		close(w.ch)
		s.space.mu.Unlock()
	}()

	return w.ch, nil
}

// broadcast notifies all foreign watchers of the key change.
// Must be called with the space lock held
func (s *Store) broadcast(key string) {
	for w := range s.space.watchers {
		if w.owner == s {
			continue
		}

		select {
		case w.ch <- kv.Event{Key: key}:
		default: // slow consumer, drop
		}
	}
}
