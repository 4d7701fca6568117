package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/sig-0/fxconvert/kv"
)

const (
	fileExt    = ".json"
	tempPrefix = ".tmp-"
)

// Store is a directory-backed key-value store, one file per key.
// Writes are atomic (temp file + rename), so concurrent readers in other
// processes never observe partial values
type Store struct {
	logger *slog.Logger

	dir string

	// last value written per key by this handle, used to tell
	// our own writes apart from foreign ones. nil marks a removal
	written map[string]*string
	mu      sync.Mutex
}

// New creates a new file store rooted at the given directory,
// creating it if needed
func New(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("unable to create store directory: %w", err)
	}

	s := &Store{
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		dir:     dir,
		written: make(map[string]*string),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	content, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", kv.ErrNotFound
		}

		return "", fmt.Errorf("unable to read key %q: %w", key, err)
	}

	return string(content), nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("unable to create temp file: %w", err)
	}

	tmpName := tmp.Name()

	if _, err = tmp.WriteString(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)

		return fmt.Errorf("unable to write key %q: %w", key, err)
	}

	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("unable to close temp file: %w", err)
	}

	if err = os.Rename(tmpName, s.path(key)); err != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("unable to commit key %q: %w", key, err)
	}

	s.written[key] = &value

	return nil
}

func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("unable to remove key %q: %w", key, err)
	}

	s.written[key] = nil

	return nil
}

// Watch observes key changes made by other processes (or handles) on
// the same directory
func (s *Store) Watch(ctx context.Context) (<-chan kv.Event, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("unable to create watcher: %w", err)
	}

	if err = w.Add(s.dir); err != nil {
		_ = w.Close()

		return nil, fmt.Errorf("unable to watch %s: %w", s.dir, err)
	}

	out := make(chan kv.Event, kv.WatchBufferSize)

	go func() {
		defer close(out)
		defer w.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-w.Errors:
				if !ok {
					return
				}

				s.logger.Warn(
					"file watcher error",
					"dir", s.dir,
					"err", err,
				)
			case ev, ok := <-w.Events:
				if !ok {
					return
				}

				key, match := s.keyFor(ev)
				if !match || s.isOwnWrite(key) {
					continue
				}

				select {
				case out <- kv.Event{Key: key}:
				default: // slow consumer, drop
				}
			}
		}
	}()

	return out, nil
}

// keyFor extracts the store key from the file event, if it concerns one
func (s *Store) keyFor(ev fsnotify.Event) (string, bool) {
	if !ev.Has(fsnotify.Create) &&
		!ev.Has(fsnotify.Write) &&
		!ev.Has(fsnotify.Remove) &&
		!ev.Has(fsnotify.Rename) {
		return "", false
	}

	name := filepath.Base(ev.Name)
	if strings.HasPrefix(name, tempPrefix) || !strings.HasSuffix(name, fileExt) {
		return "", false
	}

	key, err := url.PathUnescape(strings.TrimSuffix(name, fileExt))
	if err != nil {
		return "", false
	}

	return key, true
}

// isOwnWrite checks if the current on-disk state matches
// the last write made through this handle
func (s *Store) isOwnWrite(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	last, ok := s.written[key]
	if !ok {
		return false
	}

	content, err := os.ReadFile(s.path(key))

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return last == nil
	case err != nil:
		return false
	default:
		return last != nil && *last == string(content)
	}
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+fileExt)
}
