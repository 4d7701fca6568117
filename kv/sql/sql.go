package sql

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/xid"

	"github.com/sig-0/fxconvert/kv"
)

// Channel is the notification channel for key changes
const Channel = "kv_changes"

const (
	getQuery = `SELECT value FROM kv_entries WHERE key = $1`

	setQuery = `INSERT INTO kv_entries (key, value, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

	removeQuery = `DELETE FROM kv_entries WHERE key = $1`

	notifyQuery = `SELECT pg_notify($1, $2)`
)

// Store is a PostgreSQL backed key-value store, using the kv_entries table.
// Every handle has its own origin ID, which tags the change notifications
// it emits, so it can ignore its own writes when watching
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger

	origin xid.ID
}

// New creates a new SQL store handle over the given pool
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{
		pool:   pool,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		origin: xid.New(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string

	if err := s.pool.QueryRow(ctx, getQuery, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", kv.ErrNotFound
		}

		return "", fmt.Errorf("unable to fetch key %q: %w", key, err)
	}

	return value, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, setQuery, key, value); err != nil {
			return err
		}

		// delivered on commit
		_, err := tx.Exec(ctx, notifyQuery, Channel, encodePayload(s.origin, key))

		return err
	})
	if err != nil {
		return fmt.Errorf("unable to save key %q: %w", key, err)
	}

	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, removeQuery, key)
		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return nil // nothing changed
		}

		_, err = tx.Exec(ctx, notifyQuery, Channel, encodePayload(s.origin, key))

		return err
	})
	if err != nil {
		return fmt.Errorf("unable to remove key %q: %w", key, err)
	}

	return nil
}

// Watch listens for key changes made through other handles.
// A dedicated pool connection is held for the lifetime of the watch
func (s *Store) Watch(ctx context.Context) (<-chan kv.Event, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to acquire listen connection: %w", err)
	}

	if _, err = conn.Exec(ctx, "LISTEN "+Channel); err != nil {
		conn.Release()

		return nil, fmt.Errorf("unable to listen on %s: %w", Channel, err)
	}

	out := make(chan kv.Event, kv.WatchBufferSize)

	go func() {
		defer close(out)
		defer func() {
			// the connection goes back to the pool, so stop listening first
			_, _ = conn.Exec(context.Background(), "UNLISTEN *")
			conn.Release()
		}()

		for {
			n, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					s.logger.Error(
						"unable to wait for key notifications",
						"err", err,
					)
				}

				return
			}

			origin, key, ok := decodePayload(n.Payload)
			if !ok {
				s.logger.Warn(
					"malformed key notification",
					"payload", n.Payload,
				)

				continue
			}

			if origin == s.origin {
				continue // own write
			}

			select {
			case out <- kv.Event{Key: key}:
			default: // slow consumer, drop
			}
		}
	}()

	return out, nil
}

// encodePayload encodes the notification payload as <origin>:<key>
func encodePayload(origin xid.ID, key string) string {
	return origin.String() + ":" + key
}

// decodePayload decodes the <origin>:<key> notification payload
func decodePayload(payload string) (xid.ID, string, bool) {
	rawOrigin, key, found := strings.Cut(payload, ":")
	if !found || key == "" {
		return xid.NilID(), "", false
	}

	origin, err := xid.FromString(rawOrigin)
	if err != nil {
		return xid.NilID(), "", false
	}

	return origin, key, true
}
