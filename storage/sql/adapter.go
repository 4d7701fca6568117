package sql

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/sig-0/fxconvert/storage/types"
)

const (
	insertSnapshotQuery = `INSERT INTO rate_snapshots (base, source, as_of)
VALUES ($1, $2, $3)
RETURNING id`

	insertRateQuery = `INSERT INTO snapshot_rates (snapshot_id, target, rate)
VALUES ($1, $2, $3)`

	snapshotAsOfQuery = `SELECT id, base, source, as_of
FROM rate_snapshots
WHERE as_of <= $1
  AND ($2::text IS NULL OR base = $2)
  AND ($3::text IS NULL OR source = $3)
ORDER BY as_of DESC, fetched_at DESC, id DESC
LIMIT 1`

	snapshotRatesQuery = `SELECT target, rate FROM snapshot_rates WHERE snapshot_id = $1`

	listSourcesQuery = `SELECT DISTINCT source FROM rate_snapshots ORDER BY source`
)

// rateExponent is the stored rate precision (8dp)
const rateExponent = -8

// DBTX is the database handle the storage runs on (a pgx conn or pool)
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Begin(context.Context) (pgx.Tx, error)
}

type Storage struct {
	db DBTX
}

func NewStorage(db DBTX) *Storage {
	return &Storage{
		db: db,
	}
}

func (s *Storage) SaveSnapshot(
	ctx context.Context,
	snapshot *types.ExchangeRateSnapshot,
) error {
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		var id int64

		if err := tx.QueryRow(
			ctx,
			insertSnapshotQuery,
			snapshot.Base.String(),
			snapshot.Source.String(),
			timeToTimestampz(snapshot.Time()),
		).Scan(&id); err != nil {
			return err
		}

		batch := &pgx.Batch{}

		for target, rate := range snapshot.Rates {
			batch.Queue(insertRateQuery, id, target.String(), floatToNumeric(rate))
		}

		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("unable to save snapshot: %w", err)
	}

	return nil
}

func (s *Storage) SnapshotAsOf(
	ctx context.Context,
	query *types.SnapshotQuery,
	t time.Time,
) (*types.ExchangeRateSnapshot, error) {
	var base, source *string

	if query != nil && query.Base != nil {
		v := query.Base.String()
		base = &v
	}

	if query != nil && query.Source != nil {
		v := query.Source.String()
		source = &v
	}

	var (
		id        int64
		rowBase   string
		rowSource string
		rowAsOf   pgtype.Timestamptz
	)

	if err := s.db.QueryRow(
		ctx,
		snapshotAsOfQuery,
		timeToTimestampz(t),
		base,
		source,
	).Scan(&id, &rowBase, &rowSource, &rowAsOf); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil //nolint:nilnil // valid case
		}

		return nil, fmt.Errorf("unable to fetch snapshot: %w", err)
	}

	rows, err := s.db.Query(ctx, snapshotRatesQuery, id)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch snapshot rates: %w", err)
	}
	defer rows.Close()

	rates := make(map[types.Currency]float64)

	for rows.Next() {
		var (
			target string
			rate   pgtype.Numeric
		)

		if err = rows.Scan(&target, &rate); err != nil {
			return nil, fmt.Errorf("unable to scan snapshot rate: %w", err)
		}

		if !rate.Valid || rate.Int == nil {
			continue
		}

		rates[types.Currency(target)] = numericToFloat(rate)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("unable to read snapshot rates: %w", err)
	}

	return &types.ExchangeRateSnapshot{
		Base:      types.Currency(rowBase),
		Source:    types.Source(rowSource),
		Timestamp: timestampzToTime(rowAsOf).UnixMilli(),
		Rates:     rates,
	}, nil
}

func (s *Storage) ListSources(ctx context.Context) ([]types.Source, error) {
	rows, err := s.db.Query(ctx, listSourcesQuery)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch sources: %w", err)
	}

	results, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("unable to fetch sources: %w", err)
	}

	if len(results) == 0 {
		return nil, nil
	}

	out := make([]types.Source, 0, len(results))

	for _, src := range results {
		out = append(out, types.Source(src))
	}

	return out, nil
}

// floatToNumeric converts the float value to postgres numeric
func floatToNumeric(value float64) pgtype.Numeric {
	// round to 8dp and store as integer with exponent -8
	i := int64(math.Round(value * math.Pow10(-rateExponent)))

	return pgtype.Numeric{
		Int:   big.NewInt(i),
		Exp:   rateExponent,
		Valid: true,
	}
}

// numericToFloat converts the postgres value to float
func numericToFloat(value pgtype.Numeric) float64 {
	f, _ := new(big.Rat).SetInt(value.Int).Float64()

	if value.Exp > 0 {
		f *= math.Pow10(int(value.Exp))
	} else if value.Exp < 0 {
		f /= math.Pow10(int(-value.Exp))
	}

	return f
}

// timeToTimestampz converts the time value to postgres timestamp
func timeToTimestampz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{
		Time:  t.UTC(),
		Valid: true,
	}
}

// timestampzToTime converts the postgres timestamp value to time
func timestampzToTime(ts pgtype.Timestamptz) time.Time {
	if !ts.Valid {
		return time.Time{}
	}

	return ts.Time
}
