package sql

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
)

func TestNumericConversion(t *testing.T) {
	t.Parallel()

	for _, value := range []float64{1, 0.85, 149.5, 83.12, 0.00012345} {
		assert.InDelta(t, value, numericToFloat(floatToNumeric(value)), 1e-9)
	}
}

func TestNumericConversion_Rounding(t *testing.T) {
	t.Parallel()

	n := floatToNumeric(0.123456789)

	assert.Equal(t, int32(rateExponent), n.Exp)
	assert.Equal(t, int64(12345679), n.Int.Int64())
}

func TestTimestampConversion(t *testing.T) {
	t.Parallel()

	t.Run("valid timestamp", func(t *testing.T) {
		t.Parallel()

		at := time.Date(2026, time.October, 16, 14, 0, 0, 0, time.FixedZone("CET", 3600))

		assert.True(t, at.Equal(timestampzToTime(timeToTimestampz(at))))
	})

	t.Run("invalid timestamp", func(t *testing.T) {
		t.Parallel()

		assert.True(t, timestampzToTime(pgtype.Timestamptz{}).IsZero())
	})
}
