package convert

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	testTable := []struct {
		name   string
		raw    string
		reason Reason
		valid  bool
	}{
		{"empty", "", ReasonEmptyInput, false},
		{"whitespace", "   \t", ReasonEmptyInput, false},
		{"letters", "abc", ReasonNotANumber, false},
		{"trailing garbage", "12abc", ReasonNotANumber, false},
		{"nan", "NaN", ReasonNotANumber, false},
		{"zero", "0", ReasonNotPositive, false},
		{"negative", "-5", ReasonNotPositive, false},
		{"over max", "1000000001", ReasonTooLarge, false},
		{"huge exponent", "1e12", ReasonTooLarge, false},
		{"max", "1000000000", "", true},
		{"integer", "42", "", true},
		{"padded", "  42.5  ", "", true},
		{"fraction", "0.01", "", true},
		{"exponent", "1e3", "", true},
	}

	for _, testCase := range testTable {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			v := Validate(testCase.raw)

			assert.Equal(t, testCase.valid, v.IsValid)
			assert.Equal(t, testCase.reason, v.Reason)

			if testCase.valid {
				assert.NoError(t, v.Err())
			} else {
				assert.Error(t, v.Err())
			}
		})
	}
}

func TestValidation_Err(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, Validate("").Err(), ErrEmptyInput)
	assert.ErrorIs(t, Validate("x").Err(), ErrNotANumber)
	assert.ErrorIs(t, Validate("-1").Err(), ErrNotPositive)
	assert.ErrorIs(t, Validate("2000000000").Err(), ErrTooLarge)
}

func TestParseAmount(t *testing.T) {
	t.Parallel()

	t.Run("valid amount", func(t *testing.T) {
		t.Parallel()

		amount, v := ParseAmount(" 100.25 ")

		require.True(t, v.IsValid)
		assert.InDelta(t, 100.25, amount, 1e-9)
	})

	t.Run("invalid amount", func(t *testing.T) {
		t.Parallel()

		amount, v := ParseAmount("nope")

		require.False(t, v.IsValid)
		assert.Zero(t, amount)
	})
}

func TestValidate_ExtremeInputs(t *testing.T) {
	t.Parallel()

	testTable := []struct {
		name   string
		raw    string
		reason Reason
		valid  bool
	}{
		{"two billion exponent", "1e2000000000", ReasonTooLarge, false},
		{"large exponent", "1e9999999", ReasonTooLarge, false},
		{"eleven integer digits", "1e10", ReasonTooLarge, false},
		{"negative huge exponent", "-1e2000000000", ReasonNotPositive, false},
		{"float underflow", "1e-400", ReasonNotPositive, false},
		{"tiny exponent", "1e-2000000000", ReasonNotPositive, false},
		{"long digit string", strings.Repeat("9", 100_000), ReasonTooLarge, false},
		{"long fraction", "0." + strings.Repeat("0", 5000) + "1", ReasonNotPositive, false},
		{"invalid utf8", "\xff\xfe", ReasonNotANumber, false},
		{"subnormal but positive", "1e-320", "", true},
		{"just under the cap", "999999999.99", "", true},
	}

	for _, testCase := range testTable {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			done := make(chan struct{})

			var (
				amount float64
				v      Validation
			)

			go func() {
				defer close(done)

				amount, v = ParseAmount(testCase.raw)
			}()

			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("validation did not finish in time")
			}

			assert.Equal(t, testCase.valid, v.IsValid)
			assert.Equal(t, testCase.reason, v.Reason)

			if testCase.valid {
				assert.Greater(t, amount, 0.0)
				assert.LessOrEqual(t, amount, float64(MaxAmount))

				return
			}

			assert.Zero(t, amount)
			assert.Error(t, v.Err())
		})
	}
}

func FuzzValidate(f *testing.F) {
	seeds := []string{
		"", " ", "42", "0.01", "1e3", "1e9", "1e10", "-1", "0",
		"1e-400", "1e2000000000", "1e-2000000000", "abc", "\xff",
	}

	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, raw string) {
		amount, v := ParseAmount(raw)

		if v.IsValid {
			require.Empty(t, v.Reason)
			require.NoError(t, v.Err())
			require.Greater(t, amount, 0.0)
			require.LessOrEqual(t, amount, float64(MaxAmount))

			return
		}

		require.Contains(t, []Reason{
			ReasonEmptyInput,
			ReasonNotANumber,
			ReasonNotPositive,
			ReasonTooLarge,
		}, v.Reason)
		require.Error(t, v.Err())
		require.Zero(t, amount)
	})
}
