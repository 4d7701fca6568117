package convert

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmount is the largest accepted amount
const MaxAmount = 1_000_000_000

// Reason describes why an amount is invalid
type Reason string

const (
	ReasonEmptyInput  Reason = "empty input"
	ReasonNotANumber  Reason = "not a number"
	ReasonNotPositive Reason = "must be greater than zero"
	ReasonTooLarge    Reason = "too large"
)

var (
	ErrEmptyInput  = errors.New(string(ReasonEmptyInput))
	ErrNotANumber  = errors.New(string(ReasonNotANumber))
	ErrNotPositive = errors.New(string(ReasonNotPositive))
	ErrTooLarge    = errors.New(string(ReasonTooLarge))
)

var maxAmount = decimal.NewFromInt(MaxAmount)

const (
	// maxIntegerDigits is the digit count of MaxAmount
	maxIntegerDigits = 10

	// minMagnitude is the decimal magnitude below which a value
	// underflows to zero as a float64 (smallest subnormal is ~4.9e-324)
	minMagnitude = -330
)

// Validation is the outcome of an amount validation
type Validation struct {
	Reason  Reason `json:"error,omitempty"`
	IsValid bool   `json:"is_valid"`
}

// Err returns the sentinel error matching the validation reason, if any
func (v Validation) Err() error {
	if v.IsValid {
		return nil
	}

	switch v.Reason {
	case ReasonEmptyInput:
		return ErrEmptyInput
	case ReasonNotANumber:
		return ErrNotANumber
	case ReasonNotPositive:
		return ErrNotPositive
	default:
		return ErrTooLarge
	}
}

// Validate classifies the raw amount input.
// Rules are applied in order, and the first match wins
func Validate(raw string) Validation {
	_, v := ParseAmount(raw)

	return v
}

// ParseAmount validates the raw amount input, and returns the parsed
// value when it is valid
func ParseAmount(raw string) (float64, Validation) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, invalid(ReasonEmptyInput)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, invalid(ReasonNotANumber)
	}

	if !d.IsPositive() {
		return 0, invalid(ReasonNotPositive)
	}

	// Comparisons and float conversion scale by 10^exponent, so the
	// magnitude is bounded first. The value lies in [10^(m-1), 10^m)
	magnitude := int64(d.Exponent()) + int64(d.NumDigits())

	if magnitude > maxIntegerDigits {
		return 0, invalid(ReasonTooLarge)
	}

	if magnitude < minMagnitude {
		return 0, invalid(ReasonNotPositive)
	}

	if d.GreaterThan(maxAmount) {
		return 0, invalid(ReasonTooLarge)
	}

	// The returned amount must itself be positive
	amount := d.InexactFloat64()
	if amount <= 0 {
		return 0, invalid(ReasonNotPositive)
	}

	return amount, Validation{IsValid: true}
}

func invalid(r Reason) Validation {
	return Validation{
		IsValid: false,
		Reason:  r,
	}
}
