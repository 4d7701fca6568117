// Package converter holds the interactive converter state: the selected
// amount and currency pair, the last result and the rates tracker.
package converter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/sig-0/fxconvert/convert"
	"github.com/sig-0/fxconvert/history"
	"github.com/sig-0/fxconvert/provider/currencies"
	"github.com/sig-0/fxconvert/storage/types"
)

const defaultAmount = "1"

var (
	ErrUnknownCurrency  = errors.New("unknown currency")
	ErrRatesUnavailable = errors.New("exchange rates unavailable")
	ErrRateUnavailable  = errors.New("rate unavailable for currency pair")
)

// Session is a single converter session
type Session struct {
	history *history.Store

	result          *float64
	validationError *convert.Validation

	amount string
	from   types.Currency
	to     types.Currency

	mu sync.Mutex
}

// NewSession creates a new converter session, recording conversions
// into the given history store
func NewSession(h *history.Store) *Session {
	return &Session{
		history: h,
		amount:  defaultAmount,
		from:    currencies.USD,
		to:      currencies.EUR,
	}
}

// Amount returns the raw amount input
func (s *Session) Amount() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.amount
}

// Pair returns the selected source and target currencies
func (s *Session) Pair() (types.Currency, types.Currency) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.from, s.to
}

// SetAmount sets the raw amount input. The input is validated on Perform
func (s *Session) SetAmount(raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.amount = raw
}

// SetFrom sets the source currency
func (s *Session) SetFrom(code types.Currency) error {
	if !currencies.IsSupported(code) {
		return fmt.Errorf("%w: %s", ErrUnknownCurrency, code)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.from = code

	return nil
}

// SetTo sets the target currency
func (s *Session) SetTo(code types.Currency) error {
	if !currencies.IsSupported(code) {
		return fmt.Errorf("%w: %s", ErrUnknownCurrency, code)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.to = code

	return nil
}

// Swap exchanges the source and target currencies
func (s *Session) Swap() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.from, s.to = s.to, s.from
}

// LoadFromHistory restores the amount and pair of a past conversion
func (s *Session) LoadFromHistory(record types.ConversionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.amount = strconv.FormatFloat(record.Amount, 'f', -1, 64)
	s.from = record.From
	s.to = record.To
}

// Result returns the last conversion result, if any
func (s *Session) Result() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.result == nil {
		return 0, false
	}

	return *s.result, true
}

// ValidationError returns the last amount validation failure, if any
func (s *Session) ValidationError() (convert.Validation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.validationError == nil {
		return convert.Validation{}, false
	}

	return *s.validationError, true
}

// Perform converts the current amount using the given snapshot, and
// records the conversion in the history
func (s *Session) Perform(
	ctx context.Context,
	snapshot *types.ExchangeRateSnapshot,
) (types.ConversionRecord, error) {
	s.mu.Lock()

	amount, validation := convert.ParseAmount(s.amount)
	if !validation.IsValid {
		s.validationError = &validation
		s.result = nil
		s.mu.Unlock()

		return types.ConversionRecord{}, validation.Err()
	}

	// A valid amount without rates keeps the previous state
	if snapshot == nil {
		s.mu.Unlock()

		return types.ConversionRecord{}, ErrRatesUnavailable
	}

	s.validationError = nil

	fromRate, fromOK := snapshot.Rate(s.from)
	toRate, toOK := snapshot.Rate(s.to)

	if !fromOK || !toOK || fromRate == 0 || toRate == 0 {
		err := fmt.Errorf("%w: %s/%s", ErrRateUnavailable, s.from, s.to)
		s.mu.Unlock()

		return types.ConversionRecord{}, err
	}

	result := convert.Convert(amount, fromRate, toRate)
	s.result = &result

	record := types.ConversionRecord{
		From:      s.from,
		To:        s.to,
		Amount:    amount,
		Result:    result,
		Rate:      convert.CrossRate(fromRate, toRate),
		Timestamp: types.NowMillis(),
	}

	s.mu.Unlock()

	s.history.Append(ctx, record)

	return record, nil
}

// History returns the recorded conversions, newest first
func (s *Session) History(ctx context.Context) []types.ConversionRecord {
	return s.history.List(ctx)
}

// ClearHistory removes all recorded conversions
func (s *Session) ClearHistory(ctx context.Context) {
	s.history.Clear(ctx)
}
