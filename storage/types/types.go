package types

import (
	"slices"
	"time"
)

// Currency is a 3-letter uppercase currency code
type Currency string

func (c Currency) String() string {
	return string(c)
}

// CurrencyInfo is a single entry in the currency reference table
type CurrencyInfo struct {
	Code   Currency `json:"code"`
	Name   string   `json:"name"`
	Symbol string   `json:"symbol"`
}

type Source string

func (s Source) String() string {
	return string(s)
}

// ExchangeRateSnapshot is a single fetched set of exchange rates.
// Every rate is the amount of that currency per one unit of Base
type ExchangeRateSnapshot struct {
	Rates     map[Currency]float64 `json:"rates"`
	Base      Currency             `json:"base"`
	Source    Source               `json:"source,omitempty"`
	Timestamp int64                `json:"timestamp,omitempty"` // epoch millis
}

// Rate returns the rate for the given currency, if present
func (s *ExchangeRateSnapshot) Rate(c Currency) (float64, bool) {
	if s == nil || s.Rates == nil {
		return 0, false
	}

	r, ok := s.Rates[c]

	return r, ok
}

// Time returns the snapshot timestamp as a time value
func (s *ExchangeRateSnapshot) Time() time.Time {
	return time.UnixMilli(s.Timestamp).UTC()
}

// Currencies returns the sorted codes present in the snapshot
func (s *ExchangeRateSnapshot) Currencies() []Currency {
	out := make([]Currency, 0, len(s.Rates))

	for c := range s.Rates {
		out = append(out, c)
	}

	slices.Sort(out)

	return out
}

// ConversionRecord is a single completed conversion
type ConversionRecord struct {
	From      Currency `json:"from"`
	To        Currency `json:"to"`
	Amount    float64  `json:"amount"`
	Result    float64  `json:"result"`
	Rate      float64  `json:"rate"`      // rate(to) / rate(from)
	Timestamp int64    `json:"timestamp"` // epoch millis
}

// RatesResponse is the rate provider contract
type RatesResponse struct {
	Data    *ExchangeRateSnapshot `json:"data,omitempty"`
	Error   string                `json:"error,omitempty"`
	Success bool                  `json:"success"`
}

// SnapshotQuery filters stored snapshots
type SnapshotQuery struct {
	Base   *Currency `json:"base"`
	Source *Source   `json:"source"`
}

// NowMillis returns the current time in epoch millis
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
