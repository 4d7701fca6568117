// Package convert implements cross-rate currency conversion and
// validation of raw amount input.
package convert

// Convert converts the amount from one rate basis to another, routing
// through the snapshot's base currency.
// Both rates must come from the same snapshot; no bounds checking is done
func Convert(amount, fromRate, toRate float64) float64 {
	return (amount / fromRate) * toRate
}

// CrossRate returns the direct rate between two currencies of the same snapshot
func CrossRate(fromRate, toRate float64) float64 {
	return toRate / fromRate
}
