package currencies

import (
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/sig-0/fxconvert/storage/types"
)

// FormatAmount renders the amount with a fixed number of decimals
func FormatAmount(amount float64, decimals int32) string {
	return decimal.NewFromFloat(amount).StringFixed(decimals)
}

// FormatDisplay renders the amount prefixed by the currency symbol.
// Unknown codes are rendered as "CODE amount"
func FormatDisplay(amount float64, code types.Currency) string {
	info, ok := Lookup(code)
	if !ok {
		return fmt.Sprintf("%s %s", code, FormatAmount(amount, 2))
	}

	return info.Symbol + FormatAmount(amount, 2)
}

// FormatMoney renders the amount using the currency's locale conventions
// (grouping, decimal separator, minor units)
func FormatMoney(amount float64, code types.Currency) string {
	// the constructor never yields a nil currency, even for unknown codes
	cur := money.New(0, code.String()).Currency()

	minor := decimal.NewFromFloat(amount).
		Shift(int32(cur.Fraction)). //nolint:gosec // fraction is tiny
		Round(0).
		IntPart()

	return cur.Formatter().Format(minor)
}
