package currencies

import "github.com/sig-0/fxconvert/storage/types"

var (
	USD types.Currency = "USD"
	EUR types.Currency = "EUR"
	GBP types.Currency = "GBP"
	JPY types.Currency = "JPY"
	AUD types.Currency = "AUD"
	CAD types.Currency = "CAD"
	CHF types.Currency = "CHF"
	CNY types.Currency = "CNY"
	INR types.Currency = "INR"
	MXN types.Currency = "MXN"
)

// table is the fixed currency reference table, in display order
var table = []types.CurrencyInfo{
	{Code: USD, Name: "US Dollar", Symbol: "$"},
	{Code: EUR, Name: "Euro", Symbol: "€"},
	{Code: GBP, Name: "British Pound", Symbol: "£"},
	{Code: JPY, Name: "Japanese Yen", Symbol: "¥"},
	{Code: AUD, Name: "Australian Dollar", Symbol: "A$"},
	{Code: CAD, Name: "Canadian Dollar", Symbol: "C$"},
	{Code: CHF, Name: "Swiss Franc", Symbol: "CHF"},
	{Code: CNY, Name: "Chinese Yuan", Symbol: "¥"},
	{Code: INR, Name: "Indian Rupee", Symbol: "₹"},
	{Code: MXN, Name: "Mexican Peso", Symbol: "$"},
}

// All returns a copy of the currency reference table
func All() []types.CurrencyInfo {
	out := make([]types.CurrencyInfo, len(table))
	copy(out, table)

	return out
}

// Lookup fetches the reference entry for the given code
func Lookup(code types.Currency) (types.CurrencyInfo, bool) {
	for _, info := range table {
		if info.Code == code {
			return info, true
		}
	}

	return types.CurrencyInfo{}, false
}

// IsSupported returns true if the code is in the reference table
func IsSupported(code types.Currency) bool {
	_, ok := Lookup(code)

	return ok
}
