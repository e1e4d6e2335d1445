// Package money holds the shared decimal arithmetic helpers used by the
// ledger engines. All monetary values in the system are two-decimal amounts
// backed by shopspring/decimal; float64 never touches money.
package money

import "github.com/shopspring/decimal"

// Round2 rounds an amount to two decimal places (cents), half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// QuotasNeeded returns ceil(debt / shareValue): the minimum number of
// fixed-value quotas whose combined value covers the debt.
func QuotasNeeded(debt, shareValue decimal.Decimal) int {
	if !debt.IsPositive() || !shareValue.IsPositive() {
		return 0
	}
	return int(debt.Div(shareValue).Ceil().IntPart())
}

// Min returns the smaller of two decimals.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// MustDec parses a decimal literal and panics on malformed input. For
// constants and test fixtures only.
func MustDec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
