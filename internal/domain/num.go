package domain

import "github.com/shopspring/decimal"

const percentageMultiplier = 100

// ScaleRawAmount converts a smallest-unit amount to a human-scaled quantity.
// The sign of raw is dropped, direction is carried by the transfer type.
func ScaleRawAmount(raw decimal.Decimal, decimals int) decimal.Decimal {
	if raw.IsZero() {
		return decimal.Zero
	}
	return raw.Abs().Shift(int32(-decimals))
}

// SafeDiv divides a by b, returning zero when b is zero.
func SafeDiv(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.Div(b)
}

// ApproxEqual checks whether a and b differ by no more than tolerance.
func ApproxEqual(a, b, tolerance decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tolerance)
}

// ROIPercent returns return-on-investment as a percentage.
// Zero invested yields zero, an investment with no recorded spend has no
// meaningful return.
func ROIPercent(invested, currentValue decimal.Decimal) decimal.Decimal {
	if invested.IsZero() {
		return decimal.Zero
	}
	return currentValue.Sub(invested).Div(invested).Mul(decimal.NewFromInt(percentageMultiplier))
}
