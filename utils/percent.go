// utils/percent.go
package utils

import "github.com/shopspring/decimal"

// GrowthPercent returns the percentage change from previous to current,
// rounded to 2 places. Zero previous is handled here so callers never divide
// by zero: 0 -> 0 stays 0, 0 -> anything positive counts as 100% growth.
func GrowthPercent(current, previous decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		if current.IsZero() {
			return decimal.Zero
		}
		return decimal.NewFromInt(100)
	}
	return current.Sub(previous).
		Div(previous).
		Mul(decimal.NewFromInt(100)).
		Round(2)
}
