// Package money centralizes monetary rounding and the gateway minor-unit
// boundary. Amounts inside the system are decimal major units; gateways
// speak integer minor units (kobo, cents).
package money

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Round2 rounds to two decimal places, half away from zero. Applied once
// per derived value so rounding error never compounds across line items.
func Round2(value decimal.Decimal) decimal.Decimal {
	return value.Round(2)
}

// ToMinorUnits converts a major-unit amount to integer minor units.
func ToMinorUnits(value decimal.Decimal) int64 {
	return Round2(value).Mul(hundred).Round(0).IntPart()
}

// FromMinorUnits converts integer minor units to a major-unit amount.
func FromMinorUnits(value int64) decimal.Decimal {
	return decimal.NewFromInt(value).Div(hundred)
}

// IsNegative reports whether value is below zero.
func IsNegative(value decimal.Decimal) bool {
	return value.Sign() < 0
}

// MaxZero clamps negative values to zero.
func MaxZero(value decimal.Decimal) decimal.Decimal {
	if value.Sign() < 0 {
		return decimal.Zero
	}
	return value
}

// Min returns the smaller of a and b.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
