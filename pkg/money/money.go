// Package money holds the decimal helpers shared by pricing, shipping and
// order totals. Amounts are dollars with two decimal places.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Round rounds half away from zero to cents.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ClampZero returns zero for negative amounts.
func ClampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// PercentOff computes price * (1 - pct/100), floored at zero and rounded.
func PercentOff(price, pct decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(pct.Div(hundred))
	return Round(ClampZero(price.Mul(factor)))
}

// AmountOff computes max(0, price - amount), rounded.
func AmountOff(price, amount decimal.Decimal) decimal.Decimal {
	return Round(ClampZero(price.Sub(amount)))
}

// Parse reads a decimal amount; NaN and infinity spellings are rejected.
func Parse(raw string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	switch strings.ToLower(strings.TrimLeft(trimmed, "+-")) {
	case "nan", "inf", "infinity":
		return decimal.Zero, fmt.Errorf("amount %q is not a finite number", raw)
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount %q: %w", raw, err)
	}
	return d, nil
}

// Cents converts an amount to integer cents.
func Cents(d decimal.Decimal) int64 {
	return Round(d).Mul(hundred).IntPart()
}

// FromCents converts integer cents to an amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
