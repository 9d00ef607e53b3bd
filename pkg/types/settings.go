package types

import "github.com/shopspring/decimal"

// StoreDiscount is the store-wide percentage applied to full-price items.
type StoreDiscount struct {
	Enabled    bool            `json:"enabled"`
	Percentage decimal.Decimal `json:"percentage"`
}

// Active reports whether the discount would change any price.
func (s StoreDiscount) Active() bool {
	return s.Enabled && s.Percentage.IsPositive()
}

// FallbackShipping is the default method offered when no zone matches.
type FallbackShipping struct {
	Enabled    bool            `json:"enabled"`
	Rate       decimal.Decimal `json:"rate"`
	MethodName string          `json:"method_name"`
}
