package enums

import (
	"fmt"
	"strings"
)

// OrderSource identifies which payment channel produced an order. Each source
// is stored in its own table with an identical shape.
type OrderSource string

const (
	OrderSourceStripe OrderSource = "stripe"
	OrderSourceSquare OrderSource = "square"
)

var validOrderSources = []OrderSource{
	OrderSourceStripe,
	OrderSourceSquare,
}

var orderSourceTables = map[OrderSource]string{
	OrderSourceStripe: "orders",
	OrderSourceSquare: "square_orders",
}

// String implements fmt.Stringer.
func (o OrderSource) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderSource.
func (o OrderSource) IsValid() bool {
	_, ok := orderSourceTables[o]
	return ok
}

// Table returns the backing table for the source.
func (o OrderSource) Table() string {
	return orderSourceTables[o]
}

// OrderSources lists every source in a stable order.
func OrderSources() []OrderSource {
	out := make([]OrderSource, len(validOrderSources))
	copy(out, validOrderSources)
	return out
}

// ParseOrderSource converts raw input into an OrderSource.
func ParseOrderSource(value string) (OrderSource, error) {
	normalized := OrderSource(strings.ToLower(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid order source %q", value)
}
