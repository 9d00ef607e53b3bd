package types

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is a single line in a cart or order snapshot.
type CartItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	ImageURL  string          `json:"image_url,omitempty"`
}

// LineTotal is unit price times quantity.
func (c CartItem) LineTotal() decimal.Decimal {
	return c.UnitPrice.Mul(decimal.NewFromInt(int64(c.Quantity)))
}

// CartItems is the JSONB items array on carts and orders.
type CartItems []CartItem

// Subtotal sums the line totals, rounded to cents.
func (c CartItems) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c {
		total = total.Add(item.LineTotal())
	}
	return total.Round(2)
}

// Count returns the total quantity across lines.
func (c CartItems) Count() int {
	n := 0
	for _, item := range c {
		n += item.Quantity
	}
	return n
}

// Value serializes the items to JSON. A nil slice stores an empty array.
func (c CartItems) Value() (driver.Value, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]CartItem(c))
}

// Scan decodes JSONB into the items.
func (c *CartItems) Scan(value interface{}) error {
	if value == nil {
		*c = CartItems{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded []CartItem
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*c = decoded
	return nil
}
