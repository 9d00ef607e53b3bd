package enums

import "fmt"

// CartStatus is derived, not stored: a cart is active until the abandonment
// sweep moves it to abandoned_carts, and recovered once the shopper comes
// back and completes it.
type CartStatus string

const (
	CartStatusActive    CartStatus = "active"
	CartStatusAbandoned CartStatus = "abandoned"
	CartStatusRecovered CartStatus = "recovered"
)

func (c CartStatus) String() string { return string(c) }

func (c CartStatus) IsValid() bool {
	switch c {
	case CartStatusActive, CartStatusAbandoned, CartStatusRecovered:
		return true
	}
	return false
}

// AbandonedCartStatus reports the status of a row in abandoned_carts.
func AbandonedCartStatus(recovered bool) CartStatus {
	if recovered {
		return CartStatusRecovered
	}
	return CartStatusAbandoned
}

// ParseCartStatus converts a list filter into a CartStatus.
func ParseCartStatus(value string) (CartStatus, error) {
	if status := CartStatus(value); status.IsValid() {
		return status, nil
	}
	return "", fmt.Errorf("invalid cart status %q", value)
}
