package enums

import "fmt"

// FlashSaleStatus is the derived lifecycle state of a flash sale. It is never stored.
type FlashSaleStatus string

const (
	FlashSaleStatusDisabled  FlashSaleStatus = "disabled"
	FlashSaleStatusScheduled FlashSaleStatus = "scheduled"
	FlashSaleStatusActive    FlashSaleStatus = "active"
	FlashSaleStatusExpired   FlashSaleStatus = "expired"
)

var validFlashSaleStatuses = []FlashSaleStatus{
	FlashSaleStatusDisabled,
	FlashSaleStatusScheduled,
	FlashSaleStatusActive,
	FlashSaleStatusExpired,
}

// String implements fmt.Stringer.
func (f FlashSaleStatus) String() string {
	return string(f)
}

// IsValid reports whether the value is a known FlashSaleStatus.
func (f FlashSaleStatus) IsValid() bool {
	for _, candidate := range validFlashSaleStatuses {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseFlashSaleStatus converts raw input into a FlashSaleStatus.
func ParseFlashSaleStatus(value string) (FlashSaleStatus, error) {
	for _, candidate := range validFlashSaleStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid flash sale status %q", value)
}
