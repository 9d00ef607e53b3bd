package enums

import "fmt"

// EmailType discriminates transactional and campaign emails.
type EmailType string

const (
	EmailTypeOrderConfirmation    EmailType = "order_confirmation"
	EmailTypeShippingNotification EmailType = "shipping_notification"
	EmailTypeAdminWelcome         EmailType = "admin_welcome"
	EmailTypeAdminPromotion       EmailType = "admin_promotion"
	EmailTypeAbandonedCart        EmailType = "abandoned_cart"
)

var validEmailTypes = []EmailType{
	EmailTypeOrderConfirmation,
	EmailTypeShippingNotification,
	EmailTypeAdminWelcome,
	EmailTypeAdminPromotion,
	EmailTypeAbandonedCart,
}

// String implements fmt.Stringer.
func (e EmailType) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EmailType.
func (e EmailType) IsValid() bool {
	for _, candidate := range validEmailTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEmailType converts raw input into a EmailType.
func ParseEmailType(value string) (EmailType, error) {
	for _, candidate := range validEmailTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid email type %q", value)
}
