package enums

import "fmt"

// EmailStatus is the outcome recorded in email_logs.
type EmailStatus string

const (
	EmailStatusSent   EmailStatus = "sent"
	EmailStatusFailed EmailStatus = "failed"
)

var validEmailStatuses = []EmailStatus{
	EmailStatusSent,
	EmailStatusFailed,
}

// String implements fmt.Stringer.
func (e EmailStatus) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EmailStatus.
func (e EmailStatus) IsValid() bool {
	for _, candidate := range validEmailStatuses {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEmailStatus converts raw input into a EmailStatus.
func ParseEmailStatus(value string) (EmailStatus, error) {
	for _, candidate := range validEmailStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid email status %q", value)
}
