package admins

import (
	"time"

	"github.com/google/uuid"

	"github.com/maplecart/storefront-backend/internal/emails"
	"github.com/maplecart/storefront-backend/pkg/enums"
)

// AdminDTO groups every role held by one console user.
type AdminDTO struct {
	UserID    uuid.UUID         `json:"user_id"`
	Email     string            `json:"email"`
	Roles     []enums.AdminRole `json:"roles"`
	CreatedAt time.Time         `json:"created_at"`
}

// CreateResult reports the grant and the welcome email separately; the
// grant stands even when the email fails.
type CreateResult struct {
	Admin        AdminDTO       `json:"admin"`
	WelcomeEmail *emails.LogDTO `json:"welcome_email,omitempty"`
	EmailError   string         `json:"email_error,omitempty"`
}
