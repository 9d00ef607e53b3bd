package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/maplecart/storefront-backend/pkg/types"
)

// ActiveCart is the in-progress checkout for a browser session.
type ActiveCart struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	SessionID      string          `gorm:"column:session_id;not null;uniqueIndex"`
	Email          *string         `gorm:"column:email"`
	Items          types.CartItems `gorm:"column:items;type:jsonb;not null"`
	Subtotal       decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	LastActivityAt time.Time       `gorm:"column:last_activity_at;not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *ActiveCart) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// AbandonedCart is an idle session moved aside for recovery outreach.
type AbandonedCart struct {
	ID                  uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	SessionID           string          `gorm:"column:session_id;not null"`
	Email               *string         `gorm:"column:email"`
	Items               types.CartItems `gorm:"column:items;type:jsonb;not null"`
	Subtotal            decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	AbandonedAt         time.Time       `gorm:"column:abandoned_at;not null"`
	RecoveryEmailSentAt *time.Time      `gorm:"column:recovery_email_sent_at"`
	RecoveredAt         *time.Time      `gorm:"column:recovered_at"`
	CreatedAt           time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (c *AbandonedCart) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
