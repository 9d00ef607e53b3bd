package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/maplecart/storefront-backend/pkg/enums"
	"github.com/maplecart/storefront-backend/pkg/types"
)

// EmailLog records one send attempt.
type EmailLog struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	EmailType         enums.EmailType   `gorm:"column:email_type;not null"`
	Recipient         string            `gorm:"column:recipient;not null"`
	Subject           string            `gorm:"column:subject;not null"`
	Status            enums.EmailStatus `gorm:"column:status;not null"`
	ProviderMessageID *string           `gorm:"column:provider_message_id"`
	ErrorMessage      *string           `gorm:"column:error_message"`
	OrderID           *uuid.UUID        `gorm:"column:order_id;type:uuid"`
	Metadata          types.JSONMap     `gorm:"column:metadata;type:jsonb"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (e *EmailLog) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
