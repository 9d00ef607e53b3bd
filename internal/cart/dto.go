package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/maplecart/storefront-backend/pkg/db/models"
	"github.com/maplecart/storefront-backend/pkg/enums"
	"github.com/maplecart/storefront-backend/pkg/types"
)

type ActiveCartDTO struct {
	ID                uuid.UUID       `json:"id"`
	SessionID         string          `json:"session_id"`
	Email             *string         `json:"email,omitempty"`
	Items             types.CartItems `json:"items"`
	ItemCount         int             `json:"item_count"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	LastActivityAt    time.Time       `json:"last_activity_at"`
	RemovedProductIDs []uuid.UUID     `json:"removed_product_ids,omitempty"`
}

type AbandonedCartDTO struct {
	ID                  uuid.UUID        `json:"id"`
	SessionID           string           `json:"session_id"`
	Email               *string          `json:"email,omitempty"`
	Items               types.CartItems  `json:"items"`
	Subtotal            decimal.Decimal  `json:"subtotal"`
	Status              enums.CartStatus `json:"status"`
	AbandonedAt         time.Time        `json:"abandoned_at"`
	RecoveryEmailSentAt *time.Time       `json:"recovery_email_sent_at,omitempty"`
	RecoveredAt         *time.Time       `json:"recovered_at,omitempty"`
}

type CompleteResult struct {
	SessionID string `json:"session_id"`
	Cleared   bool   `json:"cleared"`
	Recovered bool   `json:"recovered"`
}

type ActiveListResult struct {
	Carts      []ActiveCartDTO `json:"carts"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type AbandonedListResult struct {
	Carts      []AbandonedCartDTO `json:"carts"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

func NewActiveCartDTO(c models.ActiveCart) ActiveCartDTO {
	items := c.Items
	if items == nil {
		items = types.CartItems{}
	}
	return ActiveCartDTO{
		ID:             c.ID,
		SessionID:      c.SessionID,
		Email:          c.Email,
		Items:          items,
		ItemCount:      items.Count(),
		Subtotal:       c.Subtotal,
		LastActivityAt: c.LastActivityAt,
	}
}

func NewAbandonedCartDTO(c models.AbandonedCart) AbandonedCartDTO {
	items := c.Items
	if items == nil {
		items = types.CartItems{}
	}
	return AbandonedCartDTO{
		ID:                  c.ID,
		SessionID:           c.SessionID,
		Email:               c.Email,
		Items:               items,
		Subtotal:            c.Subtotal,
		Status:              enums.AbandonedCartStatus(c.RecoveredAt != nil),
		AbandonedAt:         c.AbandonedAt,
		RecoveryEmailSentAt: c.RecoveryEmailSentAt,
		RecoveredAt:         c.RecoveredAt,
	}
}
