package emails

import (
	"time"

	"github.com/google/uuid"

	"github.com/maplecart/storefront-backend/pkg/db/models"
	"github.com/maplecart/storefront-backend/pkg/enums"
)

type LogDTO struct {
	ID                uuid.UUID         `json:"id"`
	EmailType         enums.EmailType   `json:"email_type"`
	Recipient         string            `json:"recipient"`
	Subject           string            `json:"subject"`
	Status            enums.EmailStatus `json:"status"`
	ProviderMessageID *string           `json:"provider_message_id,omitempty"`
	ErrorMessage      *string           `json:"error_message,omitempty"`
	OrderID           *uuid.UUID        `json:"order_id,omitempty"`
	Metadata          map[string]any    `json:"metadata,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
}

func NewLogDTO(row models.EmailLog) LogDTO {
	return LogDTO{
		ID:                row.ID,
		EmailType:         row.EmailType,
		Recipient:         row.Recipient,
		Subject:           row.Subject,
		Status:            row.Status,
		ProviderMessageID: row.ProviderMessageID,
		ErrorMessage:      row.ErrorMessage,
		OrderID:           row.OrderID,
		Metadata:          row.Metadata,
		CreatedAt:         row.CreatedAt,
	}
}

type LogListResult struct {
	Logs       []LogDTO `json:"logs"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

// RecipientFailure is one address a campaign could not reach.
type RecipientFailure struct {
	Recipient string `json:"recipient"`
	Error     string `json:"error"`
}

type CampaignResult struct {
	Total    int                `json:"total"`
	Sent     int                `json:"sent"`
	Failed   int                `json:"failed"`
	Failures []RecipientFailure `json:"failures"`
}
