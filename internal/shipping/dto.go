package shipping

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/maplecart/storefront-backend/pkg/db/models"
	"github.com/maplecart/storefront-backend/pkg/enums"
)

type ZoneDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Priority    int       `json:"priority"`
	Enabled     bool      `json:"enabled"`
	Rules       []RuleDTO `json:"rules"`
	Rates       []RateDTO `json:"rates"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type RuleDTO struct {
	ID        uuid.UUID          `json:"id"`
	RuleType  enums.ZoneRuleType `json:"rule_type"`
	RuleValue string             `json:"rule_value"`
}

type RateDTO struct {
	ID            uuid.UUID        `json:"id"`
	MethodName    string           `json:"method_name"`
	RateType      enums.RateType   `json:"rate_type"`
	RateAmount    decimal.Decimal  `json:"rate_amount"`
	FreeThreshold *decimal.Decimal `json:"free_threshold,omitempty"`
	Enabled       bool             `json:"enabled"`
}

func NewZoneDTO(zone models.ShippingZone) ZoneDTO {
	dto := ZoneDTO{
		ID:          zone.ID,
		Name:        zone.Name,
		Description: zone.Description,
		Priority:    zone.Priority,
		Enabled:     zone.Enabled,
		Rules:       make([]RuleDTO, 0, len(zone.Rules)),
		Rates:       make([]RateDTO, 0, len(zone.Rates)),
		CreatedAt:   zone.CreatedAt,
		UpdatedAt:   zone.UpdatedAt,
	}
	for _, rule := range zone.Rules {
		dto.Rules = append(dto.Rules, RuleDTO{ID: rule.ID, RuleType: rule.RuleType, RuleValue: rule.RuleValue})
	}
	for _, rate := range zone.Rates {
		dto.Rates = append(dto.Rates, RateDTO{
			ID:            rate.ID,
			MethodName:    rate.MethodName,
			RateType:      rate.RateType,
			RateAmount:    rate.RateAmount,
			FreeThreshold: rate.FreeThreshold,
			Enabled:       rate.Enabled,
		})
	}
	return dto
}
