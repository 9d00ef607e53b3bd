package flashsales

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/maplecart/storefront-backend/internal/pricing"
	"github.com/maplecart/storefront-backend/pkg/db/models"
	"github.com/maplecart/storefront-backend/pkg/enums"
)

// FlashSaleDTO is the admin view of a sale including its derived status.
type FlashSaleDTO struct {
	ID            uuid.UUID             `json:"id"`
	Name          string                `json:"name"`
	Description   *string               `json:"description,omitempty"`
	DiscountType  enums.DiscountType    `json:"discount_type"`
	DiscountValue decimal.Decimal       `json:"discount_value"`
	AppliesTo     enums.FlashSaleScope  `json:"applies_to"`
	ProductIDs    []string              `json:"product_ids"`
	CategorySlugs []string              `json:"category_slugs"`
	StartsAt      time.Time             `json:"starts_at"`
	EndsAt        time.Time             `json:"ends_at"`
	Enabled       bool                  `json:"enabled"`
	Priority      int                   `json:"priority"`
	Status        enums.FlashSaleStatus `json:"status"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// NewFlashSaleDTO classifies the sale against now.
func NewFlashSaleDTO(sale models.FlashSale, now time.Time) FlashSaleDTO {
	productIDs := []string(sale.ProductIDs)
	if productIDs == nil {
		productIDs = []string{}
	}
	slugs := []string(sale.CategorySlugs)
	if slugs == nil {
		slugs = []string{}
	}
	return FlashSaleDTO{
		ID:            sale.ID,
		Name:          sale.Name,
		Description:   sale.Description,
		DiscountType:  sale.DiscountType,
		DiscountValue: sale.DiscountValue,
		AppliesTo:     sale.AppliesTo,
		ProductIDs:    productIDs,
		CategorySlugs: slugs,
		StartsAt:      sale.StartsAt,
		EndsAt:        sale.EndsAt,
		Enabled:       sale.Enabled,
		Priority:      sale.Priority,
		Status:        pricing.ClassifyFlashSale(now, sale.StartsAt, sale.EndsAt, sale.Enabled),
		CreatedAt:     sale.CreatedAt,
		UpdatedAt:     sale.UpdatedAt,
	}
}
