package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/maplecart/storefront-backend/pkg/enums"
)

// FlashSale is a time-boxed promotion. Its active status is derived on read.
type FlashSale struct {
	ID            uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	Name          string               `gorm:"column:name;not null"`
	Description   *string              `gorm:"column:description"`
	DiscountType  enums.DiscountType   `gorm:"column:discount_type;not null"`
	DiscountValue decimal.Decimal      `gorm:"column:discount_value;type:numeric(12,2);not null"`
	AppliesTo     enums.FlashSaleScope `gorm:"column:applies_to;not null"`
	ProductIDs    pq.StringArray       `gorm:"column:product_ids;type:text[]"`
	CategorySlugs pq.StringArray       `gorm:"column:category_slugs;type:text[]"`
	StartsAt      time.Time            `gorm:"column:starts_at;not null"`
	EndsAt        time.Time            `gorm:"column:ends_at;not null"`
	Enabled       bool                 `gorm:"column:enabled;not null"`
	Priority      int                  `gorm:"column:priority;not null;default:0"`
	CreatedAt     time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (f *FlashSale) BeforeCreate(*gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
