package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a catalog listing. Price is the regular price; SalePrice is an
// optional per-product markdown.
type Product struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Name          string           `gorm:"column:name;not null"`
	Slug          string           `gorm:"column:slug;not null;uniqueIndex"`
	Description   *string          `gorm:"column:description"`
	CategorySlug  string           `gorm:"column:category_slug;not null"`
	SKU           *string          `gorm:"column:sku"`
	Price         decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	OriginalPrice *decimal.Decimal `gorm:"column:original_price;type:numeric(12,2)"`
	SalePrice     *decimal.Decimal `gorm:"column:sale_price;type:numeric(12,2)"`
	StockQuantity int              `gorm:"column:stock_quantity;not null;default:0"`
	TrackStock    bool             `gorm:"column:track_stock;not null;default:false"`
	WeightGrams   int              `gorm:"column:weight_grams;not null;default:0"`
	IsVisible     bool             `gorm:"column:is_visible;not null"`
	ImageURLs     pq.StringArray   `gorm:"column:image_urls;type:text[]"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// InStock reports whether the product can be sold.
func (p Product) InStock() bool {
	return !p.TrackStock || p.StockQuantity > 0
}
