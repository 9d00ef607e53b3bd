package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/maplecart/storefront-backend/internal/pricing"
	"github.com/maplecart/storefront-backend/pkg/db/models"
	"github.com/maplecart/storefront-backend/pkg/enums"
)

// ProductDTO is the admin view of a product.
type ProductDTO struct {
	ID            uuid.UUID        `json:"id"`
	Name          string           `json:"name"`
	Slug          string           `json:"slug"`
	Description   *string          `json:"description,omitempty"`
	CategorySlug  string           `json:"category_slug"`
	SKU           *string          `json:"sku,omitempty"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"original_price,omitempty"`
	SalePrice     *decimal.Decimal `json:"sale_price,omitempty"`
	StockQuantity int              `json:"stock_quantity"`
	TrackStock    bool             `json:"track_stock"`
	WeightGrams   int              `json:"weight_grams"`
	IsVisible     bool             `json:"is_visible"`
	ImageURLs     []string         `json:"image_urls"`
	PendingDelete bool             `json:"pending_delete"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

type ProductListResult struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// StorefrontProductDTO carries the resolved price shown to shoppers.
type StorefrontProductDTO struct {
	ID             uuid.UUID         `json:"id"`
	Name           string            `json:"name"`
	Slug           string            `json:"slug"`
	Description    *string           `json:"description,omitempty"`
	CategorySlug   string            `json:"category_slug"`
	Price          decimal.Decimal   `json:"price"`
	EffectivePrice decimal.Decimal   `json:"effective_price"`
	PriceSource    enums.PriceSource `json:"price_source"`
	Badge          string            `json:"badge,omitempty"`
	FlashSaleID    *uuid.UUID        `json:"flash_sale_id,omitempty"`
	FlashSaleName  string            `json:"flash_sale_name,omitempty"`
	InStock        bool              `json:"in_stock"`
	ImageURLs      []string          `json:"image_urls"`
}

type StorefrontListResult struct {
	Products   []StorefrontProductDTO `json:"products"`
	NextCursor string                 `json:"next_cursor,omitempty"`
}

// PricedProduct pairs a product with its resolved price.
type PricedProduct struct {
	Product models.Product
	Price   pricing.Result
}

func NewProductDTO(p models.Product) ProductDTO {
	return ProductDTO{
		ID:            p.ID,
		Name:          p.Name,
		Slug:          p.Slug,
		Description:   p.Description,
		CategorySlug:  p.CategorySlug,
		SKU:           p.SKU,
		Price:         p.Price,
		OriginalPrice: p.OriginalPrice,
		SalePrice:     p.SalePrice,
		StockQuantity: p.StockQuantity,
		TrackStock:    p.TrackStock,
		WeightGrams:   p.WeightGrams,
		IsVisible:     p.IsVisible,
		ImageURLs:     imageURLs(p),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func NewStorefrontProductDTO(p models.Product, price pricing.Result) StorefrontProductDTO {
	return StorefrontProductDTO{
		ID:             p.ID,
		Name:           p.Name,
		Slug:           p.Slug,
		Description:    p.Description,
		CategorySlug:   p.CategorySlug,
		Price:          price.BasePrice,
		EffectivePrice: price.Price,
		PriceSource:    price.Source,
		Badge:          price.Badge,
		FlashSaleID:    price.FlashSaleID,
		FlashSaleName:  price.FlashSaleName,
		InStock:        p.InStock(),
		ImageURLs:      imageURLs(p),
	}
}

func imageURLs(p models.Product) []string {
	if p.ImageURLs == nil {
		return []string{}
	}
	return []string(p.ImageURLs)
}
