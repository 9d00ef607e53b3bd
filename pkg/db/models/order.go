package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/maplecart/storefront-backend/pkg/enums"
	"github.com/maplecart/storefront-backend/pkg/types"
)

// Order is the row shape shared by the orders and square_orders tables.
// Callers pick the table with Source.Table(); Source itself is not stored.
type Order struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber       string                  `gorm:"column:order_number;not null"`
	CustomerEmail     string                  `gorm:"column:customer_email;not null"`
	CustomerName      string                  `gorm:"column:customer_name;not null"`
	Items             types.CartItems         `gorm:"column:items;type:jsonb;not null"`
	Subtotal          decimal.Decimal         `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DiscountTotal     decimal.Decimal         `gorm:"column:discount_total;type:numeric(12,2);not null"`
	ShippingCost      decimal.Decimal         `gorm:"column:shipping_cost;type:numeric(12,2);not null"`
	TaxTotal          decimal.Decimal         `gorm:"column:tax_total;type:numeric(12,2);not null"`
	Total             decimal.Decimal         `gorm:"column:total;type:numeric(12,2);not null"`
	Currency          string                  `gorm:"column:currency;not null;default:CAD"`
	ShippingAddress   *types.Address          `gorm:"column:shipping_address;type:jsonb"`
	ShippingMethod    *string                 `gorm:"column:shipping_method"`
	PaymentReference  *string                 `gorm:"column:payment_reference"`
	PaymentStatus     string                  `gorm:"column:payment_status;not null;default:paid"`
	FulfillmentStatus enums.FulfillmentStatus `gorm:"column:fulfillment_status;not null;default:unfulfilled"`
	CarrierShipmentID *string                 `gorm:"column:carrier_shipment_id"`
	TrackingNumber    *string                 `gorm:"column:tracking_number"`
	TrackingURL       *string                 `gorm:"column:tracking_url"`
	LabelURL          *string                 `gorm:"column:label_url"`
	ShippedAt         *time.Time              `gorm:"column:shipped_at"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`

	Source enums.OrderSource `gorm:"-"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
