package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/maplecart/storefront-backend/pkg/db/models"
	"github.com/maplecart/storefront-backend/pkg/enums"
	"github.com/maplecart/storefront-backend/pkg/pagination"
)

// Repository reads and updates the per-source order tables. Every method
// takes the source so the same row shape serves both tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, source enums.OrderSource, order *models.Order) error
	Find(ctx context.Context, source enums.OrderSource, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, source enums.OrderSource, filter ListFilter, params pagination.Params) ([]models.Order, string, error)
	ListCreatedBetween(ctx context.Context, source enums.OrderSource, from, to time.Time) ([]models.Order, error)
	Totals(ctx context.Context, source enums.OrderSource, from, to time.Time) (int64, decimal.Decimal, error)
	SaveShipment(ctx context.Context, source enums.OrderSource, id uuid.UUID, shipment ShipmentRecord) error
}

// ListFilter narrows an order listing.
type ListFilter struct {
	FulfillmentStatus *enums.FulfillmentStatus
	Query             string
	From              *time.Time
	To                *time.Time
}

// ShipmentRecord is what gets written back after a label purchase.
type ShipmentRecord struct {
	CarrierShipmentID string
	TrackingNumber    string
	TrackingURL       string
	LabelURL          string
	ShippingMethod    string
	ShippedAt         time.Time
}
