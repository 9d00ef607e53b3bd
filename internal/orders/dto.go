package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/maplecart/storefront-backend/internal/emails"
	"github.com/maplecart/storefront-backend/pkg/chitchats"
	"github.com/maplecart/storefront-backend/pkg/db/models"
	"github.com/maplecart/storefront-backend/pkg/enums"
	"github.com/maplecart/storefront-backend/pkg/types"
)

type OrderDTO struct {
	ID                uuid.UUID               `json:"id"`
	Source            enums.OrderSource       `json:"source"`
	OrderNumber       string                  `json:"order_number"`
	CustomerEmail     string                  `json:"customer_email"`
	CustomerName      string                  `json:"customer_name"`
	Items             types.CartItems         `json:"items"`
	ItemCount         int                     `json:"item_count"`
	Subtotal          decimal.Decimal         `json:"subtotal"`
	DiscountTotal     decimal.Decimal         `json:"discount_total"`
	ShippingCost      decimal.Decimal         `json:"shipping_cost"`
	TaxTotal          decimal.Decimal         `json:"tax_total"`
	Total             decimal.Decimal         `json:"total"`
	Currency          string                  `json:"currency"`
	ShippingAddress   *types.Address          `json:"shipping_address,omitempty"`
	ShippingMethod    *string                 `json:"shipping_method,omitempty"`
	PaymentStatus     string                  `json:"payment_status"`
	FulfillmentStatus enums.FulfillmentStatus `json:"fulfillment_status"`
	TrackingNumber    *string                 `json:"tracking_number,omitempty"`
	TrackingURL       *string                 `json:"tracking_url,omitempty"`
	LabelURL          *string                 `json:"label_url,omitempty"`
	ShippedAt         *time.Time              `json:"shipped_at,omitempty"`
	CreatedAt         time.Time               `json:"created_at"`
}

func NewOrderDTO(order models.Order) OrderDTO {
	items := order.Items
	if items == nil {
		items = types.CartItems{}
	}
	return OrderDTO{
		ID:                order.ID,
		Source:            order.Source,
		OrderNumber:       order.OrderNumber,
		CustomerEmail:     order.CustomerEmail,
		CustomerName:      order.CustomerName,
		Items:             items,
		ItemCount:         items.Count(),
		Subtotal:          order.Subtotal,
		DiscountTotal:     order.DiscountTotal,
		ShippingCost:      order.ShippingCost,
		TaxTotal:          order.TaxTotal,
		Total:             order.Total,
		Currency:          order.Currency,
		ShippingAddress:   order.ShippingAddress,
		ShippingMethod:    order.ShippingMethod,
		PaymentStatus:     order.PaymentStatus,
		FulfillmentStatus: order.FulfillmentStatus,
		TrackingNumber:    order.TrackingNumber,
		TrackingURL:       order.TrackingURL,
		LabelURL:          order.LabelURL,
		ShippedAt:         order.ShippedAt,
		CreatedAt:         order.CreatedAt,
	}
}

type ListResult struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// ShipOutcome summarizes the whole ship operation.
type ShipOutcome string

const (
	ShipOutcomeOK      ShipOutcome = "ok"
	ShipOutcomePartial ShipOutcome = "partial"
)

// StepStatus is the result of one step of the ship operation.
type StepStatus string

const (
	StepSucceeded StepStatus = "succeeded"
	StepFailed    StepStatus = "failed"
)

type ShipmentStep struct {
	Status         StepStatus `json:"status"`
	ShipmentID     string     `json:"shipment_id"`
	TrackingNumber string     `json:"tracking_number"`
	TrackingURL    string     `json:"tracking_url,omitempty"`
	LabelURL       string     `json:"label_url,omitempty"`
	PostageType    string     `json:"postage_type"`
}

type EmailStep struct {
	Status StepStatus     `json:"status"`
	Error  string         `json:"error,omitempty"`
	Log    *emails.LogDTO `json:"log,omitempty"`
}

// ShipReport reports each step separately so a failed email can be resent
// without buying a second label.
type ShipReport struct {
	Result   ShipOutcome  `json:"result"`
	Order    OrderDTO     `json:"order"`
	Shipment ShipmentStep `json:"shipment"`
	Email    EmailStep    `json:"email"`
}

type RatesResult struct {
	Rates []chitchats.Rate `json:"rates"`
}
