// Package orders serves the admin order views over both payment-source
// tables and drives fulfillment through the carrier.
package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/maplecart/storefront-backend/internal/emails"
	"github.com/maplecart/storefront-backend/pkg/chitchats"
	"github.com/maplecart/storefront-backend/pkg/db/models"
	"github.com/maplecart/storefront-backend/pkg/enums"
	pkgerrors "github.com/maplecart/storefront-backend/pkg/errors"
	"github.com/maplecart/storefront-backend/pkg/logger"
	"github.com/maplecart/storefront-backend/pkg/pagination"
)

// Carrier is the subset of the ChitChats client the service needs.
type Carrier interface {
	Rates(ctx context.Context, req chitchats.RateRequest) ([]chitchats.Rate, error)
	CreateShipment(ctx context.Context, req chitchats.ShipmentRequest) (*chitchats.Shipment, error)
}

type notifier interface {
	SendOrderConfirmation(ctx context.Context, order models.Order) (*emails.LogDTO, error)
	SendShippingNotification(ctx context.Context, order models.Order) (*emails.LogDTO, error)
}

type Service interface {
	List(ctx context.Context, source enums.OrderSource, filter ListFilter, params pagination.Params) (*ListResult, error)
	Get(ctx context.Context, source enums.OrderSource, id uuid.UUID) (*OrderDTO, error)
	CarrierRates(ctx context.Context, source enums.OrderSource, id uuid.UUID, pkg PackageInput) (*RatesResult, error)
	Ship(ctx context.Context, source enums.OrderSource, id uuid.UUID, input ShipInput) (*ShipReport, error)
	SendShippingNotification(ctx context.Context, source enums.OrderSource, id uuid.UUID) (*emails.LogDTO, error)
	ResendConfirmation(ctx context.Context, source enums.OrderSource, id uuid.UUID) (*emails.LogDTO, error)
}

// PackageInput is the parcel the admin measured. Value defaults to the order
// subtotal.
type PackageInput struct {
	WeightGrams int
	LengthCM    decimal.Decimal
	WidthCM     decimal.Decimal
	HeightCM    decimal.Decimal
	Value       *decimal.Decimal
}

type ShipInput struct {
	Package     PackageInput
	PostageType string
}

type ServiceParams struct {
	Repo     Repository
	Carrier  Carrier
	Notifier notifier
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	repo     Repository
	carrier  Carrier
	notifier notifier
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the order service. Carrier may be nil when no carrier
// credentials are configured; rate and ship calls then fail.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.Notifier == nil:
		return nil, fmt.Errorf("email notifier required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     params.Repo,
		carrier:  params.Carrier,
		notifier: params.Notifier,
		logg:     params.Logger,
		now:      now,
	}, nil
}

func (s *service) List(ctx context.Context, source enums.OrderSource, filter ListFilter, params pagination.Params) (*ListResult, error) {
	if err := requireSource(source); err != nil {
		return nil, err
	}
	if filter.From != nil && filter.To != nil && !filter.To.After(*filter.From) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "to must be after from")
	}
	rows, next, err := s.repo.List(ctx, source, filter, params)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidCursor) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list orders")
	}
	out := make([]OrderDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, NewOrderDTO(row))
	}
	return &ListResult{Orders: out, NextCursor: next}, nil
}

func (s *service) Get(ctx context.Context, source enums.OrderSource, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.load(ctx, source, id)
	if err != nil {
		return nil, err
	}
	dto := NewOrderDTO(*order)
	return &dto, nil
}

func (s *service) CarrierRates(ctx context.Context, source enums.OrderSource, id uuid.UUID, pkg PackageInput) (*RatesResult, error) {
	if s.carrier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "carrier not configured")
	}
	order, err := s.load(ctx, source, id)
	if err != nil {
		return nil, err
	}
	req, err := rateRequest(*order, pkg)
	if err != nil {
		return nil, err
	}
	rates, err := s.carrier.Rates(ctx, req)
	if err != nil {
		s.logg.Error(s.logg.WithOrderID(ctx, id.String()), "carrier rate shopping failed", err)
		return nil, err
	}
	return &RatesResult{Rates: rates}, nil
}

// Ship buys a label, stores the tracking details on the order, then emails
// the customer. A carrier failure aborts with a single error. Once the
// shipment is stored an email failure yields a partial report instead.
func (s *service) Ship(ctx context.Context, source enums.OrderSource, id uuid.UUID, input ShipInput) (*ShipReport, error) {
	if s.carrier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "carrier not configured")
	}
	ctx = s.logg.WithOrderID(ctx, id.String())

	order, err := s.load(ctx, source, id)
	if err != nil {
		return nil, err
	}
	switch {
	case order.FulfillmentStatus == enums.FulfillmentStatusCancelled:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is cancelled")
	case order.TrackingNumber != nil && *order.TrackingNumber != "":
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order already shipped").
			WithDetails(map[string]string{"tracking_number": *order.TrackingNumber})
	}

	postage := strings.TrimSpace(input.PostageType)
	if postage == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "postage type is required").
			WithDetails(map[string]string{"postage_type": "is required"})
	}
	rateReq, err := rateRequest(*order, input.Package)
	if err != nil {
		return nil, err
	}

	shipment, err := s.carrier.CreateShipment(ctx, chitchats.ShipmentRequest{RateRequest: rateReq, PostageType: postage})
	if err != nil {
		s.logg.Error(ctx, "carrier shipment failed", err)
		return nil, err
	}

	record := ShipmentRecord{
		CarrierShipmentID: shipment.ID,
		TrackingNumber:    shipment.TrackingNumber,
		TrackingURL:       shipment.TrackingURL,
		LabelURL:          shipment.LabelURL,
		ShippingMethod:    postage,
		ShippedAt:         s.now().UTC(),
	}
	if err := s.repo.SaveShipment(ctx, source, id, record); err != nil {
		shipCtx := s.logg.WithField(ctx, "carrier_shipment_id", shipment.ID)
		if errors.Is(err, ErrAlreadyShipped) {
			s.logg.Warn(shipCtx, "order shipped concurrently, carrier shipment left unattached")
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order shipped by a concurrent request").
				WithDetails(map[string]string{
					"carrier_shipment_id": shipment.ID,
					"tracking_number":     shipment.TrackingNumber,
				})
		}
		s.logg.Error(shipCtx, "failed to persist shipment", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: save shipment").
			WithDetails(map[string]string{
				"carrier_shipment_id": shipment.ID,
				"tracking_number":     shipment.TrackingNumber,
			})
	}
	applyShipment(order, record)

	report := &ShipReport{
		Result: ShipOutcomeOK,
		Order:  NewOrderDTO(*order),
		Shipment: ShipmentStep{
			Status:         StepSucceeded,
			ShipmentID:     shipment.ID,
			TrackingNumber: shipment.TrackingNumber,
			TrackingURL:    shipment.TrackingURL,
			LabelURL:       shipment.LabelURL,
			PostageType:    postage,
		},
	}

	logDTO, err := s.notifier.SendShippingNotification(ctx, *order)
	if err != nil {
		s.logg.Warn(ctx, "shipping notification failed after shipment: "+err.Error())
		report.Result = ShipOutcomePartial
		report.Email = EmailStep{Status: StepFailed, Error: err.Error()}
		return report, nil
	}
	report.Email = EmailStep{Status: StepSucceeded, Log: logDTO}
	s.logg.Info(ctx, "order shipped")
	return report, nil
}

func (s *service) SendShippingNotification(ctx context.Context, source enums.OrderSource, id uuid.UUID) (*emails.LogDTO, error) {
	order, err := s.load(ctx, source, id)
	if err != nil {
		return nil, err
	}
	if order.TrackingNumber == nil || *order.TrackingNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order has not shipped")
	}
	return s.notifier.SendShippingNotification(s.logg.WithOrderID(ctx, id.String()), *order)
}

func (s *service) ResendConfirmation(ctx context.Context, source enums.OrderSource, id uuid.UUID) (*emails.LogDTO, error) {
	order, err := s.load(ctx, source, id)
	if err != nil {
		return nil, err
	}
	return s.notifier.SendOrderConfirmation(s.logg.WithOrderID(ctx, id.String()), *order)
}

func (s *service) load(ctx context.Context, source enums.OrderSource, id uuid.UUID) (*models.Order, error) {
	if err := requireSource(source); err != nil {
		return nil, err
	}
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.Find(ctx, source, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load order")
	}
	return order, nil
}

func requireSource(source enums.OrderSource) error {
	if !source.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid order source").
			WithDetails(map[string]string{"source": "must be stripe or square"})
	}
	return nil
}

func rateRequest(order models.Order, pkg PackageInput) (chitchats.RateRequest, error) {
	if order.ShippingAddress == nil {
		return chitchats.RateRequest{}, pkgerrors.New(pkgerrors.CodeStateConflict, "order has no shipping address")
	}
	addr := *order.ShippingAddress
	name := strings.TrimSpace(addr.Name)
	if name == "" {
		name = order.CustomerName
	}
	value := order.Subtotal
	if pkg.Value != nil {
		value = *pkg.Value
	}
	return chitchats.RateRequest{
		OrderID: order.OrderNumber,
		Destination: chitchats.Destination{
			Name:         name,
			Address1:     addr.Line1,
			Address2:     addr.Line2,
			City:         addr.City,
			ProvinceCode: addr.Province,
			PostalCode:   addr.PostalCode,
			CountryCode:  addr.CountryCode(),
			Phone:        addr.Phone,
		},
		Package: chitchats.Package{
			WeightGrams: pkg.WeightGrams,
			LengthCM:    pkg.LengthCM,
			WidthCM:     pkg.WidthCM,
			HeightCM:    pkg.HeightCM,
			Value:       value,
			Currency:    order.Currency,
			Description: fmt.Sprintf("Order %s (%d items)", order.OrderNumber, order.Items.Count()),
		},
	}, nil
}

func applyShipment(order *models.Order, record ShipmentRecord) {
	shippedAt := record.ShippedAt
	order.CarrierShipmentID = &record.CarrierShipmentID
	order.TrackingNumber = &record.TrackingNumber
	order.TrackingURL = nullableString(record.TrackingURL)
	order.LabelURL = nullableString(record.LabelURL)
	order.FulfillmentStatus = enums.FulfillmentStatusShipped
	order.ShippedAt = &shippedAt
	if record.ShippingMethod != "" {
		method := record.ShippingMethod
		order.ShippingMethod = &method
	}
}
