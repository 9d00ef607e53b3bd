package orders

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maplecart/storefront-backend/internal/emails"
	"github.com/maplecart/storefront-backend/pkg/chitchats"
	"github.com/maplecart/storefront-backend/pkg/db/dbtest"
	"github.com/maplecart/storefront-backend/pkg/db/models"
	"github.com/maplecart/storefront-backend/pkg/enums"
	pkgerrors "github.com/maplecart/storefront-backend/pkg/errors"
	"github.com/maplecart/storefront-backend/pkg/logger"
	"github.com/maplecart/storefront-backend/pkg/pagination"
)

type stubCarrier struct {
	rates       []chitchats.Rate
	shipment    *chitchats.Shipment
	err         error
	lastRequest chitchats.RateRequest
	shipCalls   int
	onShip      func()
}

func (c *stubCarrier) Rates(_ context.Context, req chitchats.RateRequest) ([]chitchats.Rate, error) {
	c.lastRequest = req
	if c.err != nil {
		return nil, c.err
	}
	return c.rates, nil
}

func (c *stubCarrier) CreateShipment(_ context.Context, req chitchats.ShipmentRequest) (*chitchats.Shipment, error) {
	c.shipCalls++
	c.lastRequest = req.RateRequest
	if c.onShip != nil {
		c.onShip()
	}
	if c.err != nil {
		return nil, c.err
	}
	return c.shipment, nil
}

type stubNotifier struct {
	shippingErr   error
	shipped       []models.Order
	confirmations []models.Order
}

func (n *stubNotifier) SendOrderConfirmation(_ context.Context, order models.Order) (*emails.LogDTO, error) {
	n.confirmations = append(n.confirmations, order)
	return &emails.LogDTO{ID: uuid.New(), EmailType: enums.EmailTypeOrderConfirmation, Status: enums.EmailStatusSent}, nil
}

func (n *stubNotifier) SendShippingNotification(_ context.Context, order models.Order) (*emails.LogDTO, error) {
	if n.shippingErr != nil {
		return nil, n.shippingErr
	}
	n.shipped = append(n.shipped, order)
	return &emails.LogDTO{ID: uuid.New(), EmailType: enums.EmailTypeShippingNotification, Status: enums.EmailStatusSent}, nil
}

type serviceFixture struct {
	svc      Service
	repo     Repository
	carrier  *stubCarrier
	notifier *stubNotifier
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		repo: NewRepository(dbtest.Open(t)),
		carrier: &stubCarrier{
			rates: []chitchats.Rate{{PostageType: "chit_chats_canada_tracked", Price: decimal.RequireFromString("8.46")}},
			shipment: &chitchats.Shipment{
				ID:             "S1",
				TrackingNumber: "CC123",
				TrackingURL:    "https://track.example/CC123",
				LabelURL:       "https://labels.example/S1.pdf",
			},
		},
		notifier: &stubNotifier{},
	}
	svc, err := NewService(ServiceParams{
		Repo:     f.repo,
		Carrier:  f.carrier,
		Notifier: f.notifier,
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Now:      func() time.Time { return baseTime.Add(time.Hour) },
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func samplePackage() PackageInput {
	return PackageInput{
		WeightGrams: 400,
		LengthCM:    decimal.NewFromInt(20),
		WidthCM:     decimal.NewFromInt(15),
		HeightCM:    decimal.NewFromInt(4),
	}
}

func TestListRequiresValidSource(t *testing.T) {
	f := newServiceFixture(t)
	_, err := f.svc.List(context.Background(), enums.OrderSource("paypal"), ListFilter{}, pagination.Params{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.List(context.Background(), enums.OrderSourceStripe, ListFilter{}, pagination.Params{Cursor: "%%%"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGetNotFound(t *testing.T) {
	f := newServiceFixture(t)
	_, err := f.svc.Get(context.Background(), enums.OrderSourceStripe, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCarrierRatesMapsOrderAddress(t *testing.T) {
	f := newServiceFixture(t)
	order := seedOrder(t, f.repo, enums.OrderSourceStripe, "R-1", "42.00", baseTime)

	result, err := f.svc.CarrierRates(context.Background(), enums.OrderSourceStripe, order.ID, samplePackage())
	require.NoError(t, err)
	require.Len(t, result.Rates, 1)

	req := f.carrier.lastRequest
	assert.Equal(t, "R-1", req.OrderID)
	assert.Equal(t, "Buyer R-1", req.Destination.Name)
	assert.Equal(t, "CA", req.Destination.CountryCode)
	assert.True(t, req.Package.Value.Equal(decimal.RequireFromString("42.00")))
}

func TestShipSucceeds(t *testing.T) {
	f := newServiceFixture(t)
	order := seedOrder(t, f.repo, enums.OrderSourceSquare, "Q-1", "30.00", baseTime)

	report, err := f.svc.Ship(context.Background(), enums.OrderSourceSquare, order.ID, ShipInput{
		Package:     samplePackage(),
		PostageType: "chit_chats_canada_tracked",
	})
	require.NoError(t, err)
	assert.Equal(t, ShipOutcomeOK, report.Result)
	assert.Equal(t, StepSucceeded, report.Shipment.Status)
	assert.Equal(t, StepSucceeded, report.Email.Status)
	require.NotNil(t, report.Email.Log)
	assert.Equal(t, enums.FulfillmentStatusShipped, report.Order.FulfillmentStatus)

	require.Len(t, f.notifier.shipped, 1)
	require.NotNil(t, f.notifier.shipped[0].TrackingNumber)
	assert.Equal(t, "CC123", *f.notifier.shipped[0].TrackingNumber)

	stored, err := f.repo.Find(context.Background(), enums.OrderSourceSquare, order.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LabelURL)
	assert.Equal(t, "https://labels.example/S1.pdf", *stored.LabelURL)
}

func TestShipEmailFailureIsPartial(t *testing.T) {
	f := newServiceFixture(t)
	f.notifier.shippingErr = pkgerrors.New(pkgerrors.CodeDependency, "email send failed")
	order := seedOrder(t, f.repo, enums.OrderSourceStripe, "P-1", "30.00", baseTime)

	report, err := f.svc.Ship(context.Background(), enums.OrderSourceStripe, order.ID, ShipInput{
		Package:     samplePackage(),
		PostageType: "chit_chats_canada_tracked",
	})
	require.NoError(t, err)
	assert.Equal(t, ShipOutcomePartial, report.Result)
	assert.Equal(t, StepSucceeded, report.Shipment.Status)
	assert.Equal(t, StepFailed, report.Email.Status)
	assert.Contains(t, report.Email.Error, "email send failed")

	stored, err := f.repo.Find(context.Background(), enums.OrderSourceStripe, order.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.TrackingNumber)
	assert.Equal(t, "CC123", *stored.TrackingNumber)

	f.notifier.shippingErr = nil
	logDTO, err := f.svc.SendShippingNotification(context.Background(), enums.OrderSourceStripe, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.EmailTypeShippingNotification, logDTO.EmailType)

	_, err = f.svc.Ship(context.Background(), enums.OrderSourceStripe, order.ID, ShipInput{
		Package:     samplePackage(),
		PostageType: "chit_chats_canada_tracked",
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.Equal(t, 1, f.carrier.shipCalls)
}

func TestShipCarrierFailureLeavesOrderUntouched(t *testing.T) {
	f := newServiceFixture(t)
	f.carrier.err = pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("status 502"), "chitchats create shipment failed")
	order := seedOrder(t, f.repo, enums.OrderSourceStripe, "F-1", "30.00", baseTime)

	report, err := f.svc.Ship(context.Background(), enums.OrderSourceStripe, order.ID, ShipInput{
		Package:     samplePackage(),
		PostageType: "chit_chats_canada_tracked",
	})
	assert.Nil(t, report)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Empty(t, f.notifier.shipped)

	stored, err := f.repo.Find(context.Background(), enums.OrderSourceStripe, order.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.TrackingNumber)
	assert.Equal(t, enums.FulfillmentStatusUnfulfilled, stored.FulfillmentStatus)
}

func TestShipLosingConcurrentRequestReportsConflict(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	order := seedOrder(t, f.repo, enums.OrderSourceStripe, "C-1", "30.00", baseTime)
	f.carrier.onShip = func() {
		require.NoError(t, f.repo.SaveShipment(ctx, enums.OrderSourceStripe, order.ID, ShipmentRecord{
			CarrierShipmentID: "S0", TrackingNumber: "CC000", ShippedAt: baseTime,
		}))
	}

	report, err := f.svc.Ship(ctx, enums.OrderSourceStripe, order.ID, ShipInput{
		Package:     samplePackage(),
		PostageType: "chit_chats_canada_tracked",
	})
	assert.Nil(t, report)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "err=%v", err)
	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	details, ok := appErr.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "S1", details["carrier_shipment_id"])
	assert.Empty(t, f.notifier.shipped)

	stored, err := f.repo.Find(ctx, enums.OrderSourceStripe, order.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.TrackingNumber)
	assert.Equal(t, "CC000", *stored.TrackingNumber)
}

func TestShipValidatesInput(t *testing.T) {
	f := newServiceFixture(t)
	order := seedOrder(t, f.repo, enums.OrderSourceStripe, "V-1", "30.00", baseTime)

	_, err := f.svc.Ship(context.Background(), enums.OrderSourceStripe, order.ID, ShipInput{Package: samplePackage()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Zero(t, f.carrier.shipCalls)
}

func TestShippingNotificationRequiresShipment(t *testing.T) {
	f := newServiceFixture(t)
	order := seedOrder(t, f.repo, enums.OrderSourceStripe, "N-1", "30.00", baseTime)

	_, err := f.svc.SendShippingNotification(context.Background(), enums.OrderSourceStripe, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	logDTO, err := f.svc.ResendConfirmation(context.Background(), enums.OrderSourceStripe, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.EmailTypeOrderConfirmation, logDTO.EmailType)
	require.Len(t, f.notifier.confirmations, 1)
	assert.Equal(t, enums.OrderSourceStripe, f.notifier.confirmations[0].Source)
}

func TestCarrierNotConfigured(t *testing.T) {
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(dbtest.Open(t)),
		Notifier: &stubNotifier{},
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	require.NoError(t, err)
	_, err = svc.CarrierRates(context.Background(), enums.OrderSourceStripe, uuid.New(), samplePackage())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}
