package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/maplecart/storefront-backend/pkg/db/dbtest"
	"github.com/maplecart/storefront-backend/pkg/db/models"
	"github.com/maplecart/storefront-backend/pkg/enums"
	"github.com/maplecart/storefront-backend/pkg/pagination"
	"github.com/maplecart/storefront-backend/pkg/types"
)

var baseTime = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func seedOrder(t *testing.T, repo Repository, source enums.OrderSource, number string, total string, createdAt time.Time) *models.Order {
	t.Helper()
	amount := decimal.RequireFromString(total)
	order := &models.Order{
		OrderNumber:   number,
		CustomerEmail: "buyer-" + number + "@example.com",
		CustomerName:  "Buyer " + number,
		Items: types.CartItems{
			{ProductID: uuid.New(), Name: "Tee", Quantity: 2, UnitPrice: amount.Div(decimal.NewFromInt(2))},
		},
		Subtotal:      amount,
		DiscountTotal: decimal.Zero,
		ShippingCost:  decimal.Zero,
		TaxTotal:      decimal.Zero,
		Total:         amount,
		ShippingAddress: &types.Address{
			Line1: "1 King St W", City: "Toronto", Province: "ON", PostalCode: "M5H 1A1", Country: "ca",
		},
		CreatedAt: createdAt,
	}
	require.NoError(t, repo.Create(context.Background(), source, order))
	return order
}

func TestRepositoryKeepsSourcesApart(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()

	stripeOrder := seedOrder(t, repo, enums.OrderSourceStripe, "S-1", "20.00", baseTime)
	squareOrder := seedOrder(t, repo, enums.OrderSourceSquare, "Q-1", "35.50", baseTime)

	found, err := repo.Find(ctx, enums.OrderSourceSquare, squareOrder.ID)
	require.NoError(t, err)
	assert.Equal(t, "Q-1", found.OrderNumber)
	assert.Equal(t, enums.OrderSourceSquare, found.Source)
	assert.Equal(t, enums.FulfillmentStatusUnfulfilled, found.FulfillmentStatus)
	assert.Equal(t, "CAD", found.Currency)

	_, err = repo.Find(ctx, enums.OrderSourceSquare, stripeOrder.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryListPaginatesAndFilters(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	for i, number := range []string{"A-1", "A-2", "A-3"} {
		seedOrder(t, repo, enums.OrderSourceStripe, number, "10.00", baseTime.Add(time.Duration(i)*time.Minute))
	}

	page, next, err := repo.List(ctx, enums.OrderSourceStripe, ListFilter{}, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "A-3", page[0].OrderNumber)
	require.NotEmpty(t, next)

	rest, next, err := repo.List(ctx, enums.OrderSourceStripe, ListFilter{}, pagination.Params{Limit: 2, Cursor: next})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "A-1", rest[0].OrderNumber)
	assert.Empty(t, next)

	matched, _, err := repo.List(ctx, enums.OrderSourceStripe, ListFilter{Query: "buyer-a-2"}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "A-2", matched[0].OrderNumber)
}

func TestRepositoryTotalsExcludeCancelled(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seedOrder(t, repo, enums.OrderSourceStripe, "T-1", "10.10", baseTime)
	seedOrder(t, repo, enums.OrderSourceStripe, "T-2", "20.20", baseTime.Add(time.Hour))
	cancelled := seedOrder(t, repo, enums.OrderSourceStripe, "T-3", "99.99", baseTime.Add(2*time.Hour))
	seedOrder(t, repo, enums.OrderSourceStripe, "T-4", "5.00", baseTime.Add(48*time.Hour))
	require.NoError(t, db.Table("orders").Where("id = ?", cancelled.ID).Update("fulfillment_status", enums.FulfillmentStatusCancelled).Error)

	count, sum, err := repo.Totals(ctx, enums.OrderSourceStripe, baseTime, baseTime.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.True(t, sum.Equal(decimal.RequireFromString("30.30")), "sum=%s", sum)

	rows, err := repo.ListCreatedBetween(ctx, enums.OrderSourceStripe, baseTime, baseTime.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "T-1", rows[0].OrderNumber)
}

func TestRepositorySaveShipment(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	order := seedOrder(t, repo, enums.OrderSourceSquare, "Q-9", "12.00", baseTime)

	err := repo.SaveShipment(ctx, enums.OrderSourceSquare, order.ID, ShipmentRecord{
		CarrierShipmentID: "S1",
		TrackingNumber:    "CC123",
		LabelURL:          "https://labels.example/S1.pdf",
		ShippingMethod:    "chit_chats_canada_tracked",
		ShippedAt:         baseTime.Add(time.Hour),
	})
	require.NoError(t, err)

	found, err := repo.Find(ctx, enums.OrderSourceSquare, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.FulfillmentStatusShipped, found.FulfillmentStatus)
	require.NotNil(t, found.TrackingNumber)
	assert.Equal(t, "CC123", *found.TrackingNumber)
	assert.Nil(t, found.TrackingURL)
	require.NotNil(t, found.ShippedAt)

	err = repo.SaveShipment(ctx, enums.OrderSourceStripe, order.ID, ShipmentRecord{TrackingNumber: "x", ShippedAt: baseTime})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositorySaveShipmentKeepsFirstTracking(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	order := seedOrder(t, repo, enums.OrderSourceStripe, "S-7", "12.00", baseTime)

	require.NoError(t, repo.SaveShipment(ctx, enums.OrderSourceStripe, order.ID, ShipmentRecord{
		CarrierShipmentID: "S1", TrackingNumber: "CC1", ShippedAt: baseTime,
	}))
	err := repo.SaveShipment(ctx, enums.OrderSourceStripe, order.ID, ShipmentRecord{
		CarrierShipmentID: "S2", TrackingNumber: "CC2", ShippedAt: baseTime.Add(time.Minute),
	})
	assert.ErrorIs(t, err, ErrAlreadyShipped)

	found, err := repo.Find(ctx, enums.OrderSourceStripe, order.ID)
	require.NoError(t, err)
	require.NotNil(t, found.TrackingNumber)
	assert.Equal(t, "CC1", *found.TrackingNumber)
}
