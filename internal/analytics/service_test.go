package analytics

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maplecart/storefront-backend/internal/seo"
	"github.com/maplecart/storefront-backend/pkg/db/models"
	"github.com/maplecart/storefront-backend/pkg/enums"
	pkgerrors "github.com/maplecart/storefront-backend/pkg/errors"
)

var windowStart = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

type fakeOrders struct {
	rows map[enums.OrderSource][]models.Order
	err  error
}

func (f *fakeOrders) Totals(_ context.Context, source enums.OrderSource, from, to time.Time) (int64, decimal.Decimal, error) {
	if f.err != nil {
		return 0, decimal.Zero, f.err
	}
	var count int64
	sum := decimal.Zero
	for _, row := range f.rows[source] {
		if row.FulfillmentStatus == enums.FulfillmentStatusCancelled {
			continue
		}
		count++
		sum = sum.Add(row.Total)
	}
	return count, sum, nil
}

func (f *fakeOrders) ListCreatedBetween(_ context.Context, source enums.OrderSource, from, to time.Time) ([]models.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rows[source], nil
}

type fakeCarts struct{ abandoned, recovered int64 }

func (f fakeCarts) AbandonedStats(context.Context, time.Time, time.Time) (int64, int64, error) {
	return f.abandoned, f.recovered, nil
}

type fakePages struct{ limit int }

func (f *fakePages) TopPages(_ context.Context, _, _ time.Time, limit int) ([]seo.PageCount, error) {
	f.limit = limit
	return []seo.PageCount{{Path: "/", Views: 9}}, nil
}

func order(source enums.OrderSource, number, total string, day int, status enums.FulfillmentStatus) models.Order {
	return models.Order{
		OrderNumber:       number,
		CustomerEmail:     "buyer@example.com",
		CustomerName:      "Buyer, Jr.",
		Subtotal:          decimal.RequireFromString(total),
		DiscountTotal:     decimal.Zero,
		ShippingCost:      decimal.Zero,
		TaxTotal:          decimal.Zero,
		Total:             decimal.RequireFromString(total),
		Currency:          "CAD",
		PaymentStatus:     "paid",
		FulfillmentStatus: status,
		CreatedAt:         windowStart.Add(time.Duration(day)*24*time.Hour + time.Hour),
		Source:            source,
	}
}

func fixtureOrders() *fakeOrders {
	return &fakeOrders{rows: map[enums.OrderSource][]models.Order{
		enums.OrderSourceStripe: {
			order(enums.OrderSourceStripe, "S-1", "10.00", 0, enums.FulfillmentStatusUnfulfilled),
			order(enums.OrderSourceStripe, "S-2", "99.00", 1, enums.FulfillmentStatusCancelled),
		},
		enums.OrderSourceSquare: {
			order(enums.OrderSourceSquare, "Q-1", "20.01", 1, enums.FulfillmentStatusShipped),
		},
	}}
}

func TestSummaryCombinesSources(t *testing.T) {
	svc, err := NewService(fixtureOrders(), fakeCarts{abandoned: 4, recovered: 1}, &fakePages{})
	require.NoError(t, err)

	summary, err := svc.Summary(context.Background(), Range{From: windowStart, To: windowStart.Add(3 * 24 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.Orders)
	assert.Equal(t, "30.01", summary.Revenue.StringFixed(2))
	assert.Equal(t, "15.01", summary.AOV.StringFixed(2))
	require.Len(t, summary.BySource, 2)
	assert.Equal(t, enums.OrderSourceStripe, summary.BySource[0].Source)
	assert.Equal(t, int64(1), summary.BySource[0].Orders)
	assert.Equal(t, int64(4), summary.AbandonedCarts)
	assert.InDelta(t, 0.25, summary.RecoveryRate, 1e-9)

	require.Len(t, summary.Series, 3)
	assert.Equal(t, "2025-06-01", summary.Series[0].Date)
	assert.Equal(t, int64(1), summary.Series[0].Orders)
	assert.Equal(t, int64(1), summary.Series[1].Orders)
	assert.Equal(t, "20.01", summary.Series[1].Revenue.StringFixed(2))
	assert.Equal(t, int64(0), summary.Series[2].Orders)
}

func TestSummaryEmptyWindow(t *testing.T) {
	svc, err := NewService(&fakeOrders{}, fakeCarts{}, &fakePages{})
	require.NoError(t, err)

	summary, err := svc.Summary(context.Background(), Range{From: windowStart, To: windowStart.Add(time.Hour)})
	require.NoError(t, err)
	assert.True(t, summary.AOV.IsZero())
	assert.Zero(t, summary.RecoveryRate)
	assert.Len(t, summary.Series, 1)
}

func TestSummaryDependencyError(t *testing.T) {
	svc, err := NewService(&fakeOrders{err: errors.New("conn reset")}, fakeCarts{}, &fakePages{})
	require.NoError(t, err)

	_, err = svc.Summary(context.Background(), Range{From: windowStart, To: windowStart.Add(time.Hour)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestSEOForwardsLimit(t *testing.T) {
	pages := &fakePages{}
	svc, err := NewService(&fakeOrders{}, fakeCarts{}, pages)
	require.NoError(t, err)

	report, err := svc.SEO(context.Background(), Range{From: windowStart, To: windowStart.Add(time.Hour)}, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, pages.limit)
	assert.Len(t, report.TopPages, 1)
}

func TestExportOrdersCSV(t *testing.T) {
	svc, err := NewService(fixtureOrders(), fakeCarts{}, &fakePages{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportOrdersCSV(context.Background(), Range{From: windowStart, To: windowStart.Add(3 * 24 * time.Hour)}, &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, "stripe", records[1][0])
	assert.Equal(t, "S-1", records[1][1])
	assert.Equal(t, "Buyer, Jr.", records[1][4])
	assert.Equal(t, "square", records[3][0])
	assert.Equal(t, "20.01", records[3][9])
}
