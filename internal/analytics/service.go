// Package analytics builds dashboard aggregates from the order tables, the
// abandoned cart table and storefront page views.
package analytics

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/maplecart/storefront-backend/internal/seo"
	"github.com/maplecart/storefront-backend/pkg/db/models"
	"github.com/maplecart/storefront-backend/pkg/enums"
	pkgerrors "github.com/maplecart/storefront-backend/pkg/errors"
)

var csvHeader = []string{
	"source", "order_number", "created_at", "customer_email", "customer_name",
	"subtotal", "discount_total", "shipping_cost", "tax_total", "total", "currency",
	"payment_status", "fulfillment_status", "tracking_number", "shipped_at",
}

type Service interface {
	Summary(ctx context.Context, r Range) (*Summary, error)
	SEO(ctx context.Context, r Range, limit int) (*SEOReport, error)
	// ExportOrdersCSV writes every order in the window, both sources merged
	// oldest first.
	ExportOrdersCSV(ctx context.Context, r Range, w io.Writer) error
}

type orderReader interface {
	Totals(ctx context.Context, source enums.OrderSource, from, to time.Time) (int64, decimal.Decimal, error)
	ListCreatedBetween(ctx context.Context, source enums.OrderSource, from, to time.Time) ([]models.Order, error)
}

type cartStats interface {
	AbandonedStats(ctx context.Context, from, to time.Time) (abandoned, recovered int64, err error)
}

type pageReader interface {
	TopPages(ctx context.Context, from, to time.Time, limit int) ([]seo.PageCount, error)
}

type service struct {
	orders orderReader
	carts  cartStats
	pages  pageReader
}

func NewService(orders orderReader, carts cartStats, pages pageReader) (Service, error) {
	switch {
	case orders == nil:
		return nil, fmt.Errorf("order reader required")
	case carts == nil:
		return nil, fmt.Errorf("cart stats required")
	case pages == nil:
		return nil, fmt.Errorf("page reader required")
	}
	return &service{orders: orders, carts: carts, pages: pages}, nil
}

func (s *service) Summary(ctx context.Context, r Range) (*Summary, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	out := &Summary{From: r.From, To: r.To, Revenue: decimal.Zero, AOV: decimal.Zero}

	var rows []models.Order
	for _, source := range enums.OrderSources() {
		count, revenue, err := s.orders.Totals(ctx, source, r.From, r.To)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: order totals")
		}
		out.BySource = append(out.BySource, SourceTotals{Source: source, Orders: count, Revenue: revenue})
		out.Orders += count
		out.Revenue = out.Revenue.Add(revenue)

		listed, err := s.orders.ListCreatedBetween(ctx, source, r.From, r.To)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list orders")
		}
		rows = append(rows, listed...)
	}
	if out.Orders > 0 {
		out.AOV = out.Revenue.Div(decimal.NewFromInt(out.Orders)).Round(2)
	}
	out.Series = dailySeries(rows, r)

	abandoned, recovered, err := s.carts.AbandonedStats(ctx, r.From, r.To)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: abandoned cart stats")
	}
	out.AbandonedCarts = abandoned
	out.RecoveredCarts = recovered
	if abandoned > 0 {
		out.RecoveryRate = float64(recovered) / float64(abandoned)
	}
	return out, nil
}

func (s *service) SEO(ctx context.Context, r Range, limit int) (*SEOReport, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	pages, err := s.pages.TopPages(ctx, r.From, r.To, limit)
	if err != nil {
		return nil, err
	}
	return &SEOReport{From: r.From, To: r.To, TopPages: pages}, nil
}

func (s *service) ExportOrdersCSV(ctx context.Context, r Range, w io.Writer) error {
	if err := r.validate(); err != nil {
		return err
	}
	var rows []models.Order
	for _, source := range enums.OrderSources() {
		listed, err := s.orders.ListCreatedBetween(ctx, source, r.From, r.To)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list orders")
		}
		rows = append(rows, listed...)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(csvRecord(row)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// dailySeries fills every day of the window, including empty ones.
func dailySeries(rows []models.Order, r Range) []TimeSeriesPoint {
	byDay := map[string]*TimeSeriesPoint{}
	var out []TimeSeriesPoint
	start := time.Date(r.From.Year(), r.From.Month(), r.From.Day(), 0, 0, 0, 0, time.UTC)
	for day := start; day.Before(r.To); day = day.Add(24 * time.Hour) {
		out = append(out, TimeSeriesPoint{Date: dayKey(day), Revenue: decimal.Zero})
	}
	for i := range out {
		byDay[out[i].Date] = &out[i]
	}
	for _, row := range rows {
		if row.FulfillmentStatus == enums.FulfillmentStatusCancelled {
			continue
		}
		point, ok := byDay[dayKey(row.CreatedAt)]
		if !ok {
			continue
		}
		point.Orders++
		point.Revenue = point.Revenue.Add(row.Total)
	}
	return out
}

func csvRecord(row models.Order) []string {
	shippedAt := ""
	if row.ShippedAt != nil {
		shippedAt = row.ShippedAt.UTC().Format(time.RFC3339)
	}
	tracking := ""
	if row.TrackingNumber != nil {
		tracking = *row.TrackingNumber
	}
	return []string{
		row.Source.String(),
		row.OrderNumber,
		row.CreatedAt.UTC().Format(time.RFC3339),
		row.CustomerEmail,
		row.CustomerName,
		row.Subtotal.StringFixed(2),
		row.DiscountTotal.StringFixed(2),
		row.ShippingCost.StringFixed(2),
		row.TaxTotal.StringFixed(2),
		row.Total.StringFixed(2),
		row.Currency,
		row.PaymentStatus,
		row.FulfillmentStatus.String(),
		tracking,
		shippedAt,
	}
}
