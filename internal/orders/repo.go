package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/maplecart/storefront-backend/pkg/db/models"
	"github.com/maplecart/storefront-backend/pkg/enums"
	"github.com/maplecart/storefront-backend/pkg/pagination"
)

// ErrAlreadyShipped reports that SaveShipment found the order already
// carrying a tracking number.
var ErrAlreadyShipped = errors.New("order already has a shipment")

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) table(ctx context.Context, source enums.OrderSource) *gorm.DB {
	return r.db.WithContext(ctx).Table(source.Table())
}

func (r *repository) Create(ctx context.Context, source enums.OrderSource, order *models.Order) error {
	if err := r.table(ctx, source).Create(order).Error; err != nil {
		return err
	}
	order.Source = source
	return nil
}

func (r *repository) Find(ctx context.Context, source enums.OrderSource, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.table(ctx, source).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	order.Source = source
	return &order, nil
}

func (r *repository) List(ctx context.Context, source enums.OrderSource, filter ListFilter, params pagination.Params) ([]models.Order, string, error) {
	pageSize := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}

	qb := r.table(ctx, source)
	if filter.FulfillmentStatus != nil {
		qb = qb.Where("fulfillment_status = ?", *filter.FulfillmentStatus)
	}
	if q := strings.ToLower(strings.TrimSpace(filter.Query)); q != "" {
		like := "%" + q + "%"
		qb = qb.Where("(LOWER(order_number) LIKE ? OR LOWER(customer_email) LIKE ? OR LOWER(customer_name) LIKE ?)", like, like, like)
	}
	if filter.From != nil {
		qb = qb.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		qb = qb.Where("created_at < ?", *filter.To)
	}

	var rows []models.Order
	if err := pagination.Keyset(qb, cursor, pageSize).Find(&rows).Error; err != nil {
		return nil, "", err
	}
	rows, next := pagination.Trim(rows, pageSize, func(row models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	for i := range rows {
		rows[i].Source = source
	}
	return rows, next, nil
}

// ListCreatedBetween returns orders in [from, to) oldest first, for exports.
func (r *repository) ListCreatedBetween(ctx context.Context, source enums.OrderSource, from, to time.Time) ([]models.Order, error) {
	var rows []models.Order
	err := r.table(ctx, source).
		Where("created_at >= ? AND created_at < ?", from, to).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Source = source
	}
	return rows, nil
}

// Totals counts orders in [from, to) and sums their totals. Cancelled orders
// are excluded. Sums are done on decimals, not in SQL, to keep cents exact.
func (r *repository) Totals(ctx context.Context, source enums.OrderSource, from, to time.Time) (int64, decimal.Decimal, error) {
	var totals []decimal.Decimal
	err := r.table(ctx, source).
		Where("created_at >= ? AND created_at < ?", from, to).
		Where("fulfillment_status <> ?", enums.FulfillmentStatusCancelled).
		Pluck("total", &totals).Error
	if err != nil {
		return 0, decimal.Zero, err
	}
	sum := decimal.Zero
	for _, t := range totals {
		sum = sum.Add(t)
	}
	return int64(len(totals)), sum.Round(2), nil
}

func (r *repository) SaveShipment(ctx context.Context, source enums.OrderSource, id uuid.UUID, shipment ShipmentRecord) error {
	updates := map[string]any{
		"carrier_shipment_id": shipment.CarrierShipmentID,
		"tracking_number":     shipment.TrackingNumber,
		"tracking_url":        nullableString(shipment.TrackingURL),
		"label_url":           nullableString(shipment.LabelURL),
		"fulfillment_status":  enums.FulfillmentStatusShipped,
		"shipped_at":          shipment.ShippedAt,
		"updated_at":          shipment.ShippedAt,
	}
	if shipment.ShippingMethod != "" {
		updates["shipping_method"] = shipment.ShippingMethod
	}
	res := r.table(ctx, source).
		Where("id = ?", id).
		Where("(tracking_number IS NULL OR tracking_number = '')").
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.table(ctx, source).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	return ErrAlreadyShipped
}

func nullableString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
