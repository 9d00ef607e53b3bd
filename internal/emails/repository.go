package emails

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/maplecart/storefront-backend/pkg/db/models"
	"github.com/maplecart/storefront-backend/pkg/enums"
	"github.com/maplecart/storefront-backend/pkg/pagination"
)

// Repository persists email_logs rows.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, entry *models.EmailLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// LogFilter narrows a log listing; zero values match everything.
type LogFilter struct {
	Type    *enums.EmailType
	Status  *enums.EmailStatus
	OrderID *uuid.UUID
}

func (r *Repository) List(ctx context.Context, filter LogFilter, params pagination.Params) ([]models.EmailLog, string, error) {
	pageSize := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}

	qb := r.db.WithContext(ctx).Model(&models.EmailLog{})
	if filter.Type != nil {
		qb = qb.Where("email_type = ?", *filter.Type)
	}
	if filter.Status != nil {
		qb = qb.Where("status = ?", *filter.Status)
	}
	if filter.OrderID != nil {
		qb = qb.Where("order_id = ?", *filter.OrderID)
	}

	var rows []models.EmailLog
	if err := pagination.Keyset(qb, cursor, pageSize).Find(&rows).Error; err != nil {
		return nil, "", err
	}
	rows, next := pagination.Trim(rows, pageSize, func(row models.EmailLog) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	return rows, next, nil
}

// DeleteOlderThan removes logs created before cutoff.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.EmailLog{})
	return res.RowsAffected, res.Error
}
