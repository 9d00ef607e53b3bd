package qrcodes

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/maplecart/storefront-backend/pkg/db/models"
	"github.com/maplecart/storefront-backend/pkg/pagination"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, code *models.QRCode) error {
	return r.db.WithContext(ctx).Create(code).Error
}

func (r *Repository) Save(ctx context.Context, code *models.QRCode) error {
	return r.db.WithContext(ctx).Save(code).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.QRCode{}).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.QRCode, error) {
	var code models.QRCode
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&code).Error; err != nil {
		return nil, err
	}
	return &code, nil
}

func (r *Repository) FindByCode(ctx context.Context, code string) (*models.QRCode, error) {
	var row models.QRCode
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// IncrementScan bumps the counter in a single statement so concurrent scans
// are not lost.
func (r *Repository) IncrementScan(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.QRCode{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"scan_count":      gorm.Expr("scan_count + 1"),
			"last_scanned_at": at,
		}).Error
}

func (r *Repository) List(ctx context.Context, params pagination.Params) ([]models.QRCode, string, error) {
	pageSize := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}
	qb := r.db.WithContext(ctx).Model(&models.QRCode{})
	var rows []models.QRCode
	if err := pagination.Keyset(qb, cursor, pageSize).Find(&rows).Error; err != nil {
		return nil, "", err
	}
	rows, next := pagination.Trim(rows, pageSize, func(row models.QRCode) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	return rows, next, nil
}
