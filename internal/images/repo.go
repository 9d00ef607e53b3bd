package images

import (
	"context"

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

func (r *Repository) Create(ctx context.Context, image *models.UploadedImage) error {
	return r.db.WithContext(ctx).Create(image).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.UploadedImage, error) {
	var image models.UploadedImage
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&image).Error; err != nil {
		return nil, err
	}
	return &image, nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.UploadedImage{}).Error
}

func (r *Repository) List(ctx context.Context, params pagination.Params) ([]models.UploadedImage, string, error) {
	pageSize := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}
	qb := r.db.WithContext(ctx).Model(&models.UploadedImage{})
	var rows []models.UploadedImage
	if err := pagination.Keyset(qb, cursor, pageSize).Find(&rows).Error; err != nil {
		return nil, "", err
	}
	rows, next := pagination.Trim(rows, pageSize, func(row models.UploadedImage) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	return rows, next, nil
}
