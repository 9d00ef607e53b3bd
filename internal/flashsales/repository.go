package flashsales

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/maplecart/storefront-backend/pkg/db/models"
)

// Repository persists flash sales.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, sale *models.FlashSale) error {
	return r.db.WithContext(ctx).Create(sale).Error
}

func (r *Repository) Save(ctx context.Context, sale *models.FlashSale) error {
	return r.db.WithContext(ctx).Save(sale).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.FlashSale{}, "id = ?", id)
	return res.RowsAffected > 0, res.Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.FlashSale, error) {
	var sale models.FlashSale
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&sale).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

// List returns every sale, highest priority first.
func (r *Repository) List(ctx context.Context) ([]models.FlashSale, error) {
	var sales []models.FlashSale
	err := r.db.WithContext(ctx).
		Order("priority DESC").
		Order("created_at ASC").
		Find(&sales).Error
	return sales, err
}

// ListLive returns enabled sales whose window contains now.
func (r *Repository) ListLive(ctx context.Context, now time.Time) ([]models.FlashSale, error) {
	var sales []models.FlashSale
	err := r.db.WithContext(ctx).
		Where("enabled = ? AND starts_at <= ? AND ends_at >= ?", true, now, now).
		Order("priority DESC").
		Order("created_at ASC").
		Find(&sales).Error
	return sales, err
}
