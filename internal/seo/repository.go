package seo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/maplecart/storefront-backend/pkg/db/models"
)

// PageCount is one row of the top pages report.
type PageCount struct {
	Path  string `json:"path"`
	Views int64  `json:"views"`
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, view *models.SEOPageView) error {
	return r.db.WithContext(ctx).Create(view).Error
}

// TopPages groups views in [from, to) by path, busiest first.
func (r *Repository) TopPages(ctx context.Context, from, to time.Time, limit int) ([]PageCount, error) {
	var rows []PageCount
	err := r.db.WithContext(ctx).
		Model(&models.SEOPageView{}).
		Select("path, COUNT(*) AS views").
		Where("viewed_at >= ? AND viewed_at < ?", from, to).
		Group("path").
		Order("views DESC").
		Order("path ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CountBetween returns the number of views in [from, to).
func (r *Repository) CountBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.SEOPageView{}).
		Where("viewed_at >= ? AND viewed_at < ?", from, to).
		Count(&total).Error
	return total, err
}
