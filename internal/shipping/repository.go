package shipping

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/maplecart/storefront-backend/pkg/db/models"
)

// Repository persists zones together with their rules and rates.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) preload(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Rules", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Rates", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") })
}

// ListZones returns every zone with associations, highest priority first.
func (r *Repository) ListZones(ctx context.Context) ([]models.ShippingZone, error) {
	var zones []models.ShippingZone
	err := r.preload(ctx).
		Order("priority DESC").
		Order("created_at ASC").
		Find(&zones).Error
	return zones, err
}

// ListEnabledZones is the resolver's read path.
func (r *Repository) ListEnabledZones(ctx context.Context) ([]models.ShippingZone, error) {
	var zones []models.ShippingZone
	err := r.preload(ctx).
		Where("enabled = ?", true).
		Order("priority DESC").
		Order("created_at ASC").
		Find(&zones).Error
	return zones, err
}

func (r *Repository) FindZone(ctx context.Context, id uuid.UUID) (*models.ShippingZone, error) {
	var zone models.ShippingZone
	if err := r.preload(ctx).Where("id = ?", id).First(&zone).Error; err != nil {
		return nil, err
	}
	return &zone, nil
}

// CreateZone inserts the zone and any attached rules and rates.
func (r *Repository) CreateZone(ctx context.Context, zone *models.ShippingZone) error {
	return r.db.WithContext(ctx).Create(zone).Error
}

// UpdateZone saves zone columns only.
func (r *Repository) UpdateZone(ctx context.Context, zone *models.ShippingZone) error {
	return r.db.WithContext(ctx).
		Model(&models.ShippingZone{}).
		Where("id = ?", zone.ID).
		Updates(map[string]any{
			"name":        zone.Name,
			"description": zone.Description,
			"priority":    zone.Priority,
			"enabled":     zone.Enabled,
			"updated_at":  time.Now().UTC(),
		}).Error
}

// DeleteZone removes the zone; children are removed first so the delete
// does not depend on FK cascade support.
func (r *Repository) DeleteZone(ctx context.Context, id uuid.UUID) (bool, error) {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("zone_id = ?", id).Delete(&models.ZoneRule{}).Error; err != nil {
		return false, err
	}
	if err := tx.Where("zone_id = ?", id).Delete(&models.ZoneRate{}).Error; err != nil {
		return false, err
	}
	res := tx.Delete(&models.ShippingZone{}, "id = ?", id)
	return res.RowsAffected > 0, res.Error
}

// ReplaceRules swaps all rules of a zone.
func (r *Repository) ReplaceRules(ctx context.Context, zoneID uuid.UUID, rules []models.ZoneRule) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("zone_id = ?", zoneID).Delete(&models.ZoneRule{}).Error; err != nil {
		return err
	}
	if len(rules) == 0 {
		return nil
	}
	return tx.Create(&rules).Error
}

// ReplaceRates swaps all rates of a zone.
func (r *Repository) ReplaceRates(ctx context.Context, zoneID uuid.UUID, rates []models.ZoneRate) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("zone_id = ?", zoneID).Delete(&models.ZoneRate{}).Error; err != nil {
		return err
	}
	if len(rates) == 0 {
		return nil
	}
	return tx.Create(&rates).Error
}
