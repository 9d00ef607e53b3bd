package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/maplecart/storefront-backend/pkg/db/models"
	"github.com/maplecart/storefront-backend/pkg/pagination"
)

// Repository exposes persistence operations for active and abandoned carts.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// UpsertActive writes the session's cart, replacing items and totals.
func (r *Repository) UpsertActive(ctx context.Context, record *models.ActiveCart) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "items", "subtotal", "last_activity_at", "updated_at"}),
	}).Create(record).Error
}

func (r *Repository) FindActiveBySession(ctx context.Context, sessionID string) (*models.ActiveCart, error) {
	var record models.ActiveCart
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *Repository) DeleteActiveBySession(ctx context.Context, sessionID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&models.ActiveCart{})
	return res.RowsAffected, res.Error
}

// ListIdle returns active carts untouched since cutoff, oldest first.
func (r *Repository) ListIdle(ctx context.Context, cutoff time.Time, limit int) ([]models.ActiveCart, error) {
	var records []models.ActiveCart
	err := r.db.WithContext(ctx).
		Where("last_activity_at < ?", cutoff).
		Order("last_activity_at ASC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

func (r *Repository) DeleteActiveByIDs(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.ActiveCart{}).Error
}

func (r *Repository) CreateAbandoned(ctx context.Context, records []models.AbandonedCart) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&records).Error
}

func (r *Repository) FindAbandoned(ctx context.Context, id uuid.UUID) (*models.AbandonedCart, error) {
	var record models.AbandonedCart
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// MarkRecovered stamps every open abandoned record of the session.
func (r *Repository) MarkRecovered(ctx context.Context, sessionID string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.AbandonedCart{}).
		Where("session_id = ? AND recovered_at IS NULL", sessionID).
		Update("recovered_at", at)
	return res.RowsAffected, res.Error
}

// MarkRecoverySent sets recovery_email_sent_at once; it reports false when
// another caller stamped it first.
func (r *Repository) MarkRecoverySent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.AbandonedCart{}).
		Where("id = ? AND recovery_email_sent_at IS NULL", id).
		Update("recovery_email_sent_at", at)
	return res.RowsAffected > 0, res.Error
}

// ListRecoveryDue returns open abandoned carts with an address that have not
// been emailed yet, oldest first.
func (r *Repository) ListRecoveryDue(ctx context.Context, limit int) ([]models.AbandonedCart, error) {
	var records []models.AbandonedCart
	err := r.db.WithContext(ctx).
		Where("email IS NOT NULL AND email <> ''").
		Where("recovery_email_sent_at IS NULL AND recovered_at IS NULL").
		Order("abandoned_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

func (r *Repository) ListActive(ctx context.Context, params pagination.Params) ([]models.ActiveCart, string, error) {
	pageSize := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}
	qb := r.db.WithContext(ctx).Model(&models.ActiveCart{})
	var records []models.ActiveCart
	if err := pagination.Keyset(qb, cursor, pageSize).Find(&records).Error; err != nil {
		return nil, "", err
	}
	records, next := pagination.Trim(records, pageSize, func(row models.ActiveCart) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	return records, next, nil
}

func (r *Repository) ListAbandoned(ctx context.Context, includeRecovered bool, params pagination.Params) ([]models.AbandonedCart, string, error) {
	pageSize := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}
	qb := r.db.WithContext(ctx).Model(&models.AbandonedCart{})
	if !includeRecovered {
		qb = qb.Where("recovered_at IS NULL")
	}
	var records []models.AbandonedCart
	if err := pagination.Keyset(qb, cursor, pageSize).Find(&records).Error; err != nil {
		return nil, "", err
	}
	records, next := pagination.Trim(records, pageSize, func(row models.AbandonedCart) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	return records, next, nil
}

// AbandonedStats counts abandoned and recovered rows created in [from, to).
func (r *Repository) AbandonedStats(ctx context.Context, from, to time.Time) (abandoned, recovered int64, err error) {
	base := r.db.WithContext(ctx).Model(&models.AbandonedCart{}).Where("abandoned_at >= ? AND abandoned_at < ?", from, to)
	if err = base.Session(&gorm.Session{}).Count(&abandoned).Error; err != nil {
		return 0, 0, err
	}
	if err = base.Session(&gorm.Session{}).Where("recovered_at IS NOT NULL").Count(&recovered).Error; err != nil {
		return 0, 0, err
	}
	return abandoned, recovered, nil
}
