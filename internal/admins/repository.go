package admins

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/maplecart/storefront-backend/pkg/db/models"
	"github.com/maplecart/storefront-backend/pkg/enums"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, assignment *models.AdminRoleAssignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

// ListAll returns every assignment, oldest first.
func (r *Repository) ListAll(ctx context.Context) ([]models.AdminRoleAssignment, error) {
	var rows []models.AdminRoleAssignment
	if err := r.db.WithContext(ctx).Order("created_at ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) RolesFor(ctx context.Context, userID uuid.UUID) ([]enums.AdminRole, error) {
	var roles []enums.AdminRole
	err := r.db.WithContext(ctx).
		Model(&models.AdminRoleAssignment{}).
		Where("user_id = ?", userID).
		Pluck("role", &roles).Error
	return roles, err
}

func (r *Repository) CountRole(ctx context.Context, role enums.AdminRole) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.AdminRoleAssignment{}).
		Where("role = ?", role).
		Count(&count).Error
	return count, err
}

func (r *Repository) DeleteRole(ctx context.Context, userID uuid.UUID, role enums.AdminRole) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND role = ?", userID, role).
		Delete(&models.AdminRoleAssignment{})
	return res.RowsAffected, res.Error
}
