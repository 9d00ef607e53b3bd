package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/maplecart/storefront-backend/pkg/enums"
)

// AdminRoleAssignment grants a console role to an auth user.
type AdminRoleAssignment struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID       `gorm:"column:user_id;type:uuid;not null"`
	Email     string          `gorm:"column:email;not null"`
	Role      enums.AdminRole `gorm:"column:role;not null"`
	GrantedBy *uuid.UUID      `gorm:"column:granted_by;type:uuid"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (AdminRoleAssignment) TableName() string { return "admin_roles" }

func (a *AdminRoleAssignment) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
