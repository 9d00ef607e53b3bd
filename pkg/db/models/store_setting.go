package models

import (
	"time"

	"github.com/maplecart/storefront-backend/pkg/types"
)

// StoreSetting is a keyed singleton configuration record.
type StoreSetting struct {
	Key       string        `gorm:"column:key;primaryKey"`
	Value     types.JSONMap `gorm:"column:value;type:jsonb;not null"`
	UpdatedBy *string       `gorm:"column:updated_by"`
	UpdatedAt time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}

func (StoreSetting) TableName() string { return "store_settings" }
