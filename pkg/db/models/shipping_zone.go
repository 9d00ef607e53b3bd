package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/maplecart/storefront-backend/pkg/enums"
)

// ShippingZone bundles geographic rules with selectable rates.
type ShippingZone struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Name        string     `gorm:"column:name;not null"`
	Description *string    `gorm:"column:description"`
	Priority    int        `gorm:"column:priority;not null;default:0"`
	Enabled     bool       `gorm:"column:enabled;not null"`
	Rules       []ZoneRule `gorm:"foreignKey:ZoneID;constraint:OnDelete:CASCADE"`
	Rates       []ZoneRate `gorm:"foreignKey:ZoneID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (z *ShippingZone) BeforeCreate(*gorm.DB) error {
	if z.ID == uuid.Nil {
		z.ID = uuid.New()
	}
	return nil
}

// ZoneRule is one AND-ed address condition of a zone.
type ZoneRule struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	ZoneID    uuid.UUID          `gorm:"column:zone_id;type:uuid;not null"`
	RuleType  enums.ZoneRuleType `gorm:"column:rule_type;not null"`
	RuleValue string             `gorm:"column:rule_value;not null"`
	Position  int                `gorm:"column:position;not null;default:0"`
}

func (ZoneRule) TableName() string { return "shipping_zone_rules" }

func (r *ZoneRule) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// ZoneRate is a shipping method offered by a zone.
type ZoneRate struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	ZoneID        uuid.UUID        `gorm:"column:zone_id;type:uuid;not null"`
	MethodName    string           `gorm:"column:method_name;not null"`
	RateType      enums.RateType   `gorm:"column:rate_type;not null"`
	RateAmount    decimal.Decimal  `gorm:"column:rate_amount;type:numeric(12,2);not null"`
	FreeThreshold *decimal.Decimal `gorm:"column:free_threshold;type:numeric(12,2)"`
	Enabled       bool             `gorm:"column:enabled;not null"`
	Position      int              `gorm:"column:position;not null;default:0"`
}

func (ZoneRate) TableName() string { return "shipping_zone_rates" }

func (r *ZoneRate) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
