package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QRCode maps a short code to a tracked redirect target.
type QRCode struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Label         string     `gorm:"column:label;not null"`
	Code          string     `gorm:"column:code;not null;uniqueIndex"`
	TargetURL     string     `gorm:"column:target_url;not null"`
	Enabled       bool       `gorm:"column:enabled;not null"`
	ScanCount     int64      `gorm:"column:scan_count;not null;default:0"`
	LastScannedAt *time.Time `gorm:"column:last_scanned_at"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (QRCode) TableName() string { return "qr_codes" }

func (q *QRCode) BeforeCreate(*gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}
