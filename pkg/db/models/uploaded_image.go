package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UploadedImage is metadata for an object in the images bucket.
type UploadedImage struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Path        string     `gorm:"column:path;not null;uniqueIndex"`
	PublicURL   string     `gorm:"column:public_url;not null"`
	ContentType string     `gorm:"column:content_type;not null"`
	SizeBytes   int64      `gorm:"column:size_bytes;not null"`
	AltText     *string    `gorm:"column:alt_text"`
	UploadedBy  *uuid.UUID `gorm:"column:uploaded_by;type:uuid"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (u *UploadedImage) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
