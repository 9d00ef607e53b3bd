package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SEOPageView struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Path      string    `gorm:"column:path;not null"`
	Referrer  *string   `gorm:"column:referrer"`
	UserAgent *string   `gorm:"column:user_agent"`
	ViewedAt  time.Time `gorm:"column:viewed_at;not null"`
}

func (SEOPageView) TableName() string { return "seo_page_views" }

func (s *SEOPageView) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
