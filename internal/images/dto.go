package images

import (
	"time"

	"github.com/google/uuid"

	"github.com/maplecart/storefront-backend/pkg/db/models"
)

type ImageDTO struct {
	ID          uuid.UUID `json:"id"`
	Path        string    `json:"path"`
	PublicURL   string    `json:"public_url"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	AltText     *string   `json:"alt_text,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func NewImageDTO(row models.UploadedImage) ImageDTO {
	return ImageDTO{
		ID:          row.ID,
		Path:        row.Path,
		PublicURL:   row.PublicURL,
		ContentType: row.ContentType,
		SizeBytes:   row.SizeBytes,
		AltText:     row.AltText,
		CreatedAt:   row.CreatedAt,
	}
}

type ListResult struct {
	Images     []ImageDTO `json:"images"`
	NextCursor string     `json:"next_cursor,omitempty"`
}
