package qrcodes

import (
	"time"

	"github.com/google/uuid"

	"github.com/maplecart/storefront-backend/pkg/db/models"
)

type QRCodeDTO struct {
	ID            uuid.UUID  `json:"id"`
	Label         string     `json:"label"`
	Code          string     `json:"code"`
	TargetURL     string     `json:"target_url"`
	ScanURL       string     `json:"scan_url"`
	Enabled       bool       `json:"enabled"`
	ScanCount     int64      `json:"scan_count"`
	LastScannedAt *time.Time `json:"last_scanned_at,omitempty"`
	PendingDelete bool       `json:"pending_delete"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func newQRCodeDTO(row models.QRCode, scanBase string) QRCodeDTO {
	return QRCodeDTO{
		ID:            row.ID,
		Label:         row.Label,
		Code:          row.Code,
		TargetURL:     row.TargetURL,
		ScanURL:       scanBase + row.Code,
		Enabled:       row.Enabled,
		ScanCount:     row.ScanCount,
		LastScannedAt: row.LastScannedAt,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

type ListResult struct {
	QRCodes    []QRCodeDTO `json:"qr_codes"`
	NextCursor string      `json:"next_cursor,omitempty"`
}
