package pricing

import (
	"time"

	"github.com/maplecart/storefront-backend/pkg/db/models"
	"github.com/maplecart/storefront-backend/pkg/enums"
)

// ClassifyFlashSale derives the lifecycle state from the sale window. Both
// window edges are inclusive.
func ClassifyFlashSale(now, startsAt, endsAt time.Time, enabled bool) enums.FlashSaleStatus {
	switch {
	case !enabled:
		return enums.FlashSaleStatusDisabled
	case now.Before(startsAt):
		return enums.FlashSaleStatusScheduled
	case now.After(endsAt):
		return enums.FlashSaleStatusExpired
	default:
		return enums.FlashSaleStatusActive
	}
}

// IsActive reports whether the sale is live at now.
func IsActive(sale models.FlashSale, now time.Time) bool {
	return ClassifyFlashSale(now, sale.StartsAt, sale.EndsAt, sale.Enabled) == enums.FlashSaleStatusActive
}

// ActiveFlashSales filters sales down to the ones live at now.
func ActiveFlashSales(sales []models.FlashSale, now time.Time) []models.FlashSale {
	active := make([]models.FlashSale, 0, len(sales))
	for _, sale := range sales {
		if IsActive(sale, now) {
			active = append(active, sale)
		}
	}
	return active
}
