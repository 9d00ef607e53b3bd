package pricing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/maplecart/storefront-backend/pkg/db/models"
	"github.com/maplecart/storefront-backend/pkg/types"
)

// PriorityOrder is the documented precedence shown to admins.
var PriorityOrder = []string{"flash_sale", "sale_price", "store_discount"}

// ConflictWarning is informational; it never changes a computed price.
type ConflictWarning struct {
	Message                 string          `json:"message"`
	StoreDiscountPercentage decimal.Decimal `json:"store_discount_percentage"`
	ActiveFlashSales        []string        `json:"active_flash_sales"`
	PriorityOrder           []string        `json:"priority_order"`
}

// DetectConflict returns a warning when a store discount and at least one
// live flash sale are in force together, nil otherwise.
func DetectConflict(discount types.StoreDiscount, activeSales []models.FlashSale) *ConflictWarning {
	if !discount.Active() || len(activeSales) == 0 {
		return nil
	}
	names := make([]string, 0, len(activeSales))
	for _, sale := range activeSales {
		names = append(names, sale.Name)
	}
	sort.Strings(names)

	pct := discount.Percentage.Round(2)
	msg := fmt.Sprintf(
		"store-wide discount of %s%% is enabled while %d flash sale(s) are active (%s); flash sales take priority and products they cover will not receive the store discount",
		pct.String(), len(names), strings.Join(names, ", "),
	)
	order := make([]string, len(PriorityOrder))
	copy(order, PriorityOrder)
	return &ConflictWarning{
		Message:                 msg,
		StoreDiscountPercentage: pct,
		ActiveFlashSales:        names,
		PriorityOrder:           order,
	}
}
