// Package pricing resolves the single effective price of a product from the
// promotions in force. Precedence is flash sale, then the product's own sale
// price, then the store-wide discount. Discounts never stack.
package pricing

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/maplecart/storefront-backend/pkg/db/models"
	"github.com/maplecart/storefront-backend/pkg/enums"
	"github.com/maplecart/storefront-backend/pkg/money"
	"github.com/maplecart/storefront-backend/pkg/types"
)

const (
	BadgeFlashSale     = "flash_sale"
	BadgeBOGO          = "bogo"
	BadgeSale          = "sale"
	BadgeStoreDiscount = "store_discount"
)

// Result is the resolved price for one product.
type Result struct {
	Price         decimal.Decimal   `json:"price"`
	BasePrice     decimal.Decimal   `json:"base_price"`
	Source        enums.PriceSource `json:"source"`
	Badge         string            `json:"badge,omitempty"`
	FlashSaleID   *uuid.UUID        `json:"flash_sale_id,omitempty"`
	FlashSaleName string            `json:"flash_sale_name,omitempty"`
}

// Discounted reports whether the price is below the base price.
func (r Result) Discounted() bool {
	return r.Price.LessThan(r.BasePrice)
}

// ResolveEffectivePrice applies the first matching rule. activeSales must
// already be filtered to live sales; see ActiveFlashSales.
func ResolveEffectivePrice(product models.Product, activeSales []models.FlashSale, discount types.StoreDiscount) Result {
	base := money.Round(money.ClampZero(product.Price))
	result := Result{Price: base, BasePrice: base, Source: enums.PriceSourceBase}

	if sale, ok := SelectFlashSale(product, activeSales); ok {
		id := sale.ID
		result.Source = enums.PriceSourceFlashSale
		result.FlashSaleID = &id
		result.FlashSaleName = sale.Name
		result.Badge = BadgeFlashSale
		switch sale.DiscountType {
		case enums.DiscountTypePercentage:
			result.Price = money.PercentOff(base, sale.DiscountValue)
		case enums.DiscountTypeFixedAmount:
			result.Price = money.AmountOff(base, sale.DiscountValue)
		case enums.DiscountTypeBOGO:
			result.Badge = BadgeBOGO
		}
		return result
	}

	if salePrice, ok := applicableSalePrice(product, base); ok {
		result.Price = salePrice
		result.Source = enums.PriceSourceSalePrice
		result.Badge = BadgeSale
		return result
	}

	if discount.Active() {
		result.Price = money.PercentOff(base, discount.Percentage)
		result.Source = enums.PriceSourceStoreDiscount
		result.Badge = BadgeStoreDiscount
	}
	return result
}

// ResolveAll resolves a batch keyed by product id.
func ResolveAll(products []models.Product, activeSales []models.FlashSale, discount types.StoreDiscount) map[uuid.UUID]Result {
	out := make(map[uuid.UUID]Result, len(products))
	for _, product := range products {
		out[product.ID] = ResolveEffectivePrice(product, activeSales, discount)
	}
	return out
}

// SelectFlashSale picks the covering sale with the highest priority. Ties go
// to the earliest created sale, then the lowest id.
func SelectFlashSale(product models.Product, sales []models.FlashSale) (models.FlashSale, bool) {
	candidates := make([]models.FlashSale, 0, len(sales))
	for _, sale := range sales {
		if Covers(sale, product) {
			candidates = append(candidates, sale)
		}
	}
	if len(candidates) == 0 {
		return models.FlashSale{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
	return candidates[0], true
}

// Covers reports whether the sale scope includes the product.
func Covers(sale models.FlashSale, product models.Product) bool {
	switch sale.AppliesTo {
	case enums.FlashSaleScopeAll:
		return true
	case enums.FlashSaleScopeProducts:
		id := product.ID.String()
		for _, candidate := range sale.ProductIDs {
			if strings.EqualFold(strings.TrimSpace(candidate), id) {
				return true
			}
		}
	case enums.FlashSaleScopeCategories:
		slug := strings.TrimSpace(product.CategorySlug)
		if slug == "" {
			return false
		}
		for _, candidate := range sale.CategorySlugs {
			if strings.EqualFold(strings.TrimSpace(candidate), slug) {
				return true
			}
		}
	}
	return false
}

func applicableSalePrice(product models.Product, base decimal.Decimal) (decimal.Decimal, bool) {
	if product.SalePrice == nil {
		return decimal.Zero, false
	}
	sale := money.Round(*product.SalePrice)
	if sale.IsNegative() || !sale.LessThan(base) {
		return decimal.Zero, false
	}
	return sale, true
}
