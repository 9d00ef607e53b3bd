package enums

import "fmt"

// FlashSaleScope selects which products a flash sale covers.
type FlashSaleScope string

const (
	FlashSaleScopeAll        FlashSaleScope = "all"
	FlashSaleScopeProducts   FlashSaleScope = "products"
	FlashSaleScopeCategories FlashSaleScope = "categories"
)

var validFlashSaleScopes = []FlashSaleScope{
	FlashSaleScopeAll,
	FlashSaleScopeProducts,
	FlashSaleScopeCategories,
}

// String implements fmt.Stringer.
func (f FlashSaleScope) String() string {
	return string(f)
}

// IsValid reports whether the value is a known FlashSaleScope.
func (f FlashSaleScope) IsValid() bool {
	for _, candidate := range validFlashSaleScopes {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseFlashSaleScope converts raw input into a FlashSaleScope.
func ParseFlashSaleScope(value string) (FlashSaleScope, error) {
	for _, candidate := range validFlashSaleScopes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid flash sale scope %q", value)
}
