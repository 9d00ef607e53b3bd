package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/maplecart/storefront-backend/internal/seo"
	"github.com/maplecart/storefront-backend/pkg/enums"
	pkgerrors "github.com/maplecart/storefront-backend/pkg/errors"
)

// Range is a half-open reporting window [From, To).
type Range struct {
	From time.Time
	To   time.Time
}

func (r Range) validate() error {
	if r.From.IsZero() || r.To.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "from and to are required")
	}
	if !r.To.After(r.From) {
		return pkgerrors.New(pkgerrors.CodeValidation, "to must be after from")
	}
	if r.To.Sub(r.From) > maxWindow {
		return pkgerrors.New(pkgerrors.CodeValidation, "range may not exceed 366 days")
	}
	return nil
}

// TimeSeriesPoint is one day of the orders series.
type TimeSeriesPoint struct {
	Date    string          `json:"date"`
	Orders  int64           `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

// SourceTotals splits the headline numbers per order table.
type SourceTotals struct {
	Source  enums.OrderSource `json:"source"`
	Orders  int64             `json:"orders"`
	Revenue decimal.Decimal   `json:"revenue"`
}

// Summary is the dashboard headline for a window. Cancelled orders are not
// counted.
type Summary struct {
	From           time.Time         `json:"from"`
	To             time.Time         `json:"to"`
	Orders         int64             `json:"orders"`
	Revenue        decimal.Decimal   `json:"revenue"`
	AOV            decimal.Decimal   `json:"average_order_value"`
	BySource       []SourceTotals    `json:"by_source"`
	Series         []TimeSeriesPoint `json:"series"`
	AbandonedCarts int64             `json:"abandoned_carts"`
	RecoveredCarts int64             `json:"recovered_carts"`
	RecoveryRate   float64           `json:"recovery_rate"`
}

// SEOReport lists the busiest storefront pages for a window.
type SEOReport struct {
	From     time.Time       `json:"from"`
	To       time.Time       `json:"to"`
	TopPages []seo.PageCount `json:"top_pages"`
}
