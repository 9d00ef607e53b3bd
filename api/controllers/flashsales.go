package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/maplecart/storefront-backend/api/responses"
	"github.com/maplecart/storefront-backend/api/validators"
	"github.com/maplecart/storefront-backend/internal/flashsales"
	"github.com/maplecart/storefront-backend/pkg/enums"
	pkgerrors "github.com/maplecart/storefront-backend/pkg/errors"
	"github.com/maplecart/storefront-backend/pkg/logger"
)

// ListFlashSales returns every sale, optionally narrowed by computed status.
func ListFlashSales(svc flashsales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "flash sale service unavailable"))
			return
		}

		var status *enums.FlashSaleStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := enums.ParseFlashSaleStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			status = &parsed
		}

		sales, err := svc.List(r.Context(), status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"flash_sales": sales})
	}
}

func GetFlashSale(svc flashsales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "flash sale service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sale)
	}
}

func CreateFlashSale(svc flashsales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "flash sale service unavailable"))
			return
		}

		var payload createFlashSaleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := svc.Create(r.Context(), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, sale)
	}
}

func UpdateFlashSale(svc flashsales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "flash sale service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateFlashSaleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sale, err := svc.Update(r.Context(), id, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sale)
	}
}

func DeleteFlashSale(svc flashsales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "flash sale service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// PromotionConflicts reports when a store discount and live flash sales
// overlap.
func PromotionConflicts(svc flashsales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "flash sale service unavailable"))
			return
		}

		warning, err := svc.Conflicts(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"has_conflict": warning != nil,
			"warning":      warning,
		})
	}
}

type createFlashSaleRequest struct {
	Name          string          `json:"name" validate:"required,max=200"`
	Description   *string         `json:"description,omitempty"`
	DiscountType  string          `json:"discount_type" validate:"required"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	AppliesTo     string          `json:"applies_to" validate:"required"`
	ProductIDs    []uuid.UUID     `json:"product_ids,omitempty"`
	CategorySlugs []string        `json:"category_slugs,omitempty"`
	StartsAt      time.Time       `json:"starts_at" validate:"required"`
	EndsAt        time.Time       `json:"ends_at" validate:"required"`
	Enabled       *bool           `json:"enabled,omitempty"`
	Priority      int             `json:"priority"`
}

func (req createFlashSaleRequest) toInput() flashsales.Input {
	input := flashsales.Input{
		Name:          strings.TrimSpace(req.Name),
		Description:   trimmedPtr(req.Description),
		DiscountType:  enums.DiscountType(req.DiscountType),
		DiscountValue: req.DiscountValue,
		AppliesTo:     enums.FlashSaleScope(req.AppliesTo),
		ProductIDs:    req.ProductIDs,
		CategorySlugs: req.CategorySlugs,
		StartsAt:      req.StartsAt,
		EndsAt:        req.EndsAt,
		Enabled:       true,
		Priority:      req.Priority,
	}
	if req.Enabled != nil {
		input.Enabled = *req.Enabled
	}
	return input
}

type updateFlashSaleRequest struct {
	Name          *string          `json:"name,omitempty" validate:"omitempty,max=200"`
	Description   *string          `json:"description,omitempty"`
	DiscountType  *string          `json:"discount_type,omitempty"`
	DiscountValue *decimal.Decimal `json:"discount_value,omitempty"`
	AppliesTo     *string          `json:"applies_to,omitempty"`
	ProductIDs    *[]uuid.UUID     `json:"product_ids,omitempty"`
	CategorySlugs *[]string        `json:"category_slugs,omitempty"`
	StartsAt      *time.Time       `json:"starts_at,omitempty"`
	EndsAt        *time.Time       `json:"ends_at,omitempty"`
	Enabled       *bool            `json:"enabled,omitempty"`
	Priority      *int             `json:"priority,omitempty"`
}

func (req updateFlashSaleRequest) toInput() flashsales.UpdateInput {
	input := flashsales.UpdateInput{
		Name:          trimmedPtr(req.Name),
		Description:   trimmedPtr(req.Description),
		DiscountValue: req.DiscountValue,
		ProductIDs:    req.ProductIDs,
		CategorySlugs: req.CategorySlugs,
		StartsAt:      req.StartsAt,
		EndsAt:        req.EndsAt,
		Enabled:       req.Enabled,
		Priority:      req.Priority,
	}
	if req.DiscountType != nil {
		value := enums.DiscountType(*req.DiscountType)
		input.DiscountType = &value
	}
	if req.AppliesTo != nil {
		value := enums.FlashSaleScope(*req.AppliesTo)
		input.AppliesTo = &value
	}
	return input
}
