package controllers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/maplecart/storefront-backend/api/middleware"
	"github.com/maplecart/storefront-backend/api/responses"
	"github.com/maplecart/storefront-backend/api/validators"
	"github.com/maplecart/storefront-backend/internal/settings"
	pkgerrors "github.com/maplecart/storefront-backend/pkg/errors"
	"github.com/maplecart/storefront-backend/pkg/logger"
	"github.com/maplecart/storefront-backend/pkg/types"
)

func GetStoreDiscount(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}

		discount, err := svc.StoreDiscount(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, discount)
	}
}

func UpdateStoreDiscount(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}

		var payload storeDiscountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.UpdateStoreDiscount(r.Context(), middleware.UserIDFromContext(r.Context()), types.StoreDiscount{
			Enabled:    *payload.Enabled,
			Percentage: payload.Percentage,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

func GetFallbackShipping(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}

		fallback, err := svc.FallbackShipping(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, fallback)
	}
}

func UpdateFallbackShipping(svc settings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}

		var payload fallbackShippingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.UpdateFallbackShipping(r.Context(), middleware.UserIDFromContext(r.Context()), types.FallbackShipping{
			Enabled:    *payload.Enabled,
			Rate:       payload.Rate,
			MethodName: strings.TrimSpace(payload.MethodName),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

type storeDiscountRequest struct {
	Enabled    *bool           `json:"enabled" validate:"required"`
	Percentage decimal.Decimal `json:"percentage"`
}

type fallbackShippingRequest struct {
	Enabled    *bool           `json:"enabled" validate:"required"`
	Rate       decimal.Decimal `json:"rate"`
	MethodName string          `json:"method_name" validate:"max=100"`
}
