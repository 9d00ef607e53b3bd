package controllers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/maplecart/storefront-backend/api/responses"
	"github.com/maplecart/storefront-backend/api/validators"
	"github.com/maplecart/storefront-backend/internal/shipping"
	"github.com/maplecart/storefront-backend/pkg/enums"
	pkgerrors "github.com/maplecart/storefront-backend/pkg/errors"
	"github.com/maplecart/storefront-backend/pkg/logger"
	"github.com/maplecart/storefront-backend/pkg/types"
)

// ShippingQuote resolves the zone and rate options for a shopper's address.
func ShippingQuote(svc shipping.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipping service unavailable"))
			return
		}

		var payload quoteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if payload.Subtotal.IsNegative() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
				WithDetails(map[string]string{"subtotal": "must be at least 0"}))
			return
		}
		payload.Address.Country = payload.Address.CountryCode()

		resolution, err := svc.Quote(r.Context(), payload.Address, payload.Subtotal)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resolution)
	}
}

func ListShippingZones(svc shipping.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipping service unavailable"))
			return
		}

		zones, err := svc.ListZones(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"zones": zones})
	}
}

func GetShippingZone(svc shipping.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipping service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		zone, err := svc.GetZone(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, zone)
	}
}

func CreateShippingZone(svc shipping.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipping service unavailable"))
			return
		}

		var payload createZoneRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		zone, err := svc.CreateZone(r.Context(), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, zone)
	}
}

func UpdateShippingZone(svc shipping.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipping service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateZoneRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		zone, err := svc.UpdateZone(r.Context(), id, shipping.ZoneUpdateInput{
			Name:        trimmedPtr(payload.Name),
			Description: trimmedPtr(payload.Description),
			Priority:    payload.Priority,
			Enabled:     payload.Enabled,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, zone)
	}
}

func DeleteShippingZone(svc shipping.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipping service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteZone(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ReplaceZoneRules swaps the whole rule set of a zone.
func ReplaceZoneRules(svc shipping.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipping service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload replaceRulesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		zone, err := svc.ReplaceRules(r.Context(), id, toRuleInputs(payload.Rules))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, zone)
	}
}

// ReplaceZoneRates swaps the whole rate set of a zone.
func ReplaceZoneRates(svc shipping.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipping service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload replaceRatesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		zone, err := svc.ReplaceRates(r.Context(), id, toRateInputs(payload.Rates))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, zone)
	}
}

type quoteRequest struct {
	Address  types.Address   `json:"address"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type ruleRequest struct {
	RuleType  string `json:"rule_type" validate:"required"`
	RuleValue string `json:"rule_value" validate:"required,max=100"`
}

type rateRequest struct {
	MethodName    string           `json:"method_name" validate:"required,max=100"`
	RateType      string           `json:"rate_type" validate:"required"`
	RateAmount    decimal.Decimal  `json:"rate_amount"`
	FreeThreshold *decimal.Decimal `json:"free_threshold,omitempty"`
	Enabled       *bool            `json:"enabled,omitempty"`
}

type createZoneRequest struct {
	Name        string        `json:"name" validate:"required,max=200"`
	Description *string       `json:"description,omitempty"`
	Priority    int           `json:"priority"`
	Enabled     *bool         `json:"enabled,omitempty"`
	Rules       []ruleRequest `json:"rules,omitempty" validate:"dive"`
	Rates       []rateRequest `json:"rates,omitempty" validate:"dive"`
}

func (req createZoneRequest) toInput() shipping.ZoneInput {
	input := shipping.ZoneInput{
		Name:        strings.TrimSpace(req.Name),
		Description: trimmedPtr(req.Description),
		Priority:    req.Priority,
		Enabled:     true,
		Rules:       toRuleInputs(req.Rules),
		Rates:       toRateInputs(req.Rates),
	}
	if req.Enabled != nil {
		input.Enabled = *req.Enabled
	}
	return input
}

type updateZoneRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Description *string `json:"description,omitempty"`
	Priority    *int    `json:"priority,omitempty"`
	Enabled     *bool   `json:"enabled,omitempty"`
}

type replaceRulesRequest struct {
	Rules []ruleRequest `json:"rules" validate:"dive"`
}

type replaceRatesRequest struct {
	Rates []rateRequest `json:"rates" validate:"dive"`
}

func toRuleInputs(rules []ruleRequest) []shipping.RuleInput {
	out := make([]shipping.RuleInput, 0, len(rules))
	for _, rule := range rules {
		out = append(out, shipping.RuleInput{
			RuleType:  enums.ZoneRuleType(strings.TrimSpace(rule.RuleType)),
			RuleValue: strings.TrimSpace(rule.RuleValue),
		})
	}
	return out
}

func toRateInputs(rates []rateRequest) []shipping.RateInput {
	out := make([]shipping.RateInput, 0, len(rates))
	for _, rate := range rates {
		enabled := true
		if rate.Enabled != nil {
			enabled = *rate.Enabled
		}
		out = append(out, shipping.RateInput{
			MethodName:    strings.TrimSpace(rate.MethodName),
			RateType:      enums.RateType(strings.TrimSpace(rate.RateType)),
			RateAmount:    rate.RateAmount,
			FreeThreshold: rate.FreeThreshold,
			Enabled:       enabled,
		})
	}
	return out
}
