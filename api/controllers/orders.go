package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/maplecart/storefront-backend/api/responses"
	"github.com/maplecart/storefront-backend/api/validators"
	internalorders "github.com/maplecart/storefront-backend/internal/orders"
	"github.com/maplecart/storefront-backend/pkg/enums"
	pkgerrors "github.com/maplecart/storefront-backend/pkg/errors"
	"github.com/maplecart/storefront-backend/pkg/logger"
)

// ListOrders pages one order table. The source defaults to stripe.
func ListOrders(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		rawSource := strings.TrimSpace(r.URL.Query().Get("source"))
		if rawSource == "" {
			rawSource = string(enums.OrderSourceStripe)
		}
		source, err := parseOrderSource(rawSource)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter, err := buildOrderFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), source, filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func GetOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		source, err := sourceParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), source, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// OrderCarrierRates shops carrier rates for the measured parcel.
func OrderCarrierRates(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		source, err := sourceParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload packageRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := payload.validate(""); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rates, err := svc.CarrierRates(r.Context(), source, id, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rates)
	}
}

// ShipOrder buys the label and sends the shipping notification. A failed
// email still answers 200 with result "partial" since the shipment exists.
func ShipOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		source, err := sourceParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload shipRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := payload.Package.validate("package"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.Ship(r.Context(), source, id, internalorders.ShipInput{
			Package:     payload.Package.toInput(),
			PostageType: strings.TrimSpace(payload.PostageType),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if report.Result == internalorders.ShipOutcomePartial && logg != nil {
			ctx := logg.WithFields(r.Context(), map[string]any{
				"order_id": id.String(),
				"source":   string(source),
			})
			logg.Warn(ctx, "order.ship.partial")
		}
		responses.WriteSuccess(w, report)
	}
}

// SendShippingNotification resends the shipping email for a shipped order.
func SendShippingNotification(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		source, err := sourceParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.SendShippingNotification(r.Context(), source, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entry)
	}
}

func ResendOrderConfirmation(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		source, err := sourceParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.ResendConfirmation(r.Context(), source, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entry)
	}
}

func buildOrderFilter(r *http.Request) (internalorders.ListFilter, error) {
	q := r.URL.Query()
	filter := internalorders.ListFilter{
		Query: validators.SanitizeString(q.Get("q"), 100),
	}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status, err := enums.ParseFulfillmentStatus(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid fulfillment status")
		}
		filter.FulfillmentStatus = &status
	}
	from, err := parseOptionalTime(q.Get("from"), "from")
	if err != nil {
		return filter, err
	}
	to, err := parseOptionalTime(q.Get("to"), "to")
	if err != nil {
		return filter, err
	}
	filter.From, filter.To = from, to
	return filter, nil
}

func parseOptionalTime(raw, field string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			parsed = parsed.UTC()
			return &parsed, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid timestamp").
		WithDetails(map[string]string{field: "must be RFC3339 or YYYY-MM-DD"})
}

type packageRequest struct {
	WeightGrams int              `json:"weight_grams" validate:"required,gt=0"`
	LengthCM    decimal.Decimal  `json:"length_cm"`
	WidthCM     decimal.Decimal  `json:"width_cm"`
	HeightCM    decimal.Decimal  `json:"height_cm"`
	Value       *decimal.Decimal `json:"value,omitempty"`
}

// validate checks the dimensions the validator tags cannot express on decimals.
func (req packageRequest) validate(prefix string) error {
	key := func(field string) string {
		if prefix == "" {
			return field
		}
		return prefix + "." + field
	}
	details := map[string]string{}
	dims := map[string]decimal.Decimal{
		"length_cm": req.LengthCM,
		"width_cm":  req.WidthCM,
		"height_cm": req.HeightCM,
	}
	for field, value := range dims {
		if !value.IsPositive() {
			details[key(field)] = "must be greater than 0"
		}
	}
	if req.Value != nil && req.Value.IsNegative() {
		details[key("value")] = "must be at least 0"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	return nil
}

func (req packageRequest) toInput() internalorders.PackageInput {
	return internalorders.PackageInput{
		WeightGrams: req.WeightGrams,
		LengthCM:    req.LengthCM,
		WidthCM:     req.WidthCM,
		HeightCM:    req.HeightCM,
		Value:       req.Value,
	}
}

type shipRequest struct {
	Package     packageRequest `json:"package"`
	PostageType string         `json:"postage_type" validate:"required"`
}
