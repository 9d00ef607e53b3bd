package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/maplecart/storefront-backend/api/responses"
	"github.com/maplecart/storefront-backend/api/validators"
	"github.com/maplecart/storefront-backend/internal/emails"
	internalorders "github.com/maplecart/storefront-backend/internal/orders"
	"github.com/maplecart/storefront-backend/pkg/enums"
	pkgerrors "github.com/maplecart/storefront-backend/pkg/errors"
	"github.com/maplecart/storefront-backend/pkg/logger"
)

// SendEmail dispatches on the type discriminator. Order emails go through the
// order service so the order is loaded from its own table first.
func SendEmail(mail emails.Service, orderSvc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if mail == nil || orderSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "email service unavailable"))
			return
		}

		var payload sendEmailRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		emailType, err := enums.ParseEmailType(strings.TrimSpace(payload.Type))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid email type"))
			return
		}

		switch emailType {
		case enums.EmailTypeOrderConfirmation, enums.EmailTypeShippingNotification:
			source, orderID, err := payload.orderRef()
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			var entry *emails.LogDTO
			if emailType == enums.EmailTypeOrderConfirmation {
				entry, err = orderSvc.ResendConfirmation(r.Context(), source, orderID)
			} else {
				entry, err = orderSvc.SendShippingNotification(r.Context(), source, orderID)
			}
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, map[string]any{"type": emailType, "log": entry})

		case enums.EmailTypeAdminWelcome:
			recipient := strings.TrimSpace(payload.Email)
			role, err := enums.ParseAdminRole(strings.TrimSpace(payload.Role))
			if recipient == "" || err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
					WithDetails(map[string]string{"email": "is required", "role": "must be one of owner admin"}))
				return
			}
			entry, err := mail.SendAdminWelcome(r.Context(), recipient, role)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, map[string]any{"type": emailType, "log": entry})

		case enums.EmailTypeAdminPromotion:
			result, err := mail.SendPromotion(r.Context(), emails.PromotionInput{
				Recipients: payload.Recipients,
				Subject:    strings.TrimSpace(payload.Subject),
				Headline:   strings.TrimSpace(payload.Headline),
				Body:       payload.Body,
				CTAURL:     strings.TrimSpace(payload.CTAURL),
				CTALabel:   strings.TrimSpace(payload.CTALabel),
			})
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, map[string]any{"type": emailType, "campaign": result})

		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "email type cannot be sent manually").
				WithDetails(map[string]string{"type": "must be one of order_confirmation shipping_notification admin_welcome admin_promotion"}))
		}
	}
}

// ListEmailLogs pages the send log, newest first.
func ListEmailLogs(mail emails.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if mail == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "email service unavailable"))
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		q := r.URL.Query()
		var filter emails.LogFilter
		if raw := strings.TrimSpace(q.Get("type")); raw != "" {
			emailType, err := enums.ParseEmailType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid email type"))
				return
			}
			filter.Type = &emailType
		}
		if raw := strings.TrimSpace(q.Get("status")); raw != "" {
			status, err := enums.ParseEmailStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid email status"))
				return
			}
			filter.Status = &status
		}
		if raw := strings.TrimSpace(q.Get("order_id")); raw != "" {
			orderID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
				return
			}
			filter.OrderID = &orderID
		}

		list, err := mail.ListLogs(r.Context(), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

type sendEmailRequest struct {
	Type string `json:"type" validate:"required"`

	// order_confirmation, shipping_notification
	Source  string `json:"source,omitempty"`
	OrderID string `json:"order_id,omitempty"`

	// admin_welcome
	Email string `json:"email,omitempty" validate:"omitempty,email"`
	Role  string `json:"role,omitempty"`

	// admin_promotion
	Recipients []string `json:"recipients,omitempty" validate:"omitempty,max=500,dive,email"`
	Subject    string   `json:"subject,omitempty" validate:"omitempty,max=200"`
	Headline   string   `json:"headline,omitempty" validate:"omitempty,max=200"`
	Body       string   `json:"body,omitempty"`
	CTAURL     string   `json:"cta_url,omitempty" validate:"omitempty,url"`
	CTALabel   string   `json:"cta_label,omitempty" validate:"omitempty,max=60"`
}

func (req sendEmailRequest) orderRef() (enums.OrderSource, uuid.UUID, error) {
	source, err := parseOrderSource(req.Source)
	if err != nil {
		return "", uuid.Nil, err
	}
	orderID, err := uuid.Parse(strings.TrimSpace(req.OrderID))
	if err != nil {
		return "", uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id").
			WithDetails(map[string]string{"order_id": "must be a valid UUID"})
	}
	return source, orderID, nil
}
