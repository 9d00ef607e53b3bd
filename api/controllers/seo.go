package controllers

import (
	"net/http"

	"github.com/maplecart/storefront-backend/api/responses"
	"github.com/maplecart/storefront-backend/api/validators"
	"github.com/maplecart/storefront-backend/internal/seo"
	pkgerrors "github.com/maplecart/storefront-backend/pkg/errors"
	"github.com/maplecart/storefront-backend/pkg/logger"
)

// RecordPageView stores one storefront page view.
func RecordPageView(svc seo.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "seo service unavailable"))
			return
		}

		var payload pageViewRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		referrer := payload.Referrer
		if referrer == "" {
			referrer = r.Referer()
		}
		err := svc.RecordView(r.Context(), seo.ViewInput{
			Path:      payload.Path,
			Referrer:  validators.SanitizeString(referrer, 500),
			UserAgent: validators.SanitizeString(r.UserAgent(), 500),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

// PingSearchEngines notifies each configured engine of the sitemap.
func PingSearchEngines(svc seo.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "seo service unavailable"))
			return
		}

		report, err := svc.PingSearchEngines(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

type pageViewRequest struct {
	Path     string `json:"path" validate:"required,max=500"`
	Referrer string `json:"referrer,omitempty" validate:"max=500"`
}
