package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/maplecart/storefront-backend/api/responses"
	"github.com/maplecart/storefront-backend/api/validators"
	"github.com/maplecart/storefront-backend/internal/analytics"
	pkgerrors "github.com/maplecart/storefront-backend/pkg/errors"
	"github.com/maplecart/storefront-backend/pkg/logger"
)

// AnalyticsSummary reports orders, revenue, AOV and cart recovery for the
// requested window across both order tables.
func AnalyticsSummary(svc analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analytics service unavailable"))
			return
		}

		window, err := parseAnalyticsRange(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Summary(r.Context(), window)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

func AnalyticsSEO(svc analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analytics service unavailable"))
			return
		}

		window, err := parseAnalyticsRange(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 10, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.SEO(r.Context(), window, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

// ExportOrdersCSV buffers the export so failures still answer with the JSON
// error envelope.
func ExportOrdersCSV(svc analytics.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "analytics service unavailable"))
			return
		}

		window, err := parseAnalyticsRange(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var buf bytes.Buffer
		if err := svc.ExportOrdersCSV(r.Context(), window, &buf); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filename := fmt.Sprintf("orders-%s-%s.csv", window.From.Format("20060102"), window.To.Format("20060102"))
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	}
}

func parseAnalyticsRange(r *http.Request) (analytics.Range, error) {
	q := r.URL.Query()
	return analytics.ParseRange(q.Get("from"), q.Get("to"), time.Now())
}
