package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/maplecart/storefront-backend/api/middleware"
	"github.com/maplecart/storefront-backend/internal/admins"
	"github.com/maplecart/storefront-backend/pkg/enums"
	pkgerrors "github.com/maplecart/storefront-backend/pkg/errors"
)

func parseOrderSource(raw string) (enums.OrderSource, error) {
	source, err := enums.ParseOrderSource(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order source").
			WithDetails(map[string]any{"source": "must be one of stripe square"})
	}
	return source, nil
}

func sourceParam(r *http.Request) (enums.OrderSource, error) {
	return parseOrderSource(chi.URLParam(r, "source"))
}

// actorFromContext returns the authenticated console user.
func actorFromContext(r *http.Request) (admins.Actor, error) {
	rawID := middleware.UserIDFromContext(r.Context())
	if rawID == "" {
		return admins.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return admins.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return admins.Actor{
		UserID: id,
		Role:   enums.AdminRole(middleware.RoleFromContext(r.Context())),
	}, nil
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}
