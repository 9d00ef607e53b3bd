package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/maplecart/storefront-backend/api/responses"
	pkgAuth "github.com/maplecart/storefront-backend/pkg/auth"
	"github.com/maplecart/storefront-backend/pkg/config"
	"github.com/maplecart/storefront-backend/pkg/enums"
	pkgerrors "github.com/maplecart/storefront-backend/pkg/errors"
	"github.com/maplecart/storefront-backend/pkg/logger"
)

// RoleChecker resolves the current role for a user from the admin_roles table.
type RoleChecker interface {
	RoleFor(ctx context.Context, userID uuid.UUID) (enums.AdminRole, error)
}

// Auth validates a bearer token and seeds the request context with the
// caller. When roles is set the stored role replaces the one in the token so
// revoked grants take effect before the token expires.
func Auth(cfg config.JWTConfig, roles RoleChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := bearerToken(r)
			if !ok {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			role, err := effectiveRole(ctx, roles, claims)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}

			ctx = WithActor(ctx, Actor{UserID: claims.UserID.String(), Role: role.String(), Email: claims.Email})
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{"user_id": claims.UserID.String(), "actor_role": role.String()})
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken accepts "Bearer <token>" in any case, or a bare token.
func bearerToken(r *http.Request) (string, bool) {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if scheme, rest, found := strings.Cut(raw, " "); found && strings.EqualFold(scheme, "bearer") {
		raw = strings.TrimSpace(rest)
	}
	return raw, raw != ""
}

func effectiveRole(ctx context.Context, roles RoleChecker, claims *pkgAuth.AccessTokenClaims) (enums.AdminRole, error) {
	if roles == nil {
		return claims.Role, nil
	}
	stored, err := roles.RoleFor(ctx, claims.UserID)
	if err != nil {
		return "", err
	}
	if stored == "" {
		return "", pkgerrors.New(pkgerrors.CodeForbidden, "admin role revoked")
	}
	return stored, nil
}
