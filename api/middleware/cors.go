package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/cors"
)

// CORS applies the configured origin allow-list. A "*" entry opens the API
// to any origin, and credentials are then not allowed.
func CORS(origins []string) func(http.Handler) http.Handler {
	var allowed []string
	for _, origin := range origins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin != "" && !slices.Contains(allowed, origin) {
			allowed = append(allowed, origin)
		}
	}
	wildcard := slices.Contains(allowed, "*")

	return cors.Handler(cors.Options{
		AllowedOrigins: allowed,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "Idempotent-Replayed", "Content-Disposition"},
		AllowCredentials: !wildcard,
		MaxAge:           600,
	})
}
