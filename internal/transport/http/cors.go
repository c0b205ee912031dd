package http

import (
	"net/http"
	"strings"

	"github.com/rs/cors"
)

const preflightMaxAge = 600

// CORS adds CORS headers for a configured allow-list. "*" allows any origin.
// Disallowed preflights are refused; other disallowed requests pass through
// without CORS headers.
func CORS(allowedOrigins []string, next http.Handler) http.Handler {
	allowAll := false
	allowed := make(map[string]struct{}, len(allowedOrigins))
	origins := make([]string, 0, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = struct{}{}
		origins = append(origins, origin)
	}

	handler := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"Retry-After", "X-Request-ID"},
		MaxAge:         preflightMaxAge,
	}).Handler(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && !allowAll && r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			if _, ok := allowed[origin]; !ok {
				writeError(w, http.StatusForbidden, codeForbidden, "forbidden")
				return
			}
		}
		handler.ServeHTTP(w, r)
	})
}
