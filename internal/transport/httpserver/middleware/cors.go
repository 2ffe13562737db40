package middleware

import (
	"net/http"
	"strings"
)

// NewCORS allows the configured browser origins. A single "*" entry
// allows any origin; preflights from origins not on the list fall
// through unanswered.
func NewCORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowAll := false
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origin = strings.TrimSpace(origin)
		switch origin {
		case "":
		case "*":
			allowAll = true
		default:
			allowed[origin] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			ok := false
			if origin != "" {
				_, ok = allowed[origin]
				ok = ok || allowAll
			}

			if ok {
				header := w.Header()
				header.Add("Vary", "Origin")
				header.Set("Access-Control-Allow-Origin", origin)
				header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
				header.Set("Access-Control-Allow-Headers", "Authorization,Content-Type")
				header.Set("Access-Control-Max-Age", "86400")
			}

			if r.Method == http.MethodOptions && ok {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
