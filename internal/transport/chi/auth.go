package chi

import (
	"context"
	"net/http"
	"strings"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Waterproof82/smart-connect-assistant/internal/domain"
)

type contextKey string

const authTokenKey contextKey = "auth_token"

// exemptPaths are served without authentication.
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// BearerAuthMiddleware validates the Authorization header against the
// configured API keys. With no keys configured all requests pass through;
// the bearer token is still captured so the caller context carries it.
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	keys := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			keys[k] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			token := bearerToken(r)

			if len(keys) > 0 {
				if token == "" {
					writeError(w, http.StatusUnauthorized, "unauthorized", "Missing bearer token")
					return
				}
				if _, ok := keys[token]; !ok {
					writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid bearer token")
					return
				}
			}

			if token != "" {
				r = r.WithContext(context.WithValue(r.Context(), authTokenKey, token))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// callerFromRequest builds the opaque caller identity forwarded to the core.
func callerFromRequest(r *http.Request) domain.CallerContext {
	caller := domain.CallerContext{
		RequestID: chiMiddleware.GetReqID(r.Context()),
	}
	if token, ok := r.Context().Value(authTokenKey).(string); ok {
		caller.Token = token
	}
	return caller
}
