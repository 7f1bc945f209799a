package middleware

import (
	"net/http"

	"github.com/Lixing-Zhang/storefront/internal/session"
	"github.com/Lixing-Zhang/storefront/pkg/logger"
	"go.uber.org/zap"
)

// Authenticator resolves an API key to a cashier identity
type Authenticator interface {
	Authenticate(key string) (session.Identity, bool)
}

// APIKeyAuth middleware validates the API key from the "api_key" header and
// stores the cashier identity in the request context
func APIKeyAuth(auth Authenticator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get("api_key")

			if apiKey == "" {
				writeError(w, http.StatusUnauthorized, "Unauthorized: API key required")
				return
			}

			id, ok := auth.Authenticate(apiKey)
			if !ok {
				writeError(w, http.StatusForbidden, "Forbidden: Invalid API key")
				return
			}

			ctx := session.WithIdentity(r.Context(), id)
			ctx = logger.WithContext(ctx, logger.FromContext(ctx).With(zap.String("cashier_id", id.CashierID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}
