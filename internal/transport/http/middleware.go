package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/livechat/internal/auth"
)

type contextKey string

// ContextKeyIdentity is the request context key for an identity taken from the Authorization header.
const ContextKeyIdentity contextKey = "identity"

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// IdentityFromContext returns the identity stored by BearerMiddleware, if any.
func IdentityFromContext(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(ContextKeyIdentity).(auth.Identity)
	return id, ok
}

// BearerMiddleware accepts an optional "Authorization: Bearer <token>" header on the
// WebSocket upgrade. A valid token is stored as the identity for the connection; a
// malformed or invalid one is refused before the upgrade.
//
// It wraps a plain http.Handler: the upgrade must see the raw ResponseWriter.
func BearerMiddleware(authService *auth.Service, logger *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !authService.TokensRequired() {
				next.ServeHTTP(w, r)
				return
			}

			// Extract token from "Bearer <token>"
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				logger.Debug().Msg("invalid authorization header format")
				writeJSONError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			identity, err := authService.Authenticate(parts[1], "", "")
			if err != nil {
				logger.Debug().Err(err).Msg("invalid token")
				writeJSONError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ContextKeyIdentity, identity)))
		})
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: msg})
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Process request
		c.Next()

		// Log after request
		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}
