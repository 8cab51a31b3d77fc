package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lennythecreator/sphinx/pkg/api/response"
	"github.com/lennythecreator/sphinx/pkg/logger"
)

type claimsKey struct{}

type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

// Middleware rejects requests without a valid bearer token and stores the
// verified claims on the request context.
func Middleware(verifier TokenVerifier, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			response.Error(w, http.StatusUnauthorized, "Unauthorized.")
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			slog.DebugContext(r.Context(), "Rejecting invalid token", logger.Err(err))
			response.Error(w, http.StatusUnauthorized, "Unauthorized.")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClaimsFromContext returns the verified claims set by Middleware, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*Claims)
	return claims, ok
}
