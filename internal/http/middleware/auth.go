package middleware

import (
	"context"
	"net/http"

	"chat-backend/internal/response"
	"chat-backend/pkg/security"
)

type contextKey struct{}

var claimsKey contextKey

// RequireJWT rejects requests without a valid bearer token and stores the
// typed claims in the request context.
func RequireJWT(cfg security.JWTConfig, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := security.FromAuthHeader(cfg, r)
		if err != nil {
			response.WriteErr(w, http.StatusUnauthorized, "invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// ClaimsFrom returns the claims RequireJWT stored for this request.
func ClaimsFrom(r *http.Request) (*security.AccessClaims, bool) {
	claims, ok := r.Context().Value(claimsKey).(*security.AccessClaims)
	return claims, ok
}
