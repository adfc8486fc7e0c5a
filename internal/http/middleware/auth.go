package middleware

import (
	"net/http"
	"strings"

	"github.com/wolfman30/careconnect/internal/accounts"
)

// Authenticate verifies a bearer token and stores its claims on the request
// context. Requests without a valid token are rejected with 401.
func Authenticate(tokens *accounts.TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokens == nil {
				http.Error(w, "auth disabled", http.StatusUnauthorized)
				return
			}
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			claims, err := tokens.Parse(strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(accounts.WithClaims(r.Context(), claims)))
		})
	}
}

// RequireRole authenticates the request and rejects callers whose role is
// not in roles with 403.
func RequireRole(tokens *accounts.TokenIssuer, roles ...accounts.Role) func(http.Handler) http.Handler {
	allowed := make(map[accounts.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	authenticate := Authenticate(tokens)
	return func(next http.Handler) http.Handler {
		return authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := accounts.ClaimsFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if _, ok := allowed[claims.Role]; !ok {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}
