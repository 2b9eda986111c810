package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/bher20/hausmeister/internal/storage"
)

type contextKey string

const (
	TokenContextKey contextKey = "token"
	RoleContextKey  contextKey = "role"
)

// Middleware resolves a Bearer token when one is presented. Requests
// without an Authorization header pass through unauthenticated;
// RequirePermission rejects those later.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "invalid authorization header", http.StatusUnauthorized)
			return
		}

		token, err := s.ValidateToken(r.Context(), parts[1])
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), TokenContextKey, token)
		ctx = context.WithValue(ctx, RoleContextKey, token.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePermission gates a handler behind an object/action grant. The
// token's role (not its user id) is the enforcement subject so API
// tokens can carry a narrower role than their owner.
func (s *Service) RequirePermission(obj, act string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := r.Context().Value(TokenContextKey).(*storage.Token)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		allowed, err := s.Enforce(token.Role, obj, act)
		if err != nil {
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		if !allowed {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
