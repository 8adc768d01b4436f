// Package middleware provides the HTTP middleware chain: session auth,
// admin gating, request logging, rate limiting, and security headers.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/hookboard/hookboard/internal/auth"
	"github.com/hookboard/hookboard/internal/user"
)

type contextKey string

const userIDKey contextKey = "userID"

// Auth returns middleware that requires a valid session, via the session
// cookie (web UI) or a Bearer token (API clients).
func Auth(authService *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}

			userID, err := authService.ValidateSession(r.Context(), token)
			if err != nil {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin returns middleware that rejects non-admin callers. It must
// run inside Auth.
func RequireAdmin(users *user.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := UserIDFromContext(r.Context())
			ok, err := users.IsAdmin(r.Context(), userID)
			if err != nil || !ok {
				http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserIDFromContext extracts the authenticated user ID from the context.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// WithUserID returns a context carrying the given user ID (for testing).
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func extractToken(r *http.Request) string {
	// Cookie first (web UI)
	if cookie, err := r.Cookie("session"); err == nil {
		return cookie.Value
	}

	// Authorization header (API clients)
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}

	return ""
}
