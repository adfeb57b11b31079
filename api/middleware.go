package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"messenger-lab/auth"
	"messenger-lab/errors"
)

type contextKey struct{ name string }

// userIDKey carries the authenticated user's identity through the
// request context.
var userIDKey = &contextKey{"UserID"}

// RequireAuth validates the bearer token and injects the user identity
// into the request context for downstream handlers.
func RequireAuth(tokens *auth.TokenManager, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				fail(w, log, errors.ErrMissingToken, "missing authorization header")
				return
			}
			token := strings.TrimPrefix(header, "Bearer ")
			claims, err := tokens.Validate(token)
			if err != nil {
				fail(w, log, err, "token validation failed")
				return
			}
			ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requestUserID returns the identity set by RequireAuth.
func requestUserID(r *http.Request) string {
	userID, _ := r.Context().Value(userIDKey).(string)
	return userID
}
