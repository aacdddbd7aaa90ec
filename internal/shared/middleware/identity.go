package middleware

import (
	"context"
	"net/http"

	"github.com/MJSteenberg/xfinance/internal/domain/user"
)

type ContextKey string

// UserIDKey carries the verified user id through the request context.
const UserIDKey ContextKey = "user_id"

// UserIDHeader is set by the authenticating front end. Session handling is
// out of scope here: the engine trusts the id but still re-derives the user
// from the identity store on every request, so a stale client-side cache
// can never act for a deleted user.
const UserIDHeader = "X-User-ID"

// Identity resolves the calling user and rejects requests without one.
func Identity(users user.Repository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := r.Header.Get(UserIDHeader)
			if userID == "" {
				http.Error(w, "Authentication required", http.StatusUnauthorized)
				return
			}

			u, err := users.GetByID(r.Context(), userID)
			if err != nil {
				http.Error(w, "Identity lookup failed", http.StatusServiceUnavailable)
				return
			}
			if u == nil {
				http.Error(w, "Unknown user", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, u.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID extracts the verified user id from a request context.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserIDKey).(string)
	return id, ok && id != ""
}
