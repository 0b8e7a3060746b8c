package middleware

import (
	"context"
	"net/http"
	"strings"
)

// UserIDHeader carries the caller's user id. Authentication happens upstream.
const UserIDHeader = "X-User-ID"

// DefaultUserID is used when no user header is present (single-user setups).
const DefaultUserID = "local"

type userKey struct{}

// User stores the X-User-ID header value in the request context.
func User(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if id == "" {
			id = DefaultUserID
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
	})
}

// WithUserID returns a context carrying the user id.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userKey{}, id)
}

// UserID returns the user id from the context, or DefaultUserID.
func UserID(ctx context.Context) string {
	if id, ok := ctx.Value(userKey{}).(string); ok && id != "" {
		return id
	}
	return DefaultUserID
}
