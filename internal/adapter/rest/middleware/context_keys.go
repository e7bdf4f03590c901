package middleware

import "context"

type ContextKey string

// UserIDCtxKey holds the authenticated user id set by JWTAuth.
const UserIDCtxKey = ContextKey("user_id")

// UserIDFromContext returns the id stored by JWTAuth, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserIDCtxKey).(string)
	return id, ok && id != ""
}
