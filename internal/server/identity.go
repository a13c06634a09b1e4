package server

import "context"

type userIDKey struct{}

// WithUserID stores the authenticated user id on ctx.
func WithUserID(ctx context.Context, id uint64) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

// UserIDFromContext returns the id set by the auth interceptor.
func UserIDFromContext(ctx context.Context) (uint64, bool) {
	id, ok := ctx.Value(userIDKey{}).(uint64)
	return id, ok && id != 0
}
