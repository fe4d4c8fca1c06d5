package middleware

import "context"

// ctxKey is used for storing values in request context.
type ctxKey string

const (
	userKey      ctxKey = "user"
	rolesKey     ctxKey = "roles"
	claimsKey    ctxKey = "claims"
	requestIDKey ctxKey = "request_id"
)

// ClaimsKey returns the context key used to store JWT claims.
func ClaimsKey() any { return claimsKey }

// WithUser stores the authenticated subject.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the user subject stored in the context.
func UserFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userKey).(string); ok {
		return v
	}
	return ""
}

// WithRoles stores the roles of the authenticated subject.
func WithRoles(ctx context.Context, roles ...string) context.Context {
	return context.WithValue(ctx, rolesKey, roles)
}

// RolesFromContext returns the roles stored in the context.
func RolesFromContext(ctx context.Context) []string {
	if v, ok := ctx.Value(rolesKey).([]string); ok {
		return v
	}
	return nil
}

// RequestIDFromContext returns the request id set by RequestID.
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}
