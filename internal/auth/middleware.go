package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"

	sm "github.com/faciam-dev/crmfields/internal/server/middleware"
)

// CookieName is the cookie read when no Authorization header is sent.
const CookieName = "token"

// TokenFromRequest returns the bearer token of r, preferring the
// Authorization header over the token cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

// Middleware validates JWT tokens and stores the subject and role in context.
func Middleware(api huma.API, j *JWT) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		r, w := humachi.Unwrap(ctx)
		token := TokenFromRequest(r)
		if token == "" {
			huma.WriteErr(api, ctx, http.StatusUnauthorized, "unauthorized")
			return
		}
		claims, err := j.Validate(token)
		if err != nil {
			huma.WriteErr(api, ctx, http.StatusUnauthorized, "unauthorized")
			return
		}
		c := sm.WithUser(r.Context(), claims.Subject)
		if claims.Role != "" {
			c = sm.WithRoles(c, claims.Role)
		}
		c = context.WithValue(c, sm.ClaimsKey(), claims)
		r = r.WithContext(c)
		next(humachi.NewContext(ctx.Operation(), r, w))
	}
}

// ClaimsFromContext returns the JWT claims stored in context, if any.
func ClaimsFromContext(ctx context.Context) *Claims {
	if c, ok := ctx.Value(sm.ClaimsKey()).(*Claims); ok {
		return c
	}
	return nil
}
