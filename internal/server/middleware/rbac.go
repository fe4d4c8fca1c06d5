package middleware

import (
	"context"
	"net/http"

	"github.com/casbin/casbin/v2"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
)

type RoleResolver func(ctx context.Context, user string) ([]string, error)

// RBAC enforces access where either the user or any of their roles is allowed.
func RBAC(api huma.API, enf *casbin.Enforcer, resolve RoleResolver) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		r, _ := humachi.Unwrap(ctx)
		sub := UserFromContext(r.Context())
		subjects := []string{sub}
		if resolve != nil {
			if roles, err := resolve(r.Context(), sub); err == nil && len(roles) > 0 {
				subjects = append(subjects, roles...)
			}
		}
		for _, s := range subjects {
			if ok, _ := enf.Enforce(s, r.URL.Path, r.Method); ok {
				next(ctx)
				return
			}
		}
		huma.WriteErr(api, ctx, http.StatusForbidden, "forbidden")
	}
}

// ContextRoles resolves roles from the request context.
func ContextRoles(ctx context.Context, _ string) ([]string, error) {
	return RolesFromContext(ctx), nil
}
