package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/danielgtaylor/huma/v2"

	sm "github.com/faciam-dev/crmfields/internal/server/middleware"
)

// Handler serves token refresh and capability lookups for the caller.
type Handler struct {
	JWT *JWT
	Enf *casbin.Enforcer
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type tokenOutput struct {
	Body tokenResponse
}

// Capabilities maps an action name to whether the caller may perform it.
type Capabilities map[string]bool

type meOutput struct {
	Body struct {
		Subject      string       `json:"subject"`
		Roles        []string     `json:"roles"`
		Capabilities Capabilities `json:"capabilities"`
	}
}

var capMatrix = map[string]struct{ Path, Method string }{
	"fields:list":    {"/v1/fields/jobs", http.MethodGet},
	"fields:create":  {"/v1/fields/jobs", http.MethodPost},
	"fields:update":  {"/v1/fields/jobs/1", http.MethodPut},
	"fields:delete":  {"/v1/fields/jobs/1", http.MethodDelete},
	"fields:history": {"/v1/field-history/1", http.MethodGet},
	"records:write":  {"/v1/records/jobs", http.MethodPost},
	"imports:run":    {"/v1/imports/jobs", http.MethodPost},
	"exports:read":   {"/v1/exports/jobs", http.MethodGet},
}

func Register(api huma.API, h *Handler) {
	huma.Register(api, huma.Operation{
		OperationID: "refresh",
		Method:      http.MethodPost,
		Path:        "/v1/auth/refresh",
		Summary:     "Refresh token",
		Tags:        []string{"Auth"},
	}, h.refresh)
	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/v1/auth/me",
		Summary:     "Caller identity and capabilities",
		Tags:        []string{"Auth"},
	}, h.me)
}

type emptyInput struct{}

func (h *Handler) refresh(ctx context.Context, _ *emptyInput) (*tokenOutput, error) {
	sub := sm.UserFromContext(ctx)
	if sub == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}
	role := ""
	if c := ClaimsFromContext(ctx); c != nil {
		role = c.Role
	}
	tok, err := h.JWT.Generate(sub, role)
	if err != nil {
		return nil, err
	}
	return &tokenOutput{Body: tokenResponse{AccessToken: tok, ExpiresAt: time.Now().Add(h.JWT.TTL())}}, nil
}

func (h *Handler) me(ctx context.Context, _ *emptyInput) (*meOutput, error) {
	out := &meOutput{}
	out.Body.Subject = sm.UserFromContext(ctx)
	out.Body.Roles = sm.RolesFromContext(ctx)
	out.Body.Capabilities = Capabilities{}
	subjects := append([]string{out.Body.Subject}, out.Body.Roles...)
	for name, c := range capMatrix {
		allowed := false
		if h.Enf != nil {
			for _, s := range subjects {
				if ok, _ := h.Enf.Enforce(s, c.Path, c.Method); ok {
					allowed = true
					break
				}
			}
		}
		out.Body.Capabilities[name] = allowed
	}
	return out, nil
}
