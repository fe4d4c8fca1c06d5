package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
)

type pingOutput struct {
	Body struct {
		RequestID string `json:"requestId"`
	}
}

func newAPI(mw ...func(huma.Context, func(huma.Context))) huma.API {
	api := humachi.New(chi.NewRouter(), huma.DefaultConfig("test", "1.0"))
	for _, m := range mw {
		api.UseMiddleware(m)
	}
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		huma.Register(api, huma.Operation{
			OperationID: "ping" + method,
			Method:      method,
			Path:        "/v1/fields/jobs",
		}, func(ctx context.Context, _ *struct{}) (*pingOutput, error) {
			out := &pingOutput{}
			out.Body.RequestID = RequestIDFromContext(ctx)
			return out, nil
		})
	}
	return api
}

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"/v1/fields/jobs/12":     "/v1/fields/jobs/:id",
		"/v1/field-history/3":    "/v1/field-history/:id",
		"/v1/records/jobs/7/val": "/v1/records/jobs/:id/val",
		"/v1/fields/jobs":        "/v1/fields/jobs",
	}
	for in, want := range cases {
		if got := normalizePath(in); got != want {
			t.Errorf("normalizePath(%q)=%q want %q", in, got, want)
		}
	}
}

func TestRequestID(t *testing.T) {
	api := newAPI(RequestID)

	req := httptest.NewRequest(http.MethodGet, "/v1/fields/jobs", nil)
	req.Header.Set(RequestIDHeader, "abc")
	w := httptest.NewRecorder()
	api.Adapter().ServeHTTP(w, req)
	if got := w.Header().Get(RequestIDHeader); got != "abc" {
		t.Fatalf("echoed id=%q", got)
	}

	w = httptest.NewRecorder()
	api.Adapter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/fields/jobs", nil))
	if w.Header().Get(RequestIDHeader) == "" {
		t.Fatal("expected generated id")
	}
}

func newEnforcer(t *testing.T) *casbin.Enforcer {
	t.Helper()
	m := model.NewModel()
	m.AddDef("r", "r", "sub, obj, act")
	m.AddDef("p", "p", "sub, obj, act")
	m.AddDef("g", "g", "_, _")
	m.AddDef("e", "e", "some(where (p.eft == allow))")
	m.AddDef("m", "m", "g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && (r.act == p.act || p.act == \"*\")")
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		t.Fatalf("enforcer: %v", err)
	}
	e.AddPolicy("admin", "/v1/*", "*")
	e.AddPolicy("user", "/v1/fields/*", "GET")
	return e
}

func TestRBAC(t *testing.T) {
	e := newEnforcer(t)
	withRole := func(role string) func(huma.Context, func(huma.Context)) {
		return func(ctx huma.Context, next func(huma.Context)) {
			r, w := humachi.Unwrap(ctx)
			c := WithRoles(WithUser(r.Context(), "u1"), role)
			next(humachi.NewContext(ctx.Operation(), r.WithContext(c), w))
		}
	}
	cases := []struct {
		role   string
		method string
		want   int
	}{
		{"admin", http.MethodPost, http.StatusOK},
		{"user", http.MethodGet, http.StatusOK},
		{"user", http.MethodPost, http.StatusForbidden},
	}
	for _, c := range cases {
		var api huma.API
		api = newAPI(withRole(c.role), func(ctx huma.Context, next func(huma.Context)) {
			RBAC(api, e, ContextRoles)(ctx, next)
		})
		w := httptest.NewRecorder()
		api.Adapter().ServeHTTP(w, httptest.NewRequest(c.method, "/v1/fields/jobs", nil))
		if w.Code != c.want {
			t.Errorf("%s %s: status %d want %d", c.role, c.method, w.Code, c.want)
		}
	}
}
