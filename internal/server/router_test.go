package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/danielgtaylor/huma/v2"

	"github.com/faciam-dev/crmfields/internal/auth"
	"github.com/faciam-dev/crmfields/internal/logger"
	"github.com/faciam-dev/crmfields/internal/record"
)

const testSecret = "test-secret"

func newTestAPI(t *testing.T) huma.API {
	t.Helper()
	t.Setenv("JWT_SECRET", testSecret)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	api, err := New(ctx, nil, Config{Driver: "memory"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return api
}

func token(t *testing.T, role string) string {
	t.Helper()
	tok, err := auth.NewJWT(testSecret, time.Minute).Generate("u-"+role, role)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func do(api huma.API, method, path, tok, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	api.Adapter().ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	api := newTestAPI(t)
	if w := do(api, http.MethodGet, "/v1/fields/jobs", "", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("status %d", w.Code)
	}
}

func TestCookieToken(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/fields/jobs", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token(t, "user")})
	w := httptest.NewRecorder()
	api.Adapter().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d body=%s", w.Code, w.Body.String())
	}
}

func TestFieldLifecycle(t *testing.T) {
	api := newTestAPI(t)
	admin, user := token(t, "admin"), token(t, "user")

	w := do(api, http.MethodGet, "/v1/fields/job-seekers", user, "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status %d", w.Code)
	}
	var std []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &std); err != nil {
		t.Fatal(err)
	}
	if len(std) != 7 || std[0]["fieldName"] != "firstName" {
		t.Fatalf("unexpected standard fields: %v", std)
	}

	body := `{"fieldLabel":"Priority Score","fieldType":"number"}`
	if w := do(api, http.MethodPost, "/v1/fields/tasks", user, body); w.Code != http.StatusForbidden {
		t.Fatalf("user create status %d", w.Code)
	}
	w = do(api, http.MethodPost, "/v1/fields/tasks", admin, body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status %d body=%s", w.Code, w.Body.String())
	}
	var created map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created["fieldName"] != "Field_1" {
		t.Fatalf("fieldName=%v", created["fieldName"])
	}

	w = do(api, http.MethodGet, "/v1/fields/tasks/next-name", admin, "")
	if !strings.Contains(w.Body.String(), "Field_2") {
		t.Fatalf("next-name body=%s", w.Body.String())
	}

	reservedBody := `{"fieldName":"id","fieldLabel":"Id","fieldType":"text"}`
	if w := do(api, http.MethodPost, "/v1/fields/tasks", admin, reservedBody); w.Code != http.StatusConflict {
		t.Fatalf("reserved status %d", w.Code)
	}
	if w := do(api, http.MethodDelete, "/v1/fields/tasks/999", admin, ""); w.Code != http.StatusNotFound {
		t.Fatalf("delete missing status %d", w.Code)
	}
	if w := do(api, http.MethodGet, "/v1/fields/unknown", admin, ""); w.Code != http.StatusNotFound {
		t.Fatalf("unknown entity status %d", w.Code)
	}
}

func TestRecordsImportExport(t *testing.T) {
	api := newTestAPI(t)
	user := token(t, "user")

	missing := `{"values":{"firstName":"Ada","lastName":"Lovelace"}}`
	w := do(api, http.MethodPost, "/v1/records/job-seekers", user, missing)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid record status %d body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "body.values.email") {
		t.Fatalf("missing field detail: %s", w.Body.String())
	}

	ok := `{"values":{"firstName":"Ada","lastName":"Lovelace","email":"ada@example.com"}}`
	w = do(api, http.MethodPost, "/v1/records/job-seekers", user, ok)
	if w.Code != http.StatusCreated {
		t.Fatalf("create record status %d body=%s", w.Code, w.Body.String())
	}
	var rec map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatal(err)
	}
	if rec["first_name"] != "Ada" {
		t.Fatalf("record=%v", rec)
	}
	if _, ok := rec["custom_fields"].(map[string]any); !ok {
		t.Fatalf("custom_fields missing: %v", rec)
	}

	w = do(api, http.MethodGet, "/v1/imports/job-seekers/template", user, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Header().Get("Content-Disposition"), "JobSeeker_Template.csv") {
		t.Fatalf("template status %d headers=%v", w.Code, w.Header())
	}

	csv := "First Name,Last Name,Email\nGrace,Hopper,grace@example.com\nAlan,,alan@example.com\n"
	payload, _ := json.Marshal(map[string]any{"csv": csv})
	w = do(api, http.MethodPost, "/v1/imports/job-seekers", user, string(payload))
	if w.Code != http.StatusOK {
		t.Fatalf("import status %d body=%s", w.Code, w.Body.String())
	}
	var sum struct {
		Total, Successful, Failed int
		Errors                    []string
	}
	if err := json.Unmarshal(w.Body.Bytes(), &sum); err != nil {
		t.Fatal(err)
	}
	if sum.Total != 2 || sum.Successful != 1 || sum.Failed != 1 {
		t.Fatalf("summary=%+v", sum)
	}
	if len(sum.Errors) != 1 || !strings.HasPrefix(sum.Errors[0], "Row 3") {
		t.Fatalf("errors=%v", sum.Errors)
	}

	w = do(api, http.MethodGet, "/v1/exports/job-seekers?format=csv", user, "")
	if w.Code != http.StatusOK {
		t.Fatalf("export status %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"Grace"`) {
		t.Fatalf("export body=%s", w.Body.String())
	}
}

func TestMe(t *testing.T) {
	api := newTestAPI(t)
	w := do(api, http.MethodGet, "/v1/auth/me", token(t, "user"), "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var me struct {
		Capabilities map[string]bool `json:"capabilities"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &me); err != nil {
		t.Fatal(err)
	}
	if !me.Capabilities["fields:list"] || me.Capabilities["fields:create"] {
		t.Fatalf("caps=%v", me.Capabilities)
	}
}

func TestRecordStoreWithoutSQL(t *testing.T) {
	var buf bytes.Buffer
	prev := logger.L
	logger.Set(logger.New(&buf, "text", "warn"))
	t.Cleanup(func() { logger.L = prev })

	st, rec := newRecordStore(nil, Config{Driver: "mongo"})
	if _, ok := st.(*record.MemoryStore); !ok || rec != nil {
		t.Fatalf("expected memory store without recorder, got %T %v", st, rec)
	}
	if out := buf.String(); !strings.Contains(out, "in-memory record store") || !strings.Contains(out, "driver=mongo") {
		t.Fatalf("expected warning, got %q", out)
	}

	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	st, rec = newRecordStore(db, Config{Driver: "postgres", TablePrefix: "ats_"})
	if repo, ok := st.(*record.Repo); !ok || repo.TablePrefix != "ats_" || rec == nil {
		t.Fatalf("expected SQL store, got %T %v", st, rec)
	}
}
