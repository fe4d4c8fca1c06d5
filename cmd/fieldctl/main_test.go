package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/faciam-dev/crmfields/internal/server/reserved"
	"github.com/faciam-dev/crmfields/pkg/customfield"
)

// fakeAPI serves the field and record endpoints fieldctl talks to.
type fakeAPI struct {
	mu       sync.Mutex
	nextID   int64
	fields   map[customfield.EntityType][]customfield.FieldDefinition
	payloads []map[string]any
}

func newFakeAPI(t *testing.T, defs ...customfield.FieldDefinition) (*fakeAPI, string) {
	t.Helper()
	f := &fakeAPI{fields: map[customfield.EntityType][]customfield.FieldDefinition{}}
	for _, d := range defs {
		f.nextID++
		d.ID = f.nextID
		f.fields[d.EntityType] = append(f.fields[d.EntityType], d)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/fields/{et}", f.list)
	mux.HandleFunc("POST /v1/fields/{et}", f.create)
	mux.HandleFunc("PUT /v1/fields/{et}/{id}", f.update)
	mux.HandleFunc("DELETE /v1/fields/{et}/{id}", f.remove)
	mux.HandleFunc("POST /v1/records/{et}/payload", f.submit)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv.URL
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeAPI) list(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.fields[customfield.EntityType(r.PathValue("et"))]
	if out == nil {
		out = []customfield.FieldDefinition{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *fakeAPI) create(w http.ResponseWriter, r *http.Request) {
	var d customfield.FieldDefinition
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	d.ID = f.nextID
	d.EntityType = customfield.EntityType(r.PathValue("et"))
	f.fields[d.EntityType] = append(f.fields[d.EntityType], d)
	writeJSON(w, http.StatusCreated, d)
}

func (f *fakeAPI) update(w http.ResponseWriter, r *http.Request) {
	var d customfield.FieldDefinition
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	et := customfield.EntityType(r.PathValue("et"))
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, old := range f.fields[et] {
		if old.ID == id {
			d.ID, d.EntityType, d.FieldName = id, et, old.FieldName
			f.fields[et][i] = d
			writeJSON(w, http.StatusOK, d)
			return
		}
	}
	http.NotFound(w, r)
}

func (f *fakeAPI) remove(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	et := customfield.EntityType(r.PathValue("et"))
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, old := range f.fields[et] {
		if old.ID == id {
			f.fields[et] = append(f.fields[et][:i], f.fields[et][i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	http.NotFound(w, r)
}

func (f *fakeAPI) submit(w http.ResponseWriter, r *http.Request) {
	var p map[string]any
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.payloads = append(f.payloads, p)
	f.mu.Unlock()
	w.WriteHeader(http.StatusCreated)
}

func (f *fakeAPI) snapshot(et customfield.EntityType) []customfield.FieldDefinition {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]customfield.FieldDefinition(nil), f.fields[et]...)
}

// isolate keeps the user's config file and environment out of a test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, k := range []string{"CRM_CONFIG", "CRM_API_URL", "CRM_TOKEN", "CRM_DSN", "TABLE_PREFIX", "CRM_RESERVED_CONFIG", "CRM_RESERVED_FIELDS"} {
		t.Setenv(k, "")
	}
	t.Setenv("CRM_CONFIG", filepath.Join(t.TempDir(), "config.yaml"))
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	if testing.Verbose() && errOut.Len() > 0 {
		t.Log(errOut.String())
	}
	return out.String(), err
}

func api(url string, args ...string) []string {
	return append(args, "--api-url", url, "--token", "t")
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func captureExit(t *testing.T) *int {
	t.Helper()
	code := -1
	exitFunc = func(c int) { code = c }
	t.Cleanup(func() { exitFunc = os.Exit })
	return &code
}

const jobsFile = `version: "1.1"
entity: jobs
fields:
  - name: Field_1
    label: Industry
    type: select
    options: [IT, Health]
    sort: 1
  - name: remote
    label: Remote OK
    type: checkbox
    sort: 2
`

var industry = customfield.FieldDefinition{
	EntityType: customfield.Jobs,
	FieldName:  "Field_1",
	FieldLabel: "Industry",
	FieldType:  customfield.TypeSelect,
	Options:    []string{"IT", "Health"},
	SortOrder:  1,
}

func TestDiffReportsDrift(t *testing.T) {
	isolate(t)
	_, url := newFakeAPI(t, industry)
	code := captureExit(t)
	file := writeFile(t, "fields.yaml", jobsFile)

	out, err := run(t, api(url, "diff", "-f", file, "--format", "markdown", "--fail-on-change")...)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if !strings.HasPrefix(out, "```diff\n") {
		t.Fatalf("want markdown fence, got %q", out)
	}
	if !strings.Contains(out, "+ jobs.remote (checkbox)") {
		t.Fatalf("missing addition:\n%s", out)
	}
	if *code != 2 {
		t.Fatalf("exit code %d", *code)
	}
}

func TestApplyThenNoDrift(t *testing.T) {
	isolate(t)
	fake, url := newFakeAPI(t, industry, customfield.FieldDefinition{
		EntityType: customfield.Jobs, FieldName: "Field_2", FieldLabel: "Old", FieldType: customfield.TypeText, SortOrder: 3,
	})
	code := captureExit(t)
	file := writeFile(t, "fields.yaml", jobsFile)

	out, err := run(t, api(url, "apply", "-f", file)...)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !strings.Contains(out, "+1/-0/±0 applied") {
		t.Fatalf("unexpected summary %q", out)
	}
	if got := len(fake.snapshot(customfield.Jobs)); got != 3 {
		t.Fatalf("without --prune nothing is deleted, have %d fields", got)
	}

	out, err = run(t, api(url, "apply", "-f", file, "--prune")...)
	if err != nil {
		t.Fatalf("apply --prune: %v", err)
	}
	if !strings.Contains(out, "+0/-1/±0 applied") {
		t.Fatalf("unexpected summary %q", out)
	}

	out, err = run(t, api(url, "diff", "-f", file, "--fail-on-change")...)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if strings.TrimSpace(out) != "No field drift detected." {
		t.Fatalf("unexpected diff output %q", out)
	}
	if *code != -1 {
		t.Fatalf("exit called with %d", *code)
	}
}

func TestApplyDryRunLeavesStoreAlone(t *testing.T) {
	isolate(t)
	fake, url := newFakeAPI(t)
	file := writeFile(t, "fields.yaml", jobsFile)

	out, err := run(t, api(url, "apply", "-f", file, "--dry-run")...)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !strings.Contains(out, "+2/-0/±0 planned") {
		t.Fatalf("unexpected summary %q", out)
	}
	if n := len(fake.snapshot(customfield.Jobs)); n != 0 {
		t.Fatalf("dry run created %d fields", n)
	}
}

func TestFieldsCreateAndList(t *testing.T) {
	isolate(t)
	fake, url := newFakeAPI(t)

	if _, err := run(t, api(url, "fields", "create", "jobs", "--name", "Field_1", "--label", "Industry", "--type", "select", "--options", "IT,Health")...); err != nil {
		t.Fatalf("create: %v", err)
	}
	got := fake.snapshot(customfield.Jobs)
	if len(got) != 1 || got[0].FieldLabel != "Industry" || len(got[0].Options) != 2 {
		t.Fatalf("unexpected store %+v", got)
	}

	out, err := run(t, api(url, "fields", "list", "jobs", "--all", "--output", "json")...)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var listed []customfield.FieldDefinition
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(listed) != 1 || listed[0].FieldName != "Field_1" {
		t.Fatalf("unexpected list %+v", listed)
	}
}

func TestImportSubmitsRows(t *testing.T) {
	isolate(t)
	fake, url := newFakeAPI(t, industry)
	csv := writeFile(t, "jobs.csv", "Industry,Notes\nIT,x\n,\nHealth,y\n")

	out, err := run(t, api(url, "import", "jobs", csv)...)
	if err != nil {
		t.Fatalf("import: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Imported 2 of 2 rows (0 failed)") {
		t.Fatalf("unexpected summary %q", out)
	}
	if len(fake.payloads) != 2 {
		t.Fatalf("want 2 payloads, got %d", len(fake.payloads))
	}
	cf, _ := fake.payloads[0]["custom_fields"].(map[string]any)
	if cf["Field_1"] != "IT" {
		t.Fatalf("custom_fields = %v", fake.payloads[0]["custom_fields"])
	}
}

func TestImportDryRunWithMapping(t *testing.T) {
	isolate(t)
	required := industry
	required.IsRequired = true
	fake, url := newFakeAPI(t, required)
	csv := writeFile(t, "jobs.csv", "Sector,Notes\n,x\n")

	out, err := run(t, api(url, "import", "jobs", csv, "--dry-run", "--map", "Sector=Field_1")...)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "Sector") || !strings.Contains(out, "-> Field_1") {
		t.Fatalf("mapping not shown:\n%s", out)
	}
	if !strings.Contains(out, "0 of 1 rows valid") {
		t.Fatalf("missing required value not reported:\n%s", out)
	}
	if len(fake.payloads) != 0 {
		t.Fatal("dry run submitted rows")
	}

	if _, err := run(t, api(url, "import", "jobs", csv, "--map", "Missing=Field_1")...); err == nil {
		t.Fatal("want error for unknown column")
	}
}

func TestTemplateToStdout(t *testing.T) {
	isolate(t)
	_, url := newFakeAPI(t, industry)
	out, err := run(t, api(url, "template", "jobs", "-o", "-")...)
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	if !strings.Contains(out, "Industry") {
		t.Fatalf("header missing: %q", out)
	}
}

func TestValidateCommand(t *testing.T) {
	isolate(t)
	good := writeFile(t, "good.yaml", jobsFile)
	if out, err := run(t, "validate", "-f", good); err != nil || strings.TrimSpace(out) != "ok" {
		t.Fatalf("validate good: %q %v", out, err)
	}

	t.Cleanup(func() { reserved.Load("") })
	cfg := writeFile(t, "reserved.yaml", "reserved_fields: [\"^remote$\"]\n")
	if _, err := run(t, "validate", "-f", good, "--reserved", cfg); err == nil {
		t.Fatal("want error for reserved name")
	}
}

func TestCheckFieldFile(t *testing.T) {
	hidden := customfield.FieldDefinition{EntityType: customfield.Tasks, FieldName: "Field_1", FieldLabel: "Secret", FieldType: customfield.TypeText, IsHidden: true}
	a := customfield.FieldDefinition{EntityType: customfield.Leads, FieldName: "Field_1", FieldLabel: "A", FieldType: customfield.TypeText, Aliases: []string{"src"}}
	b := customfield.FieldDefinition{EntityType: customfield.Leads, FieldName: "Field_2", FieldLabel: "B", FieldType: customfield.TypeText, Aliases: []string{"SRC"}, Validator: "no-such-validator"}

	problems := checkFieldFile(map[customfield.EntityType][]customfield.FieldDefinition{
		customfield.Tasks: {hidden},
		customfield.Leads: {a, b},
	})
	want := []string{"unknown validator", `alias "SRC"`, "tasks: no visible fields"}
	for _, w := range want {
		found := false
		for _, p := range problems {
			if strings.Contains(p, w) {
				found = true
			}
		}
		if !found {
			t.Errorf("no problem mentioning %q in %q", w, problems)
		}
	}

	if p := checkFieldFile(nil); len(p) != 1 || p[0] != "file defines no entity" {
		t.Fatalf("empty file: %q", p)
	}
}

func TestParseMapping(t *testing.T) {
	got, err := parseMapping([]string{" Mobile = phone", "Notes=skip"})
	if err != nil {
		t.Fatal(err)
	}
	if got["Mobile"] != "phone" || got["Notes"] != "skip" {
		t.Fatalf("unexpected %v", got)
	}
	if _, err := parseMapping([]string{"nohint"}); err == nil {
		t.Fatal("want error without =")
	}
}

func TestUnknownOutputFormat(t *testing.T) {
	isolate(t)
	_, url := newFakeAPI(t, industry)
	if _, err := run(t, api(url, "fields", "list", "jobs", "--output", "xml")...); err == nil {
		t.Fatal("want error")
	}
}


func TestConfigProfiles(t *testing.T) {
	isolate(t)
	if _, err := run(t, "config", "set", "api-url", "https://crm.example.com", "--profile", "staging"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := run(t, "config", "use", "staging"); err != nil {
		t.Fatalf("use: %v", err)
	}
	out, err := run(t, "config", "get")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var got struct {
		Active string `json:"active"`
		APIURL string `json:"apiUrl"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if got.Active != "staging" || got.APIURL != "https://crm.example.com" {
		t.Fatalf("unexpected %+v", got)
	}
	if _, err := run(t, "config", "use", "missing"); err == nil {
		t.Fatal("want error for unknown profile")
	}
}

func TestTokenCommand(t *testing.T) {
	isolate(t)
	out, err := run(t, "token", "--subject", "alice", "--role", "user", "--secret", "s3cret")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if strings.Count(strings.TrimSpace(out), ".") != 2 {
		t.Fatalf("not a JWT: %q", out)
	}
}
