package record

import (
	"bytes"
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	ormdriver "github.com/faciam-dev/goquent/orm/driver"
	"github.com/google/go-cmp/cmp"

	"github.com/faciam-dev/crmfields/internal/customfield/packager"
	"github.com/faciam-dev/crmfields/internal/logger"
	"github.com/faciam-dev/crmfields/pkg/customfield"
)

func TestRepoCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	mock.ExpectExec(`INSERT INTO .*crm_records`).WillReturnResult(sqlmock.NewResult(11, 1))

	r := &Repo{DB: db, Dialect: ormdriver.MySQLDialect{}}
	rec, err := r.Create(context.Background(), packager.Payload{
		EntityType:   customfield.Jobs,
		Columns:      map[string]any{"job_title": "Welder"},
		CustomFields: map[string]string{"Field_1": "x"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.ID != 11 {
		t.Fatalf("unexpected id %d", rec.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRepoListDecodesJSON(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery(`SELECT .*FROM .*crm_records`).WillReturnRows(
		sqlmock.NewRows([]string{"id", "entity_type", "columns_json", "custom_fields", "created_at", "updated_at"}).
			AddRow(1, "jobs", `{"job_title":"Welder"}`, `{"Field_1":"x"}`, ts, ts).
			AddRow(2, "jobs", `{}`, `[]`, ts, ts))

	r := &Repo{DB: db, Dialect: ormdriver.PostgresDialect{}}
	got, err := r.List(context.Background(), customfield.Jobs)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if diff := cmp.Diff(map[string]string{"Field_1": "x"}, got[0].CustomFields); diff != "" {
		t.Fatalf("custom fields mismatch (-want +got):\n%s", diff)
	}
	if got[0].Columns["job_title"] != "Welder" {
		t.Fatalf("unexpected columns %+v", got[0].Columns)
	}
	if got[1].CustomFields == nil || len(got[1].CustomFields) != 0 {
		t.Fatalf("non-object custom_fields should decode as empty, got %+v", got[1].CustomFields)
	}
}

func TestRecordMapAlwaysHasCustomFields(t *testing.T) {
	m := Record{ID: 3, Columns: map[string]any{"name": "Acme"}}.Map()
	if _, ok := m["custom_fields"].(map[string]string); !ok || m["id"] != int64(3) {
		t.Fatalf("unexpected map %+v", m)
	}
}

func TestRecordRowCorruptJSONIsLogged(t *testing.T) {
	var buf bytes.Buffer
	prev := logger.L
	logger.Set(logger.New(&buf, "text", "warn"))
	t.Cleanup(func() { logger.L = prev })

	row := recordRow{
		ID: 8, EntityType: "leads",
		Columns:      sql.NullString{String: `{"name":`, Valid: true},
		CustomFields: sql.NullString{String: `{"Field_1":"Gold"}`, Valid: true},
	}
	rec := row.record()
	if len(rec.Columns) != 0 || rec.CustomFields["Field_1"] != "Gold" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if out := buf.String(); !strings.Contains(out, "corrupt record columns") || !strings.Contains(out, "id=8") {
		t.Fatalf("expected warning, got %q", out)
	}
}
