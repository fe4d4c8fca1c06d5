package registry

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	ormdriver "github.com/faciam-dev/goquent/orm/driver"
	"github.com/google/go-cmp/cmp"

	"github.com/faciam-dev/crmfields/internal/logger"
	"github.com/faciam-dev/crmfields/pkg/customfield"
)

var fieldCols = []string{
	"id", "entity_type", "field_name", "field_label", "field_type", "is_required", "is_hidden",
	"options", "placeholder", "default_value", "sort_order", "validator", "aliases",
}

func TestRepoFieldsDecodesJSONColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows(fieldCols).
		AddRow(1, "jobs", "Field_1", "Shift", "select", true, false, `["Day","Night"]`, nil, "Day", 1, nil, `["shift pattern"]`).
		AddRow(2, "jobs", "Field_2", "Notes", "textarea", false, true, nil, "…", nil, 2, nil, nil)
	mock.ExpectQuery(`SELECT .*FROM .*crm_field_definitions`).WillReturnRows(rows)

	r := &Repo{DB: db, Dialect: ormdriver.PostgresDialect{}}
	got, err := r.Fields(context.Background(), customfield.Jobs)
	if err != nil {
		t.Fatalf("Fields: %v", err)
	}
	want := []customfield.FieldDefinition{
		{ID: 1, EntityType: customfield.Jobs, FieldName: "Field_1", FieldLabel: "Shift", FieldType: customfield.TypeSelect,
			IsRequired: true, Options: []string{"Day", "Night"}, DefaultValue: "Day", SortOrder: 1, Aliases: []string{"shift pattern"}},
		{ID: 2, EntityType: customfield.Jobs, FieldName: "Field_2", FieldLabel: "Notes", FieldType: customfield.TypeTextarea,
			IsHidden: true, Placeholder: "…", SortOrder: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRepoCreateGeneratesName(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT .*FROM .*crm_field_definitions`).WillReturnRows(
		sqlmock.NewRows(fieldCols).
			AddRow(4, "leads", "Field_1", "A", "text", false, false, nil, nil, nil, 1, nil, nil).
			AddRow(5, "leads", "Field_3", "B", "text", false, false, nil, nil, nil, 2, nil, nil))
	mock.ExpectExec(`INSERT INTO .*crm_field_definitions`).WillReturnResult(sqlmock.NewResult(6, 1))

	r := &Repo{DB: db, Dialect: ormdriver.MySQLDialect{}}
	d, err := r.Create(context.Background(), customfield.FieldDefinition{EntityType: customfield.Leads, FieldLabel: "C", FieldType: customfield.TypeText})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if d.ID != 6 || d.FieldName != "Field_4" {
		t.Fatalf("unexpected definition: %+v", d)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRepoCreateRejectsDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT .*FROM .*crm_field_definitions`).WillReturnRows(
		sqlmock.NewRows(fieldCols).AddRow(4, "leads", "source", "Source", "text", false, false, nil, nil, nil, 1, nil, nil))

	r := &Repo{DB: db, Dialect: ormdriver.MySQLDialect{}}
	_, err = r.Create(context.Background(), customfield.FieldDefinition{EntityType: customfield.Leads, FieldName: "source", FieldType: customfield.TypeText})
	if !errors.Is(err, customfield.ErrDuplicateField) {
		t.Fatalf("expected ErrDuplicateField, got %v", err)
	}
}

func TestRepoCountByEntity(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT .*COUNT\(\*\).*FROM .*field_definitions`).WillReturnRows(
		sqlmock.NewRows([]string{"entity_type", "cnt"}).AddRow("jobs", 3).AddRow("leads", 1))

	r := &Repo{DB: db, Dialect: ormdriver.PostgresDialect{}, TablePrefix: "x_"}
	got, err := r.CountByEntity(context.Background())
	if err != nil {
		t.Fatalf("CountByEntity: %v", err)
	}
	if diff := cmp.Diff(map[string]int{"jobs": 3, "leads": 1}, got); diff != "" {
		t.Fatalf("counts mismatch (-want +got):\n%s", diff)
	}
}

func TestRepoNotInitialized(t *testing.T) {
	var r *Repo
	if _, err := r.Fields(context.Background(), customfield.Jobs); err == nil {
		t.Fatalf("expected error")
	}
}

func TestFieldRowCorruptJSONIsLogged(t *testing.T) {
	var buf bytes.Buffer
	prev := logger.L
	logger.Set(logger.New(&buf, "text", "warn"))
	t.Cleanup(func() { logger.L = prev })

	row := fieldRow{
		ID: 3, EntityType: "jobs", FieldName: "Field_1", FieldType: "select",
		Options: sql.NullString{String: `["Day",`, Valid: true},
		Aliases: sql.NullString{String: `["shift"]`, Valid: true},
	}
	d := row.definition()
	if d.Options != nil || !cmp.Equal(d.Aliases, []string{"shift"}) {
		t.Fatalf("unexpected definition %+v", d)
	}
	out := buf.String()
	if !strings.Contains(out, "corrupt field options") || !strings.Contains(out, "field=Field_1") {
		t.Fatalf("expected warning, got %q", out)
	}
}
