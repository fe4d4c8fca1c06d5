package events

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	ormdriver "github.com/faciam-dev/goquent/orm/driver"
)

func TestSQLDLQ(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	q := &SQLDLQ{DB: db, Dialect: ormdriver.PostgresDialect{}, TablePrefix: "ats_"}
	ctx := context.Background()

	mock.ExpectQuery(`INSERT INTO .*ats_events_failed.*RETURNING`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	e := New(FieldCreated, "jobs", map[string]any{"fieldName": "Field_1"})
	if err := q.Store(ctx, e, 3, "timeout"); err != nil {
		t.Fatalf("store: %v", err)
	}

	payload := `{"id":"x","name":"field.created","entity":"jobs","time":"2025-01-02T00:00:00Z","data":{"fieldName":"Field_1"}}`
	rows := sqlmock.NewRows([]string{"id", "name", "payload", "attempts", "last_error", "created_at"}).
		AddRow(1, FieldCreated, payload, 3, "timeout", time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))
	mock.ExpectQuery(`SELECT .*FROM .*ats_events_failed`).WillReturnRows(rows)
	list, err := q.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Attempts != 3 {
		t.Fatalf("list=%+v", list)
	}
	ev, err := list[0].Event()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Name != FieldCreated || ev.Entity != "jobs" {
		t.Fatalf("event=%+v", ev)
	}

	mock.ExpectExec(`DELETE FROM .*ats_events_failed`).WillReturnResult(sqlmock.NewResult(0, 1))
	if err := q.Remove(ctx, 1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
