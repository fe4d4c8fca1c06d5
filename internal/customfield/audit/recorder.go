package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	ormdriver "github.com/faciam-dev/goquent/orm/driver"
	"github.com/faciam-dev/goquent/orm/query"

	"github.com/faciam-dev/crmfields/pkg/customfield"
	"github.com/faciam-dev/crmfields/pkg/metrics"
)

// Action names stored in the history table.
const (
	ActionAdd    = "add"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Entry is one change of a field definition.
type Entry struct {
	ID         int64     `json:"id" db:"id"`
	FieldID    int64     `json:"fieldId" db:"field_id"`
	EntityType string    `json:"entityType" db:"entity_type"`
	FieldName  string    `json:"fieldName" db:"field_name"`
	Actor      string    `json:"actor" db:"actor"`
	Action     string    `json:"action" db:"action"`
	Before     string    `json:"before,omitempty" db:"before_json"`
	After      string    `json:"after,omitempty" db:"after_json"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	Diff       string    `json:"diff,omitempty" db:"-"`
}

// Recorder writes field history rows.
type Recorder struct {
	DB          *sql.DB
	Dialect     ormdriver.Dialect
	TablePrefix string
	Now         func() time.Time
}

func (r *Recorder) table() string {
	p := r.TablePrefix
	if p == "" {
		p = "crm_"
	}
	return p + "field_history"
}

func (r *Recorder) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}

// Write records a single field change. A nil old means the field was added,
// a nil new means it was deleted. A nil Recorder is a no-op.
func (r *Recorder) Write(ctx context.Context, actor string, old, new *customfield.FieldDefinition) error {
	if r == nil || r.DB == nil {
		return nil
	}
	action := ActionUpdate
	switch {
	case old == nil && new != nil:
		action = ActionAdd
	case old != nil && new == nil:
		action = ActionDelete
	case old == nil && new == nil:
		return fmt.Errorf("audit: nothing to record")
	}
	ref := new
	if ref == nil {
		ref = old
	}
	data := map[string]any{
		"field_id":    ref.ID,
		"entity_type": string(ref.EntityType),
		"field_name":  ref.FieldName,
		"actor":       actor,
		"action":      action,
		"before_json": marshal(old),
		"after_json":  marshal(new),
		"created_at":  r.now(),
	}
	_, err := query.New(r.DB, r.table(), r.Dialect).WithContext(ctx).InsertGetId(data)
	if err != nil {
		metrics.AuditErrors.WithLabelValues(action).Inc()
		return err
	}
	metrics.AuditEvents.WithLabelValues(action).Inc()
	return nil
}

func marshal(d *customfield.FieldDefinition) any {
	if d == nil {
		return nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil
	}
	return string(b)
}

// History returns the changes of fieldID, oldest first, each with a unified
// diff of its before and after documents.
func (r *Recorder) History(ctx context.Context, fieldID int64) ([]Entry, error) {
	if r == nil || r.DB == nil {
		return nil, fmt.Errorf("recorder not initialized")
	}
	type row struct {
		ID         int64          `db:"id"`
		FieldID    int64          `db:"field_id"`
		EntityType string         `db:"entity_type"`
		FieldName  string         `db:"field_name"`
		Actor      string         `db:"actor"`
		Action     string         `db:"action"`
		Before     sql.NullString `db:"before_json"`
		After      sql.NullString `db:"after_json"`
		CreatedAt  time.Time      `db:"created_at"`
	}
	var rows []row
	q := query.New(r.DB, r.table(), r.Dialect).
		Select("id", "field_id", "entity_type", "field_name", "actor", "action", "before_json", "after_json", "created_at").
		Where("field_id", fieldID).
		OrderBy("id", "asc").
		WithContext(ctx)
	if err := q.Get(&rows); err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(rows))
	for _, rw := range rows {
		e := Entry{
			ID: rw.ID, FieldID: rw.FieldID, EntityType: rw.EntityType, FieldName: rw.FieldName,
			Actor: rw.Actor, Action: rw.Action, Before: rw.Before.String, After: rw.After.String,
			CreatedAt: rw.CreatedAt,
		}
		e.Diff = UnifiedDiff([]byte(e.Before), []byte(e.After))
		out = append(out, e)
	}
	return out, nil
}
