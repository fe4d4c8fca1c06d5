package record

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	ormdriver "github.com/faciam-dev/goquent/orm/driver"
	"github.com/faciam-dev/goquent/orm/query"

	"github.com/faciam-dev/crmfields/internal/customfield/packager"
	"github.com/faciam-dev/crmfields/internal/logger"
	"github.com/faciam-dev/crmfields/pkg/customfield"
)

// Repo stores records of every entity type in one SQL table. Fixed columns
// and custom_fields are kept as JSON documents.
type Repo struct {
	DB          *sql.DB
	Dialect     ormdriver.Dialect
	TablePrefix string
	Now         func() time.Time
}

type recordRow struct {
	ID           int64          `db:"id"`
	EntityType   string         `db:"entity_type"`
	Columns      sql.NullString `db:"columns_json"`
	CustomFields sql.NullString `db:"custom_fields"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (r recordRow) record() Record {
	rec := Record{
		ID:           r.ID,
		EntityType:   customfield.EntityType(r.EntityType),
		Columns:      map[string]any{},
		CustomFields: map[string]string{},
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.Columns.Valid && r.Columns.String != "" {
		if err := json.Unmarshal([]byte(r.Columns.String), &rec.Columns); err != nil {
			rec.Columns = map[string]any{}
			logger.L.Warn("corrupt record columns", "entity", r.EntityType, "id", r.ID, "err", err)
		}
	}
	if r.CustomFields.Valid && r.CustomFields.String != "" {
		var p packager.Payload
		if err := json.Unmarshal([]byte(`{"custom_fields":`+r.CustomFields.String+`}`), &p); err != nil {
			logger.L.Warn("corrupt record custom_fields", "entity", r.EntityType, "id", r.ID, "err", err)
		} else {
			rec.CustomFields = p.CustomFields
		}
	}
	return rec
}

func (r *Repo) table() string {
	p := r.TablePrefix
	if p == "" {
		p = "crm_"
	}
	return p + "records"
}

func (r *Repo) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}

func (r *Repo) ready() error {
	if r == nil || r.DB == nil {
		return fmt.Errorf("repo not initialized")
	}
	return nil
}

func encode(p packager.Payload) (string, string, error) {
	cols, err := json.Marshal(p.Columns)
	if err != nil {
		return "", "", err
	}
	cf := p.CustomFields
	if cf == nil {
		cf = map[string]string{}
	}
	cfb, err := json.Marshal(cf)
	if err != nil {
		return "", "", err
	}
	return string(cols), string(cfb), nil
}

func (r *Repo) Create(ctx context.Context, p packager.Payload) (Record, error) {
	if err := r.ready(); err != nil {
		return Record{}, err
	}
	cols, cf, err := encode(p)
	if err != nil {
		return Record{}, err
	}
	now := r.now()
	id, err := query.New(r.DB, r.table(), r.Dialect).WithContext(ctx).InsertGetId(map[string]any{
		"entity_type":   string(p.EntityType),
		"columns_json":  cols,
		"custom_fields": cf,
		"created_at":    now,
		"updated_at":    now,
	})
	if err != nil {
		return Record{}, err
	}
	return Record{ID: id, EntityType: p.EntityType, Columns: p.Columns, CustomFields: p.CustomFields, CreatedAt: now, UpdatedAt: now}, nil
}

func (r *Repo) Update(ctx context.Context, id int64, p packager.Payload) (Record, error) {
	old, err := r.Get(ctx, p.EntityType, id)
	if err != nil {
		return Record{}, err
	}
	cols, cf, err := encode(p)
	if err != nil {
		return Record{}, err
	}
	now := r.now()
	q := query.New(r.DB, r.table(), r.Dialect).
		Where("entity_type", string(p.EntityType)).
		Where("id", id).
		WithContext(ctx)
	if _, err := q.Update(map[string]any{"columns_json": cols, "custom_fields": cf, "updated_at": now}); err != nil {
		return Record{}, err
	}
	old.Columns, old.CustomFields, old.UpdatedAt = p.Columns, p.CustomFields, now
	return old, nil
}

func (r *Repo) Get(ctx context.Context, et customfield.EntityType, id int64) (Record, error) {
	if err := r.ready(); err != nil {
		return Record{}, err
	}
	var row recordRow
	q := query.New(r.DB, r.table(), r.Dialect).
		Select("id", "entity_type", "columns_json", "custom_fields", "created_at", "updated_at").
		Where("entity_type", string(et)).
		Where("id", id).
		WithContext(ctx)
	if err := q.First(&row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, customfield.ErrNotFound
		}
		return Record{}, err
	}
	return row.record(), nil
}

func (r *Repo) List(ctx context.Context, et customfield.EntityType) ([]Record, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	var rows []recordRow
	q := query.New(r.DB, r.table(), r.Dialect).
		Select("id", "entity_type", "columns_json", "custom_fields", "created_at", "updated_at").
		Where("entity_type", string(et)).
		OrderBy("id", "asc").
		WithContext(ctx)
	if err := q.Get(&rows); err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.record())
	}
	return out, nil
}

func (r *Repo) Delete(ctx context.Context, et customfield.EntityType, id int64) error {
	if _, err := r.Get(ctx, et, id); err != nil {
		return err
	}
	q := query.New(r.DB, r.table(), r.Dialect).
		Where("entity_type", string(et)).
		Where("id", id).
		WithContext(ctx)
	_, err := q.Delete()
	return err
}
