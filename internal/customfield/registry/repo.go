package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	ormdriver "github.com/faciam-dev/goquent/orm/driver"
	"github.com/faciam-dev/goquent/orm/query"

	"github.com/faciam-dev/crmfields/internal/logger"
	"github.com/faciam-dev/crmfields/pkg/customfield"
)

// Repo stores field definitions in a SQL table.
type Repo struct {
	DB          *sql.DB
	Dialect     ormdriver.Dialect
	TablePrefix string
}

type fieldRow struct {
	ID           int64          `db:"id"`
	EntityType   string         `db:"entity_type"`
	FieldName    string         `db:"field_name"`
	FieldLabel   string         `db:"field_label"`
	FieldType    string         `db:"field_type"`
	IsRequired   bool           `db:"is_required"`
	IsHidden     bool           `db:"is_hidden"`
	Options      sql.NullString `db:"options"`
	Placeholder  sql.NullString `db:"placeholder"`
	DefaultValue sql.NullString `db:"default_value"`
	SortOrder    int            `db:"sort_order"`
	Validator    sql.NullString `db:"validator"`
	Aliases      sql.NullString `db:"aliases"`
}

func (r fieldRow) definition() customfield.FieldDefinition {
	d := customfield.FieldDefinition{
		ID:           r.ID,
		EntityType:   customfield.EntityType(r.EntityType),
		FieldName:    r.FieldName,
		FieldLabel:   r.FieldLabel,
		FieldType:    customfield.FieldType(r.FieldType),
		IsRequired:   r.IsRequired,
		IsHidden:     r.IsHidden,
		Placeholder:  r.Placeholder.String,
		DefaultValue: r.DefaultValue.String,
		SortOrder:    r.SortOrder,
		Validator:    r.Validator.String,
	}
	if r.Options.Valid && r.Options.String != "" {
		if err := json.Unmarshal([]byte(r.Options.String), &d.Options); err != nil {
			d.Options = nil
			logger.L.Warn("corrupt field options", "entity", r.EntityType, "field", r.FieldName, "err", err)
		}
	}
	if r.Aliases.Valid && r.Aliases.String != "" {
		if err := json.Unmarshal([]byte(r.Aliases.String), &d.Aliases); err != nil {
			d.Aliases = nil
			logger.L.Warn("corrupt field aliases", "entity", r.EntityType, "field", r.FieldName, "err", err)
		}
	}
	return d
}

func (r *Repo) table() string {
	p := r.TablePrefix
	if p == "" {
		p = "crm_"
	}
	return p + "field_definitions"
}

func (r *Repo) ready() error {
	if r == nil || r.DB == nil {
		return fmt.Errorf("repo not initialized")
	}
	return nil
}

// Fields returns all definitions of et ordered by sort_order.
func (r *Repo) Fields(ctx context.Context, et customfield.EntityType) ([]customfield.FieldDefinition, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	var rows []fieldRow
	q := query.New(r.DB, r.table(), r.Dialect).
		Select("id", "entity_type", "field_name", "field_label", "field_type", "is_required", "is_hidden",
			"options", "placeholder", "default_value", "sort_order", "validator", "aliases").
		Where("entity_type", string(et)).
		OrderBy("sort_order", "asc").
		OrderBy("id", "asc").
		WithContext(ctx)
	if err := q.Get(&rows); err != nil {
		return nil, err
	}
	out := make([]customfield.FieldDefinition, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.definition())
	}
	return out, nil
}

// Get fetches one definition by id.
func (r *Repo) Get(ctx context.Context, et customfield.EntityType, id int64) (customfield.FieldDefinition, error) {
	if err := r.ready(); err != nil {
		return customfield.FieldDefinition{}, err
	}
	var row fieldRow
	q := query.New(r.DB, r.table(), r.Dialect).
		Select("id", "entity_type", "field_name", "field_label", "field_type", "is_required", "is_hidden",
			"options", "placeholder", "default_value", "sort_order", "validator", "aliases").
		Where("entity_type", string(et)).
		Where("id", id).
		WithContext(ctx)
	if err := q.First(&row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return customfield.FieldDefinition{}, customfield.ErrNotFound
		}
		return customfield.FieldDefinition{}, err
	}
	return row.definition(), nil
}

// Create inserts def. A blank fieldName is replaced with the next
// generated Field_<n> name for the entity type.
func (r *Repo) Create(ctx context.Context, def customfield.FieldDefinition) (customfield.FieldDefinition, error) {
	if err := r.ready(); err != nil {
		return def, err
	}
	existing, err := r.Fields(ctx, def.EntityType)
	if err != nil {
		return def, err
	}
	def, err = prepareCreate(def, existing)
	if err != nil {
		return def, err
	}
	data := columns(def)
	data["entity_type"] = string(def.EntityType)
	data["field_name"] = def.FieldName
	id, err := query.New(r.DB, r.table(), r.Dialect).WithContext(ctx).InsertGetId(data)
	if err != nil {
		return def, err
	}
	def.ID = id
	return def, nil
}

// Update overwrites the mutable attributes of def. The stored fieldName is
// kept.
func (r *Repo) Update(ctx context.Context, def customfield.FieldDefinition) (customfield.FieldDefinition, error) {
	old, err := r.Get(ctx, def.EntityType, def.ID)
	if err != nil {
		return def, err
	}
	def.FieldName = old.FieldName
	if err := def.Check(); err != nil {
		return def, err
	}
	q := query.New(r.DB, r.table(), r.Dialect).
		Where("entity_type", string(def.EntityType)).
		Where("id", def.ID).
		WithContext(ctx)
	if _, err := q.Update(columns(def)); err != nil {
		return def, err
	}
	return def, nil
}

// Delete removes the definition with id.
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

// CountByEntity returns the number of definitions per entity type.
func (r *Repo) CountByEntity(ctx context.Context) (map[string]int, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	q := query.New(r.DB, r.table(), r.Dialect).
		Select("entity_type").
		SelectRaw("COUNT(*) as cnt").
		GroupBy("entity_type").
		WithContext(ctx)

	type row struct {
		Entity string `db:"entity_type"`
		Cnt    int    `db:"cnt"`
	}
	var rows []row
	if err := q.Get(&rows); err != nil {
		return nil, err
	}
	res := make(map[string]int, len(rows))
	for _, r := range rows {
		res[r.Entity] = r.Cnt
	}
	return res, nil
}

func columns(def customfield.FieldDefinition) map[string]any {
	return map[string]any{
		"field_label":   def.FieldLabel,
		"field_type":    string(def.FieldType),
		"is_required":   def.IsRequired,
		"is_hidden":     def.IsHidden,
		"options":       jsonList(def.Options),
		"placeholder":   def.Placeholder,
		"default_value": def.DefaultValue,
		"sort_order":    def.SortOrder,
		"validator":     def.Validator,
		"aliases":       jsonList(def.Aliases),
	}
}

func jsonList(v []string) any {
	if len(v) == 0 {
		return nil
	}
	b, _ := json.Marshal(v)
	return string(b)
}
