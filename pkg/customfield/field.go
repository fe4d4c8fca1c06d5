package customfield

import (
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/jinzhu/inflection"
)

// EntityType identifies a record kind that owns its own field namespace.
type EntityType string

const (
	Organizations  EntityType = "organizations"
	Jobs           EntityType = "jobs"
	JobSeekers     EntityType = "job-seekers"
	HiringManagers EntityType = "hiring-managers"
	Placements     EntityType = "placements"
	Leads          EntityType = "leads"
	Tasks          EntityType = "tasks"
)

var entityTypes = []EntityType{Organizations, Jobs, JobSeekers, HiringManagers, Placements, Leads, Tasks}

// EntityTypes returns the closed set of supported entity types.
func EntityTypes() []EntityType {
	out := make([]EntityType, len(entityTypes))
	copy(out, entityTypes)
	return out
}

// ParseEntityType accepts the canonical kebab-case name as well as
// snake_case and camelCase spellings ("job_seekers", "jobSeekers").
func ParseEntityType(s string) (EntityType, error) {
	k := strcase.ToKebab(strings.TrimSpace(s))
	for _, et := range entityTypes {
		if string(et) == k {
			return et, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEntityType, s)
}

// Valid reports whether et belongs to the supported set.
func (et EntityType) Valid() bool {
	for _, e := range entityTypes {
		if e == et {
			return true
		}
	}
	return false
}

// RecordType returns the singular PascalCase record name, e.g. "JobSeeker".
func (et EntityType) RecordType() string {
	return strcase.ToCamel(inflection.Singular(strings.ReplaceAll(string(et), "-", "_")))
}

// FieldType is the declared input type of a field.
type FieldType string

const (
	TypeText     FieldType = "text"
	TypeEmail    FieldType = "email"
	TypePhone    FieldType = "phone"
	TypeNumber   FieldType = "number"
	TypeDate     FieldType = "date"
	TypeTextarea FieldType = "textarea"
	TypeSelect   FieldType = "select"
	TypeCheckbox FieldType = "checkbox"
	TypeRadio    FieldType = "radio"
	TypeURL      FieldType = "url"
	TypeFile     FieldType = "file"
)

var fieldTypes = map[FieldType]struct{}{
	TypeText: {}, TypeEmail: {}, TypePhone: {}, TypeNumber: {}, TypeDate: {}, TypeTextarea: {},
	TypeSelect: {}, TypeCheckbox: {}, TypeRadio: {}, TypeURL: {}, TypeFile: {},
}

// Valid reports whether t is one of the known field types.
func (t FieldType) Valid() bool {
	_, ok := fieldTypes[t]
	return ok
}

// HasOptions reports whether the type renders a fixed choice set.
func (t FieldType) HasOptions() bool {
	return t == TypeSelect || t == TypeRadio
}

// FieldDefinition describes one field of an entity type.
type FieldDefinition struct {
	ID           int64      `json:"id" yaml:"id,omitempty" db:"id"`
	EntityType   EntityType `json:"entityType" yaml:"entity,omitempty" db:"entity_type"`
	FieldName    string     `json:"fieldName" yaml:"name" db:"field_name"`
	FieldLabel   string     `json:"fieldLabel" yaml:"label" db:"field_label"`
	FieldType    FieldType  `json:"fieldType" yaml:"type" db:"field_type"`
	IsRequired   bool       `json:"isRequired" yaml:"required,omitempty" db:"is_required"`
	IsHidden     bool       `json:"isHidden" yaml:"hidden,omitempty" db:"is_hidden"`
	Options      []string   `json:"options,omitempty" yaml:"options,omitempty" db:"-"`
	Placeholder  string     `json:"placeholder,omitempty" yaml:"placeholder,omitempty" db:"placeholder"`
	DefaultValue string     `json:"defaultValue,omitempty" yaml:"default,omitempty" db:"default_value"`
	SortOrder    int        `json:"sortOrder" yaml:"sort,omitempty" db:"sort_order"`
	Validator    string     `json:"validator,omitempty" yaml:"validator,omitempty" db:"validator"`
	Aliases      []string   `json:"aliases,omitempty" yaml:"aliases,omitempty" db:"-"`
	Standard     bool       `json:"standard,omitempty" yaml:"-" db:"-"`
}

// Label returns the display label, falling back to the machine name.
func (f FieldDefinition) Label() string {
	if strings.TrimSpace(f.FieldLabel) != "" {
		return f.FieldLabel
	}
	return f.FieldName
}

// Check verifies the definition is internally consistent.
func (f FieldDefinition) Check() error {
	if strings.TrimSpace(f.FieldName) == "" {
		return fmt.Errorf("%w: field name is empty", ErrInvalidField)
	}
	if !f.FieldType.Valid() {
		return fmt.Errorf("%w: unknown type %q for %s", ErrInvalidField, f.FieldType, f.FieldName)
	}
	if f.FieldType.HasOptions() && len(f.Options) == 0 {
		return fmt.Errorf("%w: %s field %s has no options", ErrInvalidField, f.FieldType, f.FieldName)
	}
	return nil
}

// CheckUnique returns ErrDuplicateField if two definitions share a fieldName.
func CheckUnique(defs []FieldDefinition) error {
	seen := make(map[string]struct{}, len(defs))
	for _, d := range defs {
		if _, ok := seen[d.FieldName]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateField, d.FieldName)
		}
		seen[d.FieldName] = struct{}{}
	}
	return nil
}

// Find returns the definition with the given fieldName.
func Find(defs []FieldDefinition, name string) (FieldDefinition, bool) {
	for _, d := range defs {
		if d.FieldName == name {
			return d, true
		}
	}
	return FieldDefinition{}, false
}
