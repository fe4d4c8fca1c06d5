package packager

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/faciam-dev/crmfields/pkg/customfield"
)

// Kind is the backend type of a fixed column.
type Kind string

const (
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindBool   Kind = "bool"
	KindDate   Kind = "date"
)

// Column is a fixed backend column a field maps to. Nullable columns are
// sent as null when blank so that an update clears them.
type Column struct {
	Name     string `yaml:"column"`
	Kind     Kind   `yaml:"kind"`
	Nullable bool   `yaml:"nullable"`
}

// Table maps entity type to field name or label to column.
type Table map[customfield.EntityType]map[string]Column

//go:embed columns.yaml
var columnsYAML []byte

var (
	defaultOnce  sync.Once
	defaultTable Table
)

// DefaultTable returns the embedded column table. It is decoded once.
func DefaultTable() Table {
	defaultOnce.Do(func() {
		t, err := ParseTable(columnsYAML)
		if err != nil {
			panic(fmt.Sprintf("embedded column table: %v", err))
		}
		defaultTable = t
	})
	return defaultTable
}

// ParseTable decodes a column table.
func ParseTable(b []byte) (Table, error) {
	var raw map[string]map[string]Column
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	t := make(Table, len(raw))
	for k, cols := range raw {
		et, err := customfield.ParseEntityType(k)
		if err != nil {
			return nil, err
		}
		for key, c := range cols {
			if c.Name == "" {
				return nil, fmt.Errorf("%s.%s: column name is empty", et, key)
			}
			switch c.Kind {
			case "":
				c.Kind = KindString
			case KindString, KindInt, KindFloat, KindBool, KindDate:
			default:
				return nil, fmt.Errorf("%s.%s: unknown kind %q", et, key, c.Kind)
			}
			cols[key] = c
		}
		t[et] = cols
	}
	return t, nil
}

// Lookup returns the column def maps to. The fieldName is tried before the
// label.
func (t Table) Lookup(et customfield.EntityType, def customfield.FieldDefinition) (Column, bool) {
	cols := t[et]
	if c, ok := cols[def.FieldName]; ok {
		return c, true
	}
	if def.FieldLabel != "" {
		if c, ok := cols[def.FieldLabel]; ok {
			return c, true
		}
	}
	return Column{}, false
}
