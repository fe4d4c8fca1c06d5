package codec

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/faciam-dev/crmfields/pkg/customfield"
)

const currentVersion = "1.1"

// supported accepts every 1.x file. Files without a version are treated as 1.0.
var supported = mustConstraint("^1.0")

func mustConstraint(s string) *semver.Constraints {
	c, err := semver.NewConstraint(s)
	if err != nil {
		panic(err)
	}
	return c
}

// entityFile holds the fields of a single entity type.
type entityFile struct {
	Version string                        `yaml:"version"`
	Entity  customfield.EntityType        `yaml:"entity"`
	Fields  []customfield.FieldDefinition `yaml:"fields"`
}

// setFile holds fields for several entity types at once.
type setFile struct {
	Version  string                                   `yaml:"version"`
	Entities map[string][]customfield.FieldDefinition `yaml:"entities"`
}

// EncodeYAML writes the definitions of one entity type.
func EncodeYAML(et customfield.EntityType, defs []customfield.FieldDefinition) ([]byte, error) {
	out := make([]customfield.FieldDefinition, len(defs))
	for i, d := range defs {
		d.ID = 0
		d.EntityType = ""
		out[i] = d
	}
	return yaml.Marshal(entityFile{Version: currentVersion, Entity: et, Fields: out})
}

// DecodeYAML reads either a single-entity file (entity/fields) or a
// multi-entity file (entities) and returns the definitions grouped by
// entity type. Each definition gets its EntityType filled in.
func DecodeYAML(b []byte) (map[customfield.EntityType][]customfield.FieldDefinition, error) {
	var head struct {
		Version  string         `yaml:"version"`
		Entity   string         `yaml:"entity"`
		Entities map[string]any `yaml:"entities"`
	}
	if err := yaml.Unmarshal(b, &head); err != nil {
		return nil, err
	}
	if err := checkVersion(head.Version); err != nil {
		return nil, err
	}
	res := make(map[customfield.EntityType][]customfield.FieldDefinition)
	if head.Entities != nil {
		var sf setFile
		if err := yaml.Unmarshal(b, &sf); err != nil {
			return nil, err
		}
		for name, defs := range sf.Entities {
			et, err := customfield.ParseEntityType(name)
			if err != nil {
				return nil, err
			}
			if err := fill(et, defs); err != nil {
				return nil, err
			}
			res[et] = defs
		}
		return res, nil
	}
	var ef entityFile
	if err := yaml.Unmarshal(b, &ef); err != nil {
		return nil, err
	}
	et, err := customfield.ParseEntityType(string(ef.Entity))
	if err != nil {
		return nil, err
	}
	if err := fill(et, ef.Fields); err != nil {
		return nil, err
	}
	res[et] = ef.Fields
	return res, nil
}

func checkVersion(v string) error {
	if v == "" {
		return nil
	}
	sv, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", v, err)
	}
	if !supported.Check(sv) {
		return fmt.Errorf("unsupported version %s", v)
	}
	return nil
}

func fill(et customfield.EntityType, defs []customfield.FieldDefinition) error {
	for i := range defs {
		defs[i].EntityType = et
		if defs[i].FieldType == "" {
			defs[i].FieldType = customfield.TypeText
		}
		if err := defs[i].Check(); err != nil {
			return fmt.Errorf("%s: %w", et, err)
		}
	}
	return customfield.CheckUnique(defs)
}
