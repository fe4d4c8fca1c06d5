package registry

import (
	"reflect"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/faciam-dev/crmfields/internal/customfield/registry/codec"
	"github.com/faciam-dev/crmfields/pkg/customfield"
)

type ChangeType string

const (
	ChangeAdded     ChangeType = "added"
	ChangeDeleted   ChangeType = "deleted"
	ChangeUpdated   ChangeType = "updated"
	ChangeUnchanged ChangeType = "unchanged"
)

type Change struct {
	Old  *customfield.FieldDefinition
	New  *customfield.FieldDefinition
	Type ChangeType
}

// DiffReport counts changes by kind.
type DiffReport struct {
	Added   int `json:"added"`
	Deleted int `json:"deleted"`
	Updated int `json:"updated"`
}

// Diff compares two catalogs by fieldName. IDs are ignored.
func Diff(a, b []customfield.FieldDefinition) []Change {
	result := []Change{}
	oldMap := make(map[string]*customfield.FieldDefinition, len(a))
	var order []string
	for i := range a {
		oldMap[a[i].FieldName] = &a[i]
		order = append(order, a[i].FieldName)
	}
	for i := range b {
		key := b[i].FieldName
		if old, ok := oldMap[key]; ok {
			if same(*old, b[i]) {
				result = append(result, Change{Old: old, New: &b[i], Type: ChangeUnchanged})
			} else {
				result = append(result, Change{Old: old, New: &b[i], Type: ChangeUpdated})
			}
			delete(oldMap, key)
		} else {
			result = append(result, Change{New: &b[i], Type: ChangeAdded})
		}
	}
	for _, k := range order {
		if v, ok := oldMap[k]; ok {
			result = append(result, Change{Old: v, Type: ChangeDeleted})
		}
	}
	return result
}

func same(a, b customfield.FieldDefinition) bool {
	a.ID, b.ID = 0, 0
	a.Standard, b.Standard = false, false
	a.Options, b.Options = nilIfEmpty(a.Options), nilIfEmpty(b.Options)
	a.Aliases, b.Aliases = nilIfEmpty(a.Aliases), nilIfEmpty(b.Aliases)
	return reflect.DeepEqual(a, b)
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

// Summarize counts the changes.
func Summarize(changes []Change) DiffReport {
	var r DiffReport
	for _, c := range changes {
		switch c.Type {
		case ChangeAdded:
			r.Added++
		case ChangeDeleted:
			r.Deleted++
		case ChangeUpdated:
			r.Updated++
		}
	}
	return r
}

// UnifiedDiff renders both catalogs as YAML and returns a unified diff.
func UnifiedDiff(et customfield.EntityType, a, b []customfield.FieldDefinition) (string, error) {
	ya, err := codec.EncodeYAML(et, a)
	if err != nil {
		return "", err
	}
	yb, err := codec.EncodeYAML(et, b)
	if err != nil {
		return "", err
	}
	d := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(ya)),
		B:        difflib.SplitLines(string(yb)),
		FromFile: "current",
		ToFile:   "desired",
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(d)
}
