package registry

import (
	"context"
	"log/slog"
	"sort"

	"github.com/faciam-dev/crmfields/pkg/customfield"
)

// Source provides the admin-defined fields of an entity type.
type Source interface {
	Fields(ctx context.Context, et customfield.EntityType) ([]customfield.FieldDefinition, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, et customfield.EntityType) ([]customfield.FieldDefinition, error)

func (f SourceFunc) Fields(ctx context.Context, et customfield.EntityType) ([]customfield.FieldDefinition, error) {
	return f(ctx, et)
}

// Loader merges admin-defined fields with the standard fallback table.
// It never fails: when the source errors or returns nothing the standard
// fields are used instead.
type Loader struct {
	Source   Source
	Standard *StandardSet
	Logger   *slog.Logger
}

// NewLoader returns a Loader using the embedded standard fields.
func NewLoader(src Source) *Loader {
	return &Loader{Source: src, Standard: DefaultStandard()}
}

// Load returns the visible fields of et sorted by SortOrder, for building
// user-facing forms.
func (l *Loader) Load(ctx context.Context, et customfield.EntityType) []customfield.FieldDefinition {
	return Visible(l.LoadAll(ctx, et))
}

// LoadAll returns the full catalog of et including hidden fields.
func (l *Loader) LoadAll(ctx context.Context, et customfield.EntityType) []customfield.FieldDefinition {
	var admin []customfield.FieldDefinition
	if l.Source != nil {
		defs, err := l.Source.Fields(ctx, et)
		if err != nil {
			l.log().Warn("load field definitions, using standard fields", "entity", et, "err", err)
		} else {
			admin = defs
		}
	}
	var std []customfield.FieldDefinition
	if len(admin) == 0 {
		std = l.Standard.Fields(et)
	}
	return Merge(admin, std)
}

func (l *Loader) log() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

// Merge combines admin and standard fields. A standard field is dropped when
// an admin field with the same fieldName exists. The result is sorted by
// SortOrder; ties keep admin fields first, then input order.
func Merge(admin, standard []customfield.FieldDefinition) []customfield.FieldDefinition {
	out := make([]customfield.FieldDefinition, 0, len(admin)+len(standard))
	seen := make(map[string]struct{}, len(admin))
	for _, d := range admin {
		if _, ok := seen[d.FieldName]; ok {
			continue
		}
		seen[d.FieldName] = struct{}{}
		out = append(out, d)
	}
	for _, d := range standard {
		if _, ok := seen[d.FieldName]; ok {
			continue
		}
		seen[d.FieldName] = struct{}{}
		out = append(out, d)
	}
	SortFields(out)
	return out
}

// SortFields orders defs by ascending SortOrder, stable on ties.
func SortFields(defs []customfield.FieldDefinition) {
	sort.SliceStable(defs, func(i, j int) bool { return defs[i].SortOrder < defs[j].SortOrder })
}

// Visible returns the fields that are not hidden.
func Visible(defs []customfield.FieldDefinition) []customfield.FieldDefinition {
	out := make([]customfield.FieldDefinition, 0, len(defs))
	for _, d := range defs {
		if !d.IsHidden {
			out = append(out, d)
		}
	}
	return out
}
