package registry

import (
	"strings"
	"testing"

	"github.com/faciam-dev/crmfields/pkg/customfield"
)

func TestDiffReport(t *testing.T) {
	old := []customfield.FieldDefinition{
		{FieldName: "a", FieldLabel: "A", FieldType: customfield.TypeText},
		{FieldName: "b", FieldLabel: "B", FieldType: customfield.TypeText},
	}
	cur := []customfield.FieldDefinition{
		{ID: 9, FieldName: "a", FieldLabel: "A", FieldType: customfield.TypeText},
		{FieldName: "b", FieldLabel: "B2", FieldType: customfield.TypeText},
		{FieldName: "c", FieldLabel: "C", FieldType: customfield.TypeDate},
	}
	rep := Summarize(Diff(old, cur))
	if rep.Added != 1 || rep.Updated != 1 || rep.Deleted != 0 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	rep = Summarize(Diff(cur, old))
	if rep.Deleted != 1 {
		t.Fatalf("expected one deletion, got %+v", rep)
	}
}

func TestUnifiedDiff(t *testing.T) {
	old := []customfield.FieldDefinition{{FieldName: "a", FieldLabel: "A", FieldType: customfield.TypeText}}
	cur := []customfield.FieldDefinition{{FieldName: "a", FieldLabel: "Alpha", FieldType: customfield.TypeText}}
	out, err := UnifiedDiff(customfield.Jobs, old, cur)
	if err != nil {
		t.Fatalf("UnifiedDiff: %v", err)
	}
	var removed, added bool
	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.HasPrefix(line, "-") && strings.HasSuffix(line, "label: A"):
			removed = true
		case strings.HasPrefix(line, "+") && strings.HasSuffix(line, "label: Alpha"):
			added = true
		}
	}
	if !removed || !added {
		t.Fatalf("unexpected diff:\n%s", out)
	}
}

func TestDiffIgnoresEmptyLists(t *testing.T) {
	a := []customfield.FieldDefinition{{FieldName: "a", FieldLabel: "A", FieldType: customfield.TypeText, Options: []string{}}}
	b := []customfield.FieldDefinition{{ID: 3, FieldName: "a", FieldLabel: "A", FieldType: customfield.TypeText, Standard: true}}
	rep := Summarize(Diff(a, b))
	if rep != (DiffReport{}) {
		t.Fatalf("unexpected report: %+v", rep)
	}
}
