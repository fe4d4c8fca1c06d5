package csvimport

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/faciam-dev/crmfields/internal/customfield/packager"
	"github.com/faciam-dev/crmfields/internal/customfield/registry"
	"github.com/faciam-dev/crmfields/pkg/customfield"
)

func TestParseQuotedCells(t *testing.T) {
	s, err := Parse("h1,h2,h3\n\"a\",\"b,c\",\"d\"\"e\"\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got := []string{s.Rows[0]["h1"], s.Rows[0]["h2"], s.Rows[0]["h3"]}
	if diff := cmp.Diff([]string{"a", "b,c", `d"e`}, got); diff != "" {
		t.Fatalf("cells mismatch (-want +got):\n%s", diff)
	}

	cells, err := ParseLine(`"a","b,c","d""e"`)
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b,c", `d"e`}, cells); diff != "" {
		t.Fatalf("line mismatch (-want +got):\n%s", diff)
	}
}

func TestParseNormalizesInput(t *testing.T) {
	in := "\ufeff\n\n First Name , Notes \r\nAnn,\"line one\nline two\"\r\nBob\n\n"
	s, err := Parse(in)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if diff := cmp.Diff([]string{"First Name", "Notes"}, s.Headers); diff != "" {
		t.Fatalf("headers mismatch (-want +got):\n%s", diff)
	}
	want := []Row{
		{"First Name": "Ann", "Notes": "line one\nline two"},
		{"First Name": "Bob", "Notes": ""},
	}
	if diff := cmp.Diff(want, s.Rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := Parse("\n \n"); !errors.Is(err, ErrNoHeader) {
		t.Fatalf("expected ErrNoHeader, got %v", err)
	}
}

func jobSeekerFields() []customfield.FieldDefinition {
	return registry.DefaultStandard().Fields(customfield.JobSeekers)
}

func TestAutoMap(t *testing.T) {
	defs := append(jobSeekerFields(), customfield.FieldDefinition{FieldName: "Field_1", FieldLabel: "Shoe Size", FieldType: customfield.TypeNumber})
	got := AutoMap([]string{"First Name", " SURNAME ", "E-mail", "shoe size", "Favourite Colour", "first"}, defs)
	want := map[string]string{
		"First Name":       "firstName",
		" SURNAME ":        "lastName",
		"E-mail":           "email",
		"shoe size":        "Field_1",
		"Favourite Colour": Skip,
		"first":            Skip,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mapping mismatch (-want +got):\n%s", diff)
	}
}

func TestAutoMapBuiltinAliases(t *testing.T) {
	defs := []customfield.FieldDefinition{{FieldName: "firstName", FieldLabel: "Given", FieldType: customfield.TypeText}}
	if got := AutoMap([]string{"fname"}, defs)["fname"]; got != "firstName" {
		t.Fatalf("expected firstName, got %q", got)
	}
}

func TestApplyMappingFlagsInvalidRows(t *testing.T) {
	defs := jobSeekerFields()
	rows := []Row{
		{"First": " Ann ", "Last": "Lee", "Mail": "ann@example.com"},
		{"First": "", "Last": "Kim", "Mail": "kim@example.com"},
	}
	mapping := map[string]string{"First": "firstName", "Last": "lastName", "Mail": "email"}
	got := ApplyMapping(rows, mapping, defs)
	if len(got) != 2 {
		t.Fatalf("expected both rows to be kept, got %d", len(got))
	}
	if !got[0].Valid || got[0].Values["firstName"] != "Ann" || got[0].Row != 2 {
		t.Fatalf("unexpected first row: %+v", got[0])
	}
	if got[1].Valid || got[1].Row != 3 || len(got[1].Errors) != 1 {
		t.Fatalf("unexpected second row: %+v", got[1])
	}
}

func TestImporterSummary(t *testing.T) {
	defs := jobSeekerFields()
	s, err := Parse("First Name,Last Name,Email\nAnn,Lee,ann@example.com\nBob,,bob@example.com\nCy,Ng,cy@example.com\n")
	if err != nil {
		t.Fatal(err)
	}
	var submitted []packager.Payload
	im := &Importer{Submitter: SubmitterFunc(func(_ context.Context, _ customfield.EntityType, p packager.Payload) error {
		submitted = append(submitted, p)
		return nil
	})}
	sum := im.Run(context.Background(), customfield.JobSeekers, defs, s.Rows, AutoMap(s.Headers, defs))
	if sum.Total != 3 || sum.Successful != 2 || sum.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if len(sum.Errors) != 1 || !strings.HasPrefix(sum.Errors[0], "Row 3:") {
		t.Fatalf("unexpected errors: %v", sum.Errors)
	}
	if len(submitted) != 2 || submitted[1].Columns["first_name"] != "Cy" {
		t.Fatalf("unexpected submissions: %+v", submitted)
	}
}

func TestImporterContinuesAfterSubmitFailure(t *testing.T) {
	defs := []customfield.FieldDefinition{{FieldName: "Field_1", FieldLabel: "Code", FieldType: customfield.TypeText}}
	var rows []Row
	for i := 0; i < 25; i++ {
		rows = append(rows, Row{"Code": "x"})
	}
	calls := 0
	im := &Importer{Submitter: SubmitterFunc(func(context.Context, customfield.EntityType, packager.Payload) error {
		calls++
		return errors.New("server said no")
	})}
	sum := im.Run(context.Background(), customfield.Leads, defs, rows, map[string]string{"Code": "Field_1"})
	if calls != 25 || sum.Failed != 25 {
		t.Fatalf("every row should be attempted: calls=%d summary=%+v", calls, sum)
	}
	if len(sum.Errors) != MaxErrors || sum.Errors[0] != "Row 2: server said no" {
		t.Fatalf("unexpected errors: %d %q", len(sum.Errors), sum.Errors[0])
	}
}

func TestImporterStopsOnCancel(t *testing.T) {
	defs := []customfield.FieldDefinition{{FieldName: "Field_1", FieldLabel: "Code", FieldType: customfield.TypeText}}
	rows := []Row{{"Code": "a"}, {"Code": "b"}, {"Code": "c"}}
	ctx, cancel := context.WithCancel(context.Background())
	im := &Importer{Submitter: SubmitterFunc(func(context.Context, customfield.EntityType, packager.Payload) error {
		cancel()
		return nil
	})}
	sum := im.Run(ctx, customfield.Leads, defs, rows, map[string]string{"Code": "Field_1"})
	if sum.Successful != 1 || sum.Skipped != 2 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}

func TestTemplate(t *testing.T) {
	defs := []customfield.FieldDefinition{
		{FieldName: "a", FieldLabel: `Size "EU"`, FieldType: customfield.TypeText},
		{FieldName: "b", FieldLabel: "Hidden", FieldType: customfield.TypeText, IsHidden: true},
		{FieldName: "c", FieldLabel: "Notes, misc", FieldType: customfield.TypeTextarea},
	}
	name, data := Template(customfield.JobSeekers, defs)
	if name != "JobSeeker_Template.csv" {
		t.Fatalf("unexpected filename %q", name)
	}
	if string(data) != "\"Size \"\"EU\"\"\",\"Notes, misc\"\r\n" {
		t.Fatalf("unexpected template %q", data)
	}
}
