package csvimport

import (
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/faciam-dev/crmfields/pkg/customfield"
)

// builtinAliases lists alternative header spellings for common field names.
var builtinAliases = map[string][]string{
	"firstName":         {"first name", "fname", "given name", "first"},
	"lastName":          {"last name", "lname", "surname", "family name", "last"},
	"email":             {"email address", "e-mail", "e-mail address", "mail"},
	"phone":             {"phone number", "telephone", "mobile", "cell", "tel"},
	"name":              {"organization", "organization name", "company", "company name"},
	"website":           {"url", "web site", "homepage"},
	"address":           {"street address", "location"},
	"status":            {"state"},
	"job_title":         {"title", "position", "role"},
	"organization_id":   {"organization id", "company id"},
	"organization_name": {"company", "company name", "organization"},
	"start_date":        {"start", "start date"},
	"end_date":          {"end", "end date"},
	"due_date":          {"due", "deadline"},
	"job_id":            {"job", "job id"},
	"job_seeker_id":     {"candidate", "candidate id", "job seeker"},
}

// Aliases returns the lower-cased header spellings that map to def, in the
// order they are tried.
func Aliases(def customfield.FieldDefinition) []string {
	var out []string
	seen := map[string]struct{}{}
	add := func(s string) {
		s = normalize(s)
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	add(def.FieldName)
	add(def.FieldLabel)
	add(strcase.ToDelimited(def.FieldName, ' '))
	add(strcase.ToSnake(def.FieldName))
	for _, a := range def.Aliases {
		add(a)
	}
	for _, a := range builtinAliases[def.FieldName] {
		add(a)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// AutoMap proposes a fieldName for every header. Headers are compared
// lower-cased and trimmed against each field's aliases; fields are tried in
// order and the first match wins. Unmatched headers map to Skip. A field
// already claimed by an earlier header is not assigned twice.
func AutoMap(headers []string, defs []customfield.FieldDefinition) map[string]string {
	aliases := make([][]string, len(defs))
	for i, d := range defs {
		aliases[i] = Aliases(d)
	}
	taken := map[string]struct{}{}
	out := make(map[string]string, len(headers))
	for _, h := range headers {
		out[h] = Skip
		key := normalize(h)
		if key == "" {
			continue
		}
	defs:
		for i, d := range defs {
			if d.FieldType == customfield.TypeFile {
				continue
			}
			if _, ok := taken[d.FieldName]; ok {
				continue
			}
			for _, a := range aliases[i] {
				if a == key {
					out[h] = d.FieldName
					taken[d.FieldName] = struct{}{}
					break defs
				}
			}
		}
	}
	return out
}
