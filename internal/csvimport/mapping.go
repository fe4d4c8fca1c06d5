package csvimport

import (
	"sort"
	"strings"

	"github.com/faciam-dev/crmfields/internal/customfield/validate"
	"github.com/faciam-dev/crmfields/pkg/customfield"
)

// MappedRow is one CSV row projected onto field names. Invalid rows are
// kept and flagged so they can be shown to the user.
type MappedRow struct {
	Row    int                `json:"row"`
	Values customfield.Values `json:"values"`
	Errors []string           `json:"errors,omitempty"`
	Valid  bool               `json:"valid"`
}

// ApplyMapping projects rows onto field names using mapping (header to
// fieldName) and validates each row against defs. Values are trimmed. Row
// numbers count the header line.
func ApplyMapping(rows []Row, mapping map[string]string, defs []customfield.FieldDefinition) []MappedRow {
	headers := make([]string, 0, len(mapping))
	for h, f := range mapping {
		if f != "" && f != Skip {
			headers = append(headers, h)
		}
	}
	sort.Strings(headers)
	out := make([]MappedRow, 0, len(rows))
	for i, r := range rows {
		values := customfield.Values{}
		for _, h := range headers {
			f := mapping[h]
			if values[f] == "" {
				values[f] = strings.TrimSpace(r[h])
			}
		}
		errs := validate.ValidateRow(defs, r, mapping)
		out = append(out, MappedRow{Row: i + 2, Values: values, Errors: errs, Valid: len(errs) == 0})
	}
	return out
}
