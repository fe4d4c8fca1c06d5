// Package validate checks field values against their definitions.
package validate

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/faciam-dev/crmfields/pkg/customfield"
)

// Result is the outcome of validating one record.
type Result struct {
	IsValid     bool              `json:"isValid"`
	Errors      []string          `json:"errors"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
}

// RowError is a validation error of one CSV row. Row counts the header
// line, so the first data row is 2.
type RowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e RowError) String() string {
	return fmt.Sprintf("Row %d: %s", e.Row, e.Message)
}

var (
	emailRe      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneStripRe = regexp.MustCompile(`[\s\-\(\)\.]`)
	phoneRe      = regexp.MustCompile(`^\+?\d{10,15}$`)
	numberRe     = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)
	dateRes      = []*regexp.Regexp{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
		regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`),
		regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`),
	}
	dateLayouts = []string{
		"2006-01-02",
		"01/02/2006",
		"01-02-2006",
		time.RFC3339,
		time.RFC1123,
		time.RFC1123Z,
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006/01/02",
		"1/2/2006",
		"Jan 2, 2006",
		"January 2, 2006",
		"2 Jan 2006",
		"Mon Jan 2 2006",
	}
)

// Validate checks values against every visible field of defs. File fields
// never carry a value and are not checked.
func Validate(defs []customfield.FieldDefinition, values customfield.Values) Result {
	res := Result{IsValid: true, Errors: []string{}}
	for _, d := range defs {
		if d.IsHidden || d.FieldType == customfield.TypeFile {
			continue
		}
		if msg := Value(d, values[d.FieldName]); msg != "" {
			res.add(d.FieldName, msg)
		}
	}
	return res
}

func (r *Result) add(field, msg string) {
	r.IsValid = false
	r.Errors = append(r.Errors, msg)
	if r.FieldErrors == nil {
		r.FieldErrors = make(map[string]string)
	}
	if _, ok := r.FieldErrors[field]; !ok {
		r.FieldErrors[field] = msg
	}
}

// Value validates a single value of def and returns an error message or "".
func Value(def customfield.FieldDefinition, raw string) string {
	if def.FieldType == customfield.TypeFile {
		return ""
	}
	v := strings.TrimSpace(raw)
	label := def.Label()
	if v == "" {
		if def.IsRequired {
			return fmt.Sprintf("Required field %q is empty", label)
		}
		return ""
	}
	switch def.FieldType {
	case customfield.TypeEmail:
		if !emailRe.MatchString(v) {
			return fmt.Sprintf("Invalid email format for %q", label)
		}
	case customfield.TypePhone:
		if !ValidPhone(v) {
			return fmt.Sprintf("Invalid phone number for %q", label)
		}
	case customfield.TypeDate:
		if !ValidDate(v) {
			return fmt.Sprintf("Invalid date for %q", label)
		}
	case customfield.TypeNumber:
		if !ValidNumber(v) {
			return fmt.Sprintf("Invalid number for %q", label)
		}
	}
	if def.Validator != "" {
		if fn, ok := customfield.GetValidator(def.Validator); ok {
			if err := fn(v); err != nil {
				return fmt.Sprintf("Invalid value for %q: %v", label, err)
			}
		}
	}
	return ""
}

// ValidPhone strips spaces, dashes, dots and parentheses and accepts 10 to
// 15 digits with an optional leading plus.
func ValidPhone(v string) bool {
	return phoneRe.MatchString(phoneStripRe.ReplaceAllString(v, ""))
}

// ValidDate accepts YYYY-MM-DD, MM/DD/YYYY and MM-DD-YYYY, then falls back
// to a set of common layouts.
func ValidDate(v string) bool {
	for _, re := range dateRes {
		if re.MatchString(v) {
			return true
		}
	}
	_, ok := ParseDate(v)
	return ok
}

// ParseDate parses v with the supported layouts.
func ParseDate(v string) (time.Time, bool) {
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ValidNumber reports whether v is a finite decimal number. Infinities and
// hex floats are rejected.
func ValidNumber(v string) bool {
	v = strings.TrimSpace(v)
	if !numberRe.MatchString(v) {
		return false
	}
	f, err := strconv.ParseFloat(v, 64)
	return err == nil && !math.IsInf(f, 0) && !math.IsNaN(f)
}

// ValidateRow checks one CSV row. mapping goes from CSV header to fieldName.
// A required field with no mapped column is reported as not mapped.
func ValidateRow(defs []customfield.FieldDefinition, row map[string]string, mapping map[string]string) []string {
	var errs []string
	for _, e := range rowErrors(defs, row, mapping, 0) {
		errs = append(errs, e.Message)
	}
	return errs
}

// ValidateRows checks every row and numbers errors against the original
// file, counting the header line.
func ValidateRows(defs []customfield.FieldDefinition, rows []map[string]string, mapping map[string]string) []RowError {
	var out []RowError
	for i, row := range rows {
		out = append(out, rowErrors(defs, row, mapping, i+2)...)
	}
	return out
}

func rowErrors(defs []customfield.FieldDefinition, row map[string]string, mapping map[string]string, n int) []RowError {
	headers := columnsByField(mapping)
	var out []RowError
	for _, d := range defs {
		if d.IsHidden || d.FieldType == customfield.TypeFile {
			continue
		}
		hs, mapped := headers[d.FieldName]
		if !mapped {
			if d.IsRequired {
				out = append(out, RowError{Row: n, Field: d.FieldName, Message: fmt.Sprintf("Required field %q is not mapped", d.Label())})
			}
			continue
		}
		var v string
		for _, h := range hs {
			if s := strings.TrimSpace(row[h]); s != "" {
				v = s
				break
			}
		}
		if msg := Value(d, v); msg != "" {
			out = append(out, RowError{Row: n, Field: d.FieldName, Message: msg})
		}
	}
	return out
}

// columnsByField inverts a header to fieldName mapping. Headers mapped to
// "skip" or "" are ignored.
func columnsByField(mapping map[string]string) map[string][]string {
	out := make(map[string][]string)
	for h, f := range mapping {
		if f == "" || f == "skip" {
			continue
		}
		out[f] = append(out[f], h)
	}
	for f := range out {
		sort.Strings(out[f])
	}
	return out
}
