// Package packager converts a value store into the payload accepted by the
// record API and back.
package packager

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/faciam-dev/crmfields/internal/customfield/validate"
	"github.com/faciam-dev/crmfields/pkg/customfield"
)

// CustomFieldsKey is the payload key holding values without a fixed column.
const CustomFieldsKey = "custom_fields"

// ErrInvalidPayload is returned when a payload cannot be built.
var ErrInvalidPayload = errors.New("invalid payload")

// Payload is the body sent to the record API. Columns are written at the
// top level next to the custom_fields object.
type Payload struct {
	EntityType   customfield.EntityType `json:"-"`
	Columns      map[string]any         `json:"-"`
	CustomFields map[string]string      `json:"-"`
}

// MarshalJSON flattens Columns and adds custom_fields, which is always an
// object.
func (p Payload) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Columns)+1)
	for k, v := range p.Columns {
		out[k] = v
	}
	cf := p.CustomFields
	if cf == nil {
		cf = map[string]string{}
	}
	out[CustomFieldsKey] = cf
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON. A custom_fields value that is
// not an object is replaced by an empty one.
func (p *Payload) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	p.CustomFields = customFields(raw[CustomFieldsKey])
	delete(raw, CustomFieldsKey)
	p.Columns = raw
	return nil
}

// Result is either a payload or the reason none could be built.
type Result struct {
	payload Payload
	err     error
}

// Ok returns the payload and true when packaging succeeded.
func (r Result) Ok() (Payload, bool) {
	return r.payload, r.err == nil
}

// Err returns the packaging error, if any.
func (r Result) Err() error {
	return r.err
}

func fail(format string, args ...any) Result {
	return Result{err: fmt.Errorf("%w: %s", ErrInvalidPayload, fmt.Sprintf(format, args...))}
}

// Packager builds payloads using a column table.
type Packager struct {
	Table Table
}

// New returns a Packager using the embedded column table.
func New() *Packager {
	return &Packager{Table: DefaultTable()}
}

// Package converts values into a payload for et using the full field
// catalog defs, hidden fields included. Mapped fields are coerced into
// their columns; the rest go to custom_fields keyed by fieldName. Blank
// values are omitted except for nullable columns, which are sent as null.
// File fields are never packaged.
func Package(et customfield.EntityType, values customfield.Values, defs []customfield.FieldDefinition) Result {
	return New().Package(et, values, defs)
}

func (pk *Packager) Package(et customfield.EntityType, values customfield.Values, defs []customfield.FieldDefinition) Result {
	if !et.Valid() {
		return Result{err: fmt.Errorf("%w: %q", customfield.ErrUnknownEntityType, et)}
	}
	p := Payload{EntityType: et, Columns: map[string]any{}, CustomFields: map[string]string{}}
	for _, d := range defs {
		if d.FieldType == customfield.TypeFile {
			continue
		}
		v := strings.TrimSpace(values[d.FieldName])
		col, mapped := pk.Table.Lookup(et, d)
		if !mapped {
			if v != "" {
				p.CustomFields[d.FieldName] = v
			}
			continue
		}
		if v == "" {
			if col.Nullable {
				p.Columns[col.Name] = nil
			}
			continue
		}
		cv, err := coerce(col, v)
		if err != nil {
			return fail("%s: %v", d.Label(), err)
		}
		p.Columns[col.Name] = cv
	}
	if err := p.check(); err != nil {
		return Result{err: err}
	}
	return Result{payload: p}
}

func coerce(col Column, v string) (any, error) {
	switch col.Kind {
	case KindInt:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", v)
		}
		return n, nil
	case KindFloat:
		if !validate.ValidNumber(v) {
			return nil, fmt.Errorf("%q is not a number", v)
		}
		f, _ := strconv.ParseFloat(v, 64)
		return f, nil
	case KindBool:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%q is not a boolean", v)
		}
		return b, nil
	case KindDate:
		if !validate.ValidDate(v) {
			return nil, fmt.Errorf("%q is not a date", v)
		}
		if t, ok := validate.ParseDate(v); ok {
			return t.Format("2006-01-02"), nil
		}
		return v, nil
	default:
		return v, nil
	}
}

func (p Payload) check() error {
	if p.CustomFields == nil {
		return fmt.Errorf("%w: custom_fields is not an object", ErrInvalidPayload)
	}
	for k := range p.Columns {
		if k == "" || k == CustomFieldsKey {
			return fmt.Errorf("%w: column %q is reserved", ErrInvalidPayload, k)
		}
	}
	return nil
}

// Populate fills a value store from a persisted record, the inverse of
// Package. custom_fields may be an object or a JSON encoded string; entries
// are looked up by fieldName and then by label for records saved with
// label keys.
func Populate(et customfield.EntityType, record map[string]any, defs []customfield.FieldDefinition) customfield.Values {
	return New().Populate(et, record, defs)
}

func (pk *Packager) Populate(et customfield.EntityType, record map[string]any, defs []customfield.FieldDefinition) customfield.Values {
	values := customfield.Values{}
	cf := customFields(record[CustomFieldsKey])
	for _, d := range defs {
		if d.FieldType == customfield.TypeFile {
			continue
		}
		if col, ok := pk.Table.Lookup(et, d); ok {
			if s, ok := stringify(record[col.Name]); ok {
				values[d.FieldName] = s
			}
			continue
		}
		if s, ok := cf[d.FieldName]; ok {
			values[d.FieldName] = s
		} else if s, ok := cf[d.FieldLabel]; ok && d.FieldLabel != "" {
			values[d.FieldName] = s
		}
	}
	return values
}

func customFields(v any) map[string]string {
	switch t := v.(type) {
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, s := range t {
			out[k] = s
		}
		return out
	case map[string]any:
		out := make(map[string]string, len(t))
		for k, x := range t {
			if s, ok := stringify(x); ok {
				out[k] = s
			}
		}
		return out
	case string:
		var m map[string]any
		if err := json.Unmarshal([]byte(t), &m); err != nil || m == nil {
			return map[string]string{}
		}
		return customFields(m)
	case []byte:
		return customFields(string(t))
	default:
		return map[string]string{}
	}
}

func stringify(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case []byte:
		return string(t), true
	case bool:
		return strconv.FormatBool(t), true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case int32:
		return strconv.FormatInt(int64(t), 10), true
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return "", false
		}
		return string(b), true
	default:
		return fmt.Sprint(t), true
	}
}

// ColumnNames returns the distinct columns of et in sorted order.
func (pk *Packager) ColumnNames(et customfield.EntityType) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, c := range pk.Table[et] {
		if _, ok := seen[c.Name]; ok {
			continue
		}
		seen[c.Name] = struct{}{}
		out = append(out, c.Name)
	}
	sort.Strings(out)
	return out
}
