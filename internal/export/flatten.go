// Package export writes records as CSV or XLSX files.
package export

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Sheet is a set of flattened records with a fixed column order.
type Sheet struct {
	Columns []string
	Rows    []map[string]string
}

// Flatten turns a nested record into a flat map. Nested object keys are
// joined with "_" and arrays are joined with "; ".
func Flatten(record map[string]any) map[string]string {
	out := make(map[string]string)
	flatten("", record, out)
	return out
}

func flatten(prefix string, m map[string]any, out map[string]string) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "_" + k
		}
		switch t := v.(type) {
		case map[string]any:
			flatten(key, t, out)
		case map[string]string:
			for sk, sv := range t {
				out[key+"_"+sk] = sv
			}
		default:
			out[key] = scalar(v)
		}
	}
}

func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case []string:
		return strings.Join(t, "; ")
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			switch e.(type) {
			case map[string]any, []any:
				b, _ := json.Marshal(e)
				parts = append(parts, string(b))
			default:
				parts = append(parts, scalar(e))
			}
		}
		return strings.Join(parts, "; ")
	default:
		return fmt.Sprint(t)
	}
}

// Build flattens records. Columns listed in preferred come first in that
// order, every other column follows alphabetically.
func Build(records []map[string]any, preferred ...string) Sheet {
	s := Sheet{Rows: make([]map[string]string, 0, len(records))}
	seen := map[string]struct{}{}
	var rest []string
	for _, r := range records {
		flat := Flatten(r)
		s.Rows = append(s.Rows, flat)
		for k := range flat {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				rest = append(rest, k)
			}
		}
	}
	for _, c := range preferred {
		if _, ok := seen[c]; ok {
			s.Columns = append(s.Columns, c)
			delete(seen, c)
		}
	}
	sort.Strings(rest)
	for _, c := range rest {
		if _, ok := seen[c]; ok {
			s.Columns = append(s.Columns, c)
		}
	}
	return s
}

// Values returns the cells of row i in column order.
func (s Sheet) Values(i int) []string {
	out := make([]string, len(s.Columns))
	for j, c := range s.Columns {
		out[j] = s.Rows[i][c]
	}
	return out
}
