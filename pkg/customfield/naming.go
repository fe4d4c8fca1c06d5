package customfield

import (
	"strconv"
	"strings"
)

// FieldNamePrefix is the prefix of generated machine names.
const FieldNamePrefix = "Field_"

// NextFieldName returns Field_<n> where n is one greater than the highest
// numeric suffix among existing Field_* names. The first name is Field_1.
func NextFieldName(defs []FieldDefinition) string {
	max := 0
	for _, d := range defs {
		if !strings.HasPrefix(d.FieldName, FieldNamePrefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(d.FieldName, FieldNamePrefix))
		if err != nil || n < 0 {
			continue
		}
		if n > max {
			max = n
		}
	}
	return FieldNamePrefix + strconv.Itoa(max+1)
}
