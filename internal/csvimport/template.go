package csvimport

import (
	"github.com/faciam-dev/crmfields/pkg/customfield"
)

// Template returns an empty import file for et whose header row is the
// visible field labels in display order.
func Template(et customfield.EntityType, defs []customfield.FieldDefinition) (filename string, data []byte) {
	var labels []string
	for _, d := range defs {
		if d.IsHidden {
			continue
		}
		labels = append(labels, d.Label())
	}
	return et.RecordType() + "_Template.csv", Encode(labels, nil)
}
