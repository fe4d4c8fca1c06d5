package schema

import (
	"github.com/faciam-dev/crmfields/internal/customfield/render"
)

// Values is a value store keyed by field name.
type Values struct {
	Values map[string]string `json:"values"`
}

// Form is the rendered input list of an entity type.
type Form struct {
	Inputs []render.Input `json:"inputs"`
}
