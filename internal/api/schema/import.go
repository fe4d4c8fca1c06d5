package schema

import "github.com/faciam-dev/crmfields/internal/csvimport"

// Import carries CSV text and an optional mapping (header to field name,
// "skip" to ignore a column). An empty mapping is proposed automatically.
type Import struct {
	CSV     string            `json:"csv" minLength:"1"`
	Mapping map[string]string `json:"mapping,omitempty"`
}

// Preview is the parsed file with the mapping in effect.
type Preview struct {
	Headers []string              `json:"headers"`
	Mapping map[string]string     `json:"mapping"`
	Rows    []csvimport.MappedRow `json:"rows"`
	Total   int                   `json:"total"`
	Valid   int                   `json:"valid"`
}
