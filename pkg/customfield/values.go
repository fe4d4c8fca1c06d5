package customfield

// Values holds the current field values of one record keyed by fieldName.
// It is not safe for concurrent use.
type Values map[string]string

// NewValues returns a store seeded with each definition's default value.
func NewValues(defs []FieldDefinition) Values {
	v := make(Values, len(defs))
	for _, d := range defs {
		if d.DefaultValue != "" && d.FieldType != TypeFile {
			v[d.FieldName] = d.DefaultValue
		}
	}
	return v
}

// Get returns the value for name and whether it is present.
func (v Values) Get(name string) (string, bool) {
	s, ok := v[name]
	return s, ok
}

// Set stores value under name. Its signature matches the renderer's
// change callback so a store can be handed to it directly.
func (v Values) Set(name, value string) {
	v[name] = value
}

// Delete removes name from the store.
func (v Values) Delete(name string) {
	delete(v, name)
}

// Clone returns a shallow copy.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, s := range v {
		out[k] = s
	}
	return out
}
