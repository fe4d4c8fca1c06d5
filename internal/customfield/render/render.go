// Package render turns field definitions into input descriptors that a UI
// layer or the HTML preview can draw.
package render

import (
	"strings"

	"github.com/faciam-dev/crmfields/pkg/customfield"
)

// Kind is the input affordance used for a field.
type Kind string

const (
	KindInput    Kind = "input"
	KindSelect   Kind = "select"
	KindRadio    Kind = "radio"
	KindTextarea Kind = "textarea"
	KindCheckbox Kind = "checkbox"
)

// OnChange receives (fieldName, newValue) pairs reported by an input.
type OnChange func(fieldName, value string)

// Option is one choice of a select or radio input.
type Option struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected,omitempty"`
}

// Input describes how a single field is drawn.
type Input struct {
	Name        string   `json:"name"`
	Label       string   `json:"label"`
	Kind        Kind     `json:"kind"`
	InputType   string   `json:"inputType,omitempty"`
	Options     []Option `json:"options,omitempty"`
	Required    bool     `json:"required"`
	Placeholder string   `json:"placeholder,omitempty"`
	Value       string   `json:"value"`
	Checked     bool     `json:"checked,omitempty"`

	fieldType customfield.FieldType
	onChange  OnChange
}

var inputTypes = map[customfield.FieldType]string{
	customfield.TypeText:   "text",
	customfield.TypeEmail:  "email",
	customfield.TypePhone:  "tel",
	customfield.TypeNumber: "number",
	customfield.TypeDate:   "date",
	customfield.TypeURL:    "url",
	customfield.TypeFile:   "file",
}

// Render builds the input for def showing value. Changes made through the
// returned Input are reported to onChange; the renderer never writes to a
// value store itself.
func Render(def customfield.FieldDefinition, value string, onChange OnChange) Input {
	in := Input{
		Name:        def.FieldName,
		Label:       def.Label(),
		Required:    def.IsRequired,
		Placeholder: def.Placeholder,
		Value:       value,
		fieldType:   def.FieldType,
		onChange:    onChange,
	}
	switch def.FieldType {
	case customfield.TypeSelect:
		in.Kind = KindSelect
		in.Options = append(in.Options, Option{Value: "", Label: "", Selected: value == ""})
		in.Options = append(in.Options, options(def.Options, value)...)
	case customfield.TypeRadio:
		in.Kind = KindRadio
		in.Options = options(def.Options, value)
	case customfield.TypeTextarea:
		in.Kind = KindTextarea
	case customfield.TypeCheckbox:
		in.Kind = KindCheckbox
		in.Checked = isTrue(value)
	case customfield.TypeFile:
		in.Kind = KindInput
		in.InputType = inputTypes[def.FieldType]
		in.Value = ""
	default:
		in.Kind = KindInput
		in.InputType = inputTypes[def.FieldType]
		if in.InputType == "" {
			in.InputType = "text"
		}
	}
	return in
}

func options(opts []string, value string) []Option {
	out := make([]Option, 0, len(opts))
	for _, o := range opts {
		out = append(out, Option{Value: o, Label: o, Selected: o == value})
	}
	return out
}

func isTrue(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}

// Change reports a new value for the input. Checkbox values are normalized
// to "true" or "false". File inputs report nothing since file contents are
// not kept in the value store.
func (in Input) Change(v string) {
	if in.onChange == nil || in.fieldType == customfield.TypeFile {
		return
	}
	if in.fieldType == customfield.TypeCheckbox {
		if isTrue(v) {
			v = "true"
		} else {
			v = "false"
		}
	}
	in.onChange(in.Name, v)
}

// Toggle flips a checkbox and reports the new state.
func (in Input) Toggle() {
	if in.fieldType != customfield.TypeCheckbox {
		return
	}
	if in.Checked {
		in.Change("false")
	} else {
		in.Change("true")
	}
}

// Form renders every visible field of defs with its value from values.
func Form(defs []customfield.FieldDefinition, values customfield.Values, onChange OnChange) []Input {
	out := make([]Input, 0, len(defs))
	for _, d := range defs {
		if d.IsHidden {
			continue
		}
		out = append(out, Render(d, values[d.FieldName], onChange))
	}
	return out
}
