package schema

import (
	"strings"

	"github.com/faciam-dev/crmfields/pkg/customfield"
)

// Field is the writable part of a field definition.
type Field struct {
	FieldName    string   `json:"fieldName,omitempty" doc:"Machine name. Generated as Field_N when empty on create; ignored on update."`
	FieldLabel   string   `json:"fieldLabel" minLength:"1"`
	FieldType    string   `json:"fieldType" enum:"text,email,phone,number,date,textarea,select,checkbox,radio,url,file"`
	IsRequired   bool     `json:"isRequired,omitempty"`
	IsHidden     bool     `json:"isHidden,omitempty"`
	Options      []string `json:"options,omitempty"`
	Placeholder  string   `json:"placeholder,omitempty"`
	DefaultValue string   `json:"defaultValue,omitempty"`
	SortOrder    int      `json:"sortOrder,omitempty"`
	Validator    string   `json:"validator,omitempty"`
	Aliases      []string `json:"aliases,omitempty"`
}

// Definition converts the body into a definition of et.
func (f Field) Definition(et customfield.EntityType, id int64) customfield.FieldDefinition {
	return customfield.FieldDefinition{
		ID:           id,
		EntityType:   et,
		FieldName:    strings.TrimSpace(f.FieldName),
		FieldLabel:   strings.TrimSpace(f.FieldLabel),
		FieldType:    customfield.FieldType(f.FieldType),
		IsRequired:   f.IsRequired,
		IsHidden:     f.IsHidden,
		Options:      f.Options,
		Placeholder:  f.Placeholder,
		DefaultValue: f.DefaultValue,
		SortOrder:    f.SortOrder,
		Validator:    f.Validator,
		Aliases:      f.Aliases,
	}
}

// NextName is the name the next created field will receive.
type NextName struct {
	FieldName string `json:"fieldName" example:"Field_4"`
}
