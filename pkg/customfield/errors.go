package customfield

import "errors"

var (
	ErrUnknownEntityType = errors.New("unknown entity type")
	ErrInvalidField      = errors.New("invalid field definition")
	ErrDuplicateField    = errors.New("field name already exists")
	ErrNotFound          = errors.New("field not found")
)
