package handler

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/faciam-dev/crmfields/internal/csvimport"
	"github.com/faciam-dev/crmfields/internal/customfield/packager"
	"github.com/faciam-dev/crmfields/internal/record"
	"github.com/faciam-dev/crmfields/pkg/customfield"
)

// httpError maps package sentinel errors onto HTTP status codes. Unknown
// errors are returned unchanged and surface as 500.
func httpError(err error) error {
	if err == nil {
		return nil
	}
	if ve, ok := record.IsValidation(err); ok {
		details := make([]error, 0, len(ve.Result.FieldErrors))
		for _, name := range sortedKeys(ve.Result.FieldErrors) {
			details = append(details, &huma.ErrorDetail{Location: "body.values." + name, Message: ve.Result.FieldErrors[name]})
		}
		return huma.Error422UnprocessableEntity("validation failed", details...)
	}
	switch {
	case errors.Is(err, customfield.ErrNotFound), errors.Is(err, customfield.ErrUnknownEntityType):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, customfield.ErrDuplicateField):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, customfield.ErrInvalidField),
		errors.Is(err, packager.ErrInvalidPayload),
		errors.Is(err, csvimport.ErrNoHeader):
		return huma.Error422UnprocessableEntity(err.Error())
	}
	return err
}

func entityType(s string) (customfield.EntityType, error) {
	et, err := customfield.ParseEntityType(s)
	if err != nil {
		return "", huma.Error404NotFound(err.Error())
	}
	return et, nil
}
