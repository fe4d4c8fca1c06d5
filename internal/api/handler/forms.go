package handler

import (
	"bytes"
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/faciam-dev/crmfields/internal/api/schema"
	"github.com/faciam-dev/crmfields/internal/customfield/registry"
	"github.com/faciam-dev/crmfields/internal/customfield/render"
	"github.com/faciam-dev/crmfields/internal/customfield/validate"
	"github.com/faciam-dev/crmfields/pkg/customfield"
)

// FormHandler renders and validates forms built from field definitions.
type FormHandler struct {
	Loader *registry.Loader
}

type formValuesInput struct {
	EntityType string `path:"entityType"`
	Body       schema.Values
}

type formOutput struct {
	Body schema.Form
}

type htmlOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

type validateOutput struct {
	Body validate.Result
}

func RegisterForms(api huma.API, h *FormHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "renderForm",
		Method:      http.MethodPost,
		Path:        "/v1/forms/{entityType}/render",
		Summary:     "Render the inputs of an entity form",
		Tags:        []string{"Form"},
	}, h.render)
	huma.Register(api, huma.Operation{
		OperationID: "formHTML",
		Method:      http.MethodGet,
		Path:        "/v1/forms/{entityType}/html",
		Summary:     "HTML preview of an entity form",
		Tags:        []string{"Form"},
	}, h.html)
	huma.Register(api, huma.Operation{
		OperationID: "validateForm",
		Method:      http.MethodPost,
		Path:        "/v1/forms/{entityType}/validate",
		Summary:     "Validate values against the visible fields",
		Tags:        []string{"Form"},
	}, h.validate)
}

// values returns a value store seeded with field defaults and overlaid
// with in.
func values(defs []customfield.FieldDefinition, in map[string]string) customfield.Values {
	v := customfield.NewValues(defs)
	for k, s := range in {
		v.Set(k, s)
	}
	return v
}

func (h *FormHandler) render(ctx context.Context, in *formValuesInput) (*formOutput, error) {
	et, err := entityType(in.EntityType)
	if err != nil {
		return nil, err
	}
	defs := h.Loader.Load(ctx, et)
	return &formOutput{Body: schema.Form{Inputs: render.Form(defs, values(defs, in.Body.Values), nil)}}, nil
}

func (h *FormHandler) html(ctx context.Context, in *entityParam) (*htmlOutput, error) {
	et, err := entityType(in.EntityType)
	if err != nil {
		return nil, err
	}
	defs := h.Loader.Load(ctx, et)
	var buf bytes.Buffer
	if err := render.WriteHTML(&buf, render.Form(defs, values(defs, nil), nil)); err != nil {
		return nil, err
	}
	return &htmlOutput{ContentType: "text/html; charset=utf-8", Body: buf.Bytes()}, nil
}

func (h *FormHandler) validate(ctx context.Context, in *formValuesInput) (*validateOutput, error) {
	et, err := entityType(in.EntityType)
	if err != nil {
		return nil, err
	}
	res := validate.Validate(h.Loader.Load(ctx, et), customfield.Values(in.Body.Values))
	return &validateOutput{Body: res}, nil
}
