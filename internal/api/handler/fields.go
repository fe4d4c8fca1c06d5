package handler

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/danielgtaylor/huma/v2"

	"github.com/faciam-dev/crmfields/internal/api/schema"
	"github.com/faciam-dev/crmfields/internal/customfield/audit"
	"github.com/faciam-dev/crmfields/internal/customfield/registry"
	"github.com/faciam-dev/crmfields/internal/events"
	"github.com/faciam-dev/crmfields/internal/logger"
	"github.com/faciam-dev/crmfields/internal/server/middleware"
	"github.com/faciam-dev/crmfields/internal/server/reserved"
	"github.com/faciam-dev/crmfields/pkg/customfield"
)

// FieldHandler serves field definition CRUD.
type FieldHandler struct {
	Store    registry.Store
	Loader   *registry.Loader
	Recorder *audit.Recorder
	// Invalidate drops cached definitions of an entity type after a change.
	Invalidate func(customfield.EntityType)
}

type entityParam struct {
	EntityType string `path:"entityType" example:"job-seekers"`
}

type listFieldsInput struct {
	EntityType string `path:"entityType"`
	All        bool   `query:"all" doc:"Include hidden fields"`
}

type fieldsOutput struct {
	Body []customfield.FieldDefinition
}

type createFieldInput struct {
	EntityType string `path:"entityType"`
	Body       schema.Field
}

type fieldOutput struct {
	Body customfield.FieldDefinition
}

type fieldIDInput struct {
	EntityType string `path:"entityType"`
	ID         int64  `path:"id"`
}

type updateFieldInput struct {
	EntityType string `path:"entityType"`
	ID         int64  `path:"id"`
	Body       schema.Field
}

type nextNameOutput struct {
	Body schema.NextName
}

type historyInput struct {
	ID int64 `path:"id"`
}

type historyOutput struct {
	Body []audit.Entry
}

func RegisterFields(api huma.API, h *FieldHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "listFields",
		Method:      http.MethodGet,
		Path:        "/v1/fields/{entityType}",
		Summary:     "List field definitions",
		Tags:        []string{"Field"},
	}, h.list)
	huma.Register(api, huma.Operation{
		OperationID:   "createField",
		Method:        http.MethodPost,
		Path:          "/v1/fields/{entityType}",
		Summary:       "Create field definition",
		Tags:          []string{"Field"},
		Errors:        []int{http.StatusConflict, http.StatusUnprocessableEntity},
		DefaultStatus: http.StatusCreated,
	}, h.create)
	huma.Register(api, huma.Operation{
		OperationID: "updateField",
		Method:      http.MethodPut,
		Path:        "/v1/fields/{entityType}/{id}",
		Summary:     "Update field definition",
		Tags:        []string{"Field"},
		Errors:      []int{http.StatusNotFound, http.StatusUnprocessableEntity},
	}, h.update)
	huma.Register(api, huma.Operation{
		OperationID:   "deleteField",
		Method:        http.MethodDelete,
		Path:          "/v1/fields/{entityType}/{id}",
		Summary:       "Delete field definition",
		Tags:          []string{"Field"},
		Errors:        []int{http.StatusNotFound},
		DefaultStatus: http.StatusNoContent,
	}, h.delete)
	huma.Register(api, huma.Operation{
		OperationID: "nextFieldName",
		Method:      http.MethodGet,
		Path:        "/v1/fields/{entityType}/next-name",
		Summary:     "Preview the generated name of the next field",
		Tags:        []string{"Field"},
	}, h.nextName)
	huma.Register(api, huma.Operation{
		OperationID: "fieldHistory",
		Method:      http.MethodGet,
		Path:        "/v1/field-history/{id}",
		Summary:     "List changes of a field definition",
		Tags:        []string{"Field"},
	}, h.history)
}

func (h *FieldHandler) list(ctx context.Context, in *listFieldsInput) (*fieldsOutput, error) {
	et, err := entityType(in.EntityType)
	if err != nil {
		return nil, err
	}
	if in.All {
		return &fieldsOutput{Body: h.Loader.LoadAll(ctx, et)}, nil
	}
	return &fieldsOutput{Body: h.Loader.Load(ctx, et)}, nil
}

func (h *FieldHandler) create(ctx context.Context, in *createFieldInput) (*fieldOutput, error) {
	et, err := entityType(in.EntityType)
	if err != nil {
		return nil, err
	}
	def := in.Body.Definition(et, 0)
	if def.FieldName != "" && reserved.Is(def.FieldName) {
		return nil, huma.Error409Conflict(fmt.Sprintf("field name %q is reserved", def.FieldName))
	}
	def, err = h.Store.Create(ctx, def)
	if err != nil {
		return nil, httpError(err)
	}
	h.changed(ctx, events.FieldCreated, nil, &def)
	return &fieldOutput{Body: def}, nil
}

func (h *FieldHandler) update(ctx context.Context, in *updateFieldInput) (*fieldOutput, error) {
	et, err := entityType(in.EntityType)
	if err != nil {
		return nil, err
	}
	old, err := h.Store.Get(ctx, et, in.ID)
	if err != nil {
		return nil, httpError(err)
	}
	def, err := h.Store.Update(ctx, in.Body.Definition(et, in.ID))
	if err != nil {
		return nil, httpError(err)
	}
	h.changed(ctx, events.FieldUpdated, &old, &def)
	return &fieldOutput{Body: def}, nil
}

func (h *FieldHandler) delete(ctx context.Context, in *fieldIDInput) (*struct{}, error) {
	et, err := entityType(in.EntityType)
	if err != nil {
		return nil, err
	}
	old, err := h.Store.Get(ctx, et, in.ID)
	if err != nil {
		return nil, httpError(err)
	}
	if err := h.Store.Delete(ctx, et, in.ID); err != nil {
		return nil, httpError(err)
	}
	h.changed(ctx, events.FieldDeleted, &old, nil)
	return &struct{}{}, nil
}

func (h *FieldHandler) nextName(ctx context.Context, in *entityParam) (*nextNameOutput, error) {
	et, err := entityType(in.EntityType)
	if err != nil {
		return nil, err
	}
	defs, err := h.Store.Fields(ctx, et)
	if err != nil {
		return nil, err
	}
	return &nextNameOutput{Body: schema.NextName{FieldName: customfield.NextFieldName(defs)}}, nil
}

func (h *FieldHandler) history(ctx context.Context, in *historyInput) (*historyOutput, error) {
	if h.Recorder == nil {
		return &historyOutput{Body: []audit.Entry{}}, nil
	}
	entries, err := h.Recorder.History(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	return &historyOutput{Body: entries}, nil
}

// changed records the audit row, drops cached definitions and emits the
// event of a field mutation.
func (h *FieldHandler) changed(ctx context.Context, name string, old, new *customfield.FieldDefinition) {
	ref := new
	if ref == nil {
		ref = old
	}
	if err := h.Recorder.Write(ctx, middleware.UserFromContext(ctx), old, new); err != nil {
		logger.L.Error("audit write", "field", ref.FieldName, "err", err)
	}
	if h.Invalidate != nil {
		h.Invalidate(ref.EntityType)
	}
	events.Emit(ctx, events.New(name, string(ref.EntityType), ref))
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
