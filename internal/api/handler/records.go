package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/faciam-dev/crmfields/internal/api/schema"
	"github.com/faciam-dev/crmfields/internal/customfield/packager"
	"github.com/faciam-dev/crmfields/internal/record"
	"github.com/faciam-dev/crmfields/pkg/customfield"
)

// RecordHandler stores records built from form values.
type RecordHandler struct {
	Service *record.Service
}

type recordIDInput struct {
	EntityType string `path:"entityType"`
	ID         int64  `path:"id"`
}

type saveRecordInput struct {
	EntityType string `path:"entityType"`
	ID         int64  `path:"id"`
	Body       schema.Values
}

type createRecordInput struct {
	EntityType string `path:"entityType"`
	Body       schema.Values
}

type payloadInput struct {
	EntityType string `path:"entityType"`
	RawBody    []byte `contentType:"application/json"`
}

type recordOutput struct {
	Body map[string]any
}

type recordsOutput struct {
	Body []map[string]any
}

type recordValuesOutput struct {
	Body schema.Values
}

func RegisterRecords(api huma.API, h *RecordHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "listRecords",
		Method:      http.MethodGet,
		Path:        "/v1/records/{entityType}",
		Summary:     "List records",
		Tags:        []string{"Record"},
	}, h.list)
	huma.Register(api, huma.Operation{
		OperationID:   "createRecord",
		Method:        http.MethodPost,
		Path:          "/v1/records/{entityType}",
		Summary:       "Create record from form values",
		Tags:          []string{"Record"},
		Errors:        []int{http.StatusUnprocessableEntity},
		DefaultStatus: http.StatusCreated,
	}, h.create)
	huma.Register(api, huma.Operation{
		OperationID:   "createRecordPayload",
		Method:        http.MethodPost,
		Path:          "/v1/records/{entityType}/payload",
		Summary:       "Create record from a packaged payload",
		Description:   "The body holds fixed columns at the top level and a custom_fields object.",
		Tags:          []string{"Record"},
		Errors:        []int{http.StatusUnprocessableEntity},
		DefaultStatus: http.StatusCreated,
	}, h.createPayload)
	huma.Register(api, huma.Operation{
		OperationID: "getRecord",
		Method:      http.MethodGet,
		Path:        "/v1/records/{entityType}/{id}",
		Summary:     "Get record",
		Tags:        []string{"Record"},
		Errors:      []int{http.StatusNotFound},
	}, h.get)
	huma.Register(api, huma.Operation{
		OperationID: "getRecordValues",
		Method:      http.MethodGet,
		Path:        "/v1/records/{entityType}/{id}/values",
		Summary:     "Get record as form values",
		Tags:        []string{"Record"},
		Errors:      []int{http.StatusNotFound},
	}, h.values)
	huma.Register(api, huma.Operation{
		OperationID: "updateRecord",
		Method:      http.MethodPut,
		Path:        "/v1/records/{entityType}/{id}",
		Summary:     "Update record from form values",
		Tags:        []string{"Record"},
		Errors:      []int{http.StatusNotFound, http.StatusUnprocessableEntity},
	}, h.update)
	huma.Register(api, huma.Operation{
		OperationID:   "deleteRecord",
		Method:        http.MethodDelete,
		Path:          "/v1/records/{entityType}/{id}",
		Summary:       "Delete record",
		Tags:          []string{"Record"},
		Errors:        []int{http.StatusNotFound},
		DefaultStatus: http.StatusNoContent,
	}, h.delete)
}

func (h *RecordHandler) list(ctx context.Context, in *entityParam) (*recordsOutput, error) {
	et, err := entityType(in.EntityType)
	if err != nil {
		return nil, err
	}
	recs, err := h.Service.Store.List(ctx, et)
	if err != nil {
		return nil, httpError(err)
	}
	out := make([]map[string]any, len(recs))
	for i, r := range recs {
		out[i] = r.Map()
	}
	return &recordsOutput{Body: out}, nil
}

func (h *RecordHandler) create(ctx context.Context, in *createRecordInput) (*recordOutput, error) {
	return h.save(ctx, in.EntityType, 0, in.Body.Values)
}

func (h *RecordHandler) update(ctx context.Context, in *saveRecordInput) (*recordOutput, error) {
	return h.save(ctx, in.EntityType, in.ID, in.Body.Values)
}

func (h *RecordHandler) save(ctx context.Context, name string, id int64, vals map[string]string) (*recordOutput, error) {
	et, err := entityType(name)
	if err != nil {
		return nil, err
	}
	rec, err := h.Service.Save(ctx, et, id, customfield.Values(vals))
	if err != nil {
		return nil, httpError(err)
	}
	return &recordOutput{Body: rec.Map()}, nil
}

func (h *RecordHandler) createPayload(ctx context.Context, in *payloadInput) (*recordOutput, error) {
	et, err := entityType(in.EntityType)
	if err != nil {
		return nil, err
	}
	var p packager.Payload
	if err := json.Unmarshal(in.RawBody, &p); err != nil {
		return nil, huma.Error422UnprocessableEntity(fmt.Sprintf("%v: %v", packager.ErrInvalidPayload, err))
	}
	rec, err := h.Service.CreatePayload(ctx, et, p)
	if err != nil {
		return nil, httpError(err)
	}
	return &recordOutput{Body: rec.Map()}, nil
}

func (h *RecordHandler) get(ctx context.Context, in *recordIDInput) (*recordOutput, error) {
	et, err := entityType(in.EntityType)
	if err != nil {
		return nil, err
	}
	rec, err := h.Service.Store.Get(ctx, et, in.ID)
	if err != nil {
		return nil, httpError(err)
	}
	return &recordOutput{Body: rec.Map()}, nil
}

func (h *RecordHandler) values(ctx context.Context, in *recordIDInput) (*recordValuesOutput, error) {
	et, err := entityType(in.EntityType)
	if err != nil {
		return nil, err
	}
	v, err := h.Service.Values(ctx, et, in.ID)
	if err != nil {
		return nil, httpError(err)
	}
	return &recordValuesOutput{Body: schema.Values{Values: v}}, nil
}

func (h *RecordHandler) delete(ctx context.Context, in *recordIDInput) (*struct{}, error) {
	et, err := entityType(in.EntityType)
	if err != nil {
		return nil, err
	}
	if err := h.Service.Delete(ctx, et, in.ID); err != nil {
		return nil, httpError(err)
	}
	return &struct{}{}, nil
}
