package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/faciam-dev/crmfields/internal/api/schema"
	"github.com/faciam-dev/crmfields/internal/csvimport"
	"github.com/faciam-dev/crmfields/internal/record"
)

// ImportHandler runs CSV imports into the record store.
type ImportHandler struct {
	Service *record.Service
}

type importInput struct {
	EntityType string `path:"entityType"`
	Body       schema.Import
}

type previewOutput struct {
	Body schema.Preview
}

type importOutput struct {
	Body csvimport.Summary
}

type fileOutput struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	Body               []byte
}

func RegisterImports(api huma.API, h *ImportHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "previewImport",
		Method:      http.MethodPost,
		Path:        "/v1/imports/{entityType}/preview",
		Summary:     "Parse CSV and propose a column mapping",
		Tags:        []string{"Import"},
		Errors:      []int{http.StatusUnprocessableEntity},
	}, h.preview)
	huma.Register(api, huma.Operation{
		OperationID: "runImport",
		Method:      http.MethodPost,
		Path:        "/v1/imports/{entityType}",
		Summary:     "Import CSV rows as records",
		Tags:        []string{"Import"},
		Errors:      []int{http.StatusUnprocessableEntity},
	}, h.run)
	huma.Register(api, huma.Operation{
		OperationID: "importTemplate",
		Method:      http.MethodGet,
		Path:        "/v1/imports/{entityType}/template",
		Summary:     "Download an empty CSV template",
		Tags:        []string{"Import"},
	}, h.template)
}

func (h *ImportHandler) preview(ctx context.Context, in *importInput) (*previewOutput, error) {
	et, err := entityType(in.EntityType)
	if err != nil {
		return nil, err
	}
	sess, rows, err := h.Service.Preview(ctx, et, in.Body.CSV, in.Body.Mapping)
	if err != nil {
		return nil, httpError(err)
	}
	p := schema.Preview{Headers: sess.Headers, Mapping: sess.Mappings, Rows: rows, Total: len(rows)}
	for _, r := range rows {
		if r.Valid {
			p.Valid++
		}
	}
	return &previewOutput{Body: p}, nil
}

func (h *ImportHandler) run(ctx context.Context, in *importInput) (*importOutput, error) {
	et, err := entityType(in.EntityType)
	if err != nil {
		return nil, err
	}
	sum, err := h.Service.Import(ctx, et, in.Body.CSV, in.Body.Mapping)
	if err != nil {
		return nil, httpError(err)
	}
	return &importOutput{Body: sum}, nil
}

func (h *ImportHandler) template(ctx context.Context, in *entityParam) (*fileOutput, error) {
	et, err := entityType(in.EntityType)
	if err != nil {
		return nil, err
	}
	name, data := csvimport.Template(et, h.Service.Loader.Load(ctx, et))
	return &fileOutput{
		ContentType:        "text/csv; charset=utf-8",
		ContentDisposition: fmt.Sprintf("attachment; filename=%q", name),
		Body:               data,
	}, nil
}
