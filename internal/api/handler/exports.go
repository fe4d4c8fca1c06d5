package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/faciam-dev/crmfields/internal/export"
	"github.com/faciam-dev/crmfields/internal/record"
)

// ExportHandler downloads records as CSV or XLSX.
type ExportHandler struct {
	Service *record.Service
	Now     func() time.Time
}

type exportInput struct {
	EntityType string `path:"entityType"`
	Format     string `query:"format" enum:"csv,xlsx" default:"csv"`
}

func RegisterExports(api huma.API, h *ExportHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "exportRecords",
		Method:      http.MethodGet,
		Path:        "/v1/exports/{entityType}",
		Summary:     "Export records",
		Tags:        []string{"Export"},
	}, h.export)
}

func (h *ExportHandler) export(ctx context.Context, in *exportInput) (*fileOutput, error) {
	et, err := entityType(in.EntityType)
	if err != nil {
		return nil, err
	}
	sheet, err := h.Service.Sheet(ctx, et)
	if err != nil {
		return nil, httpError(err)
	}
	f := export.Format(in.Format)
	var buf bytes.Buffer
	if err := export.Write(&buf, f, sheet); err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	name := export.FileName(et.RecordType(), f, now())
	return &fileOutput{
		ContentType:        f.ContentType(),
		ContentDisposition: fmt.Sprintf("attachment; filename=%q", name),
		Body:               buf.Bytes(),
	}, nil
}
