// Package client talks to the field engine either over HTTP or in process.
package client

import (
	"context"

	"github.com/faciam-dev/crmfields/internal/customfield/audit"
	"github.com/faciam-dev/crmfields/internal/customfield/packager"
	"github.com/faciam-dev/crmfields/internal/export"
	"github.com/faciam-dev/crmfields/pkg/customfield"
)

// Client manages field definitions and submits packaged records. Every
// Client is a registry.Source and a csvimport.Submitter.
type Client interface {
	Fields(ctx context.Context, et customfield.EntityType) ([]customfield.FieldDefinition, error)
	CreateField(ctx context.Context, def customfield.FieldDefinition) (customfield.FieldDefinition, error)
	UpdateField(ctx context.Context, def customfield.FieldDefinition) (customfield.FieldDefinition, error)
	DeleteField(ctx context.Context, et customfield.EntityType, id int64) error
	NextFieldName(ctx context.Context, et customfield.EntityType) (string, error)
	History(ctx context.Context, id int64) ([]audit.Entry, error)
	Submit(ctx context.Context, et customfield.EntityType, p packager.Payload) error
	// Export returns every record of et as a file in the given format
	// (csv or xlsx) along with its suggested name.
	Export(ctx context.Context, et customfield.EntityType, format export.Format) (string, []byte, error)
	Mode() string
}
