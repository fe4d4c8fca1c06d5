// Package record persists packaged records and ties the field engine
// together for create and update requests.
package record

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/faciam-dev/crmfields/internal/customfield/packager"
	"github.com/faciam-dev/crmfields/pkg/customfield"
)

// Record is a stored record: its fixed columns and custom_fields object.
type Record struct {
	ID           int64
	EntityType   customfield.EntityType
	Columns      map[string]any
	CustomFields map[string]string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Map returns the record in the shape returned by the record API.
func (r Record) Map() map[string]any {
	out := make(map[string]any, len(r.Columns)+4)
	for k, v := range r.Columns {
		out[k] = v
	}
	cf := r.CustomFields
	if cf == nil {
		cf = map[string]string{}
	}
	out[packager.CustomFieldsKey] = cf
	out["id"] = r.ID
	if !r.CreatedAt.IsZero() {
		out["created_at"] = r.CreatedAt
	}
	if !r.UpdatedAt.IsZero() {
		out["updated_at"] = r.UpdatedAt
	}
	return out
}

func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Map())
}

// ErrNoStore is returned when records are submitted without a store.
var ErrNoStore = errors.New("no record store configured")

// Store persists records.
type Store interface {
	Create(ctx context.Context, p packager.Payload) (Record, error)
	Update(ctx context.Context, id int64, p packager.Payload) (Record, error)
	Get(ctx context.Context, et customfield.EntityType, id int64) (Record, error)
	List(ctx context.Context, et customfield.EntityType) ([]Record, error)
	Delete(ctx context.Context, et customfield.EntityType, id int64) error
}
