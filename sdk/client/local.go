package client

import (
	"bytes"
	"context"
	"time"

	"github.com/faciam-dev/crmfields/internal/customfield/audit"
	"github.com/faciam-dev/crmfields/internal/customfield/packager"
	"github.com/faciam-dev/crmfields/internal/customfield/registry"
	"github.com/faciam-dev/crmfields/internal/export"
	"github.com/faciam-dev/crmfields/internal/record"
	"github.com/faciam-dev/crmfields/pkg/customfield"
)

type localClient struct {
	store    registry.Store
	records  *record.Service
	recorder *audit.Recorder
	actor    string
}

// NewLocal returns a Client working directly on a field store. records may
// be nil when nothing is submitted; recorder may be nil to skip history.
func NewLocal(store registry.Store, records *record.Service, recorder *audit.Recorder, actor string) Client {
	return &localClient{store: store, records: records, recorder: recorder, actor: actor}
}

func (l *localClient) Fields(ctx context.Context, et customfield.EntityType) ([]customfield.FieldDefinition, error) {
	return l.store.Fields(ctx, et)
}

func (l *localClient) CreateField(ctx context.Context, def customfield.FieldDefinition) (customfield.FieldDefinition, error) {
	out, err := l.store.Create(ctx, def)
	if err != nil {
		return out, err
	}
	return out, l.recorder.Write(ctx, l.actor, nil, &out)
}

func (l *localClient) UpdateField(ctx context.Context, def customfield.FieldDefinition) (customfield.FieldDefinition, error) {
	old, err := l.store.Get(ctx, def.EntityType, def.ID)
	if err != nil {
		return customfield.FieldDefinition{}, err
	}
	out, err := l.store.Update(ctx, def)
	if err != nil {
		return out, err
	}
	return out, l.recorder.Write(ctx, l.actor, &old, &out)
}

func (l *localClient) DeleteField(ctx context.Context, et customfield.EntityType, id int64) error {
	old, err := l.store.Get(ctx, et, id)
	if err != nil {
		return err
	}
	if err := l.store.Delete(ctx, et, id); err != nil {
		return err
	}
	return l.recorder.Write(ctx, l.actor, &old, nil)
}

func (l *localClient) NextFieldName(ctx context.Context, et customfield.EntityType) (string, error) {
	defs, err := l.store.Fields(ctx, et)
	if err != nil {
		return "", err
	}
	return customfield.NextFieldName(defs), nil
}

func (l *localClient) History(ctx context.Context, id int64) ([]audit.Entry, error) {
	if l.recorder == nil {
		return nil, nil
	}
	return l.recorder.History(ctx, id)
}

func (l *localClient) Submit(ctx context.Context, et customfield.EntityType, p packager.Payload) error {
	if l.records == nil {
		return record.ErrNoStore
	}
	return l.records.Submit(ctx, et, p)
}

func (l *localClient) Export(ctx context.Context, et customfield.EntityType, format export.Format) (string, []byte, error) {
	if l.records == nil {
		return "", nil, record.ErrNoStore
	}
	sheet, err := l.records.Sheet(ctx, et)
	if err != nil {
		return "", nil, err
	}
	var buf bytes.Buffer
	if err := export.Write(&buf, format, sheet); err != nil {
		return "", nil, err
	}
	return export.FileName(et.RecordType(), format, time.Now()), buf.Bytes(), nil
}

func (l *localClient) Mode() string { return "local" }
