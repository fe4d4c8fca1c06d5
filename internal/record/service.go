package record

import (
	"context"
	"errors"
	"strings"

	"github.com/faciam-dev/crmfields/internal/csvimport"
	"github.com/faciam-dev/crmfields/internal/customfield/packager"
	"github.com/faciam-dev/crmfields/internal/customfield/registry"
	"github.com/faciam-dev/crmfields/internal/customfield/validate"
	"github.com/faciam-dev/crmfields/internal/events"
	"github.com/faciam-dev/crmfields/internal/export"
	"github.com/faciam-dev/crmfields/pkg/customfield"
	"github.com/faciam-dev/crmfields/pkg/metrics"
)

// ValidationError carries the failed validation result of a save.
type ValidationError struct {
	Result validate.Result
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Result.Errors, "; ")
}

// Service validates, packages and stores records.
type Service struct {
	Loader   *registry.Loader
	Store    Store
	Packager *packager.Packager
}

// NewService returns a Service using the embedded column table.
func NewService(l *registry.Loader, st Store) *Service {
	return &Service{Loader: l, Store: st, Packager: packager.New()}
}

// Save validates values against the visible fields of et and stores them.
// id 0 creates a record. On update, hidden fields missing from values keep
// their stored value.
func (s *Service) Save(ctx context.Context, et customfield.EntityType, id int64, values customfield.Values) (Record, error) {
	if !et.Valid() {
		return Record{}, customfield.ErrUnknownEntityType
	}
	if res := validate.Validate(s.Loader.Load(ctx, et), values); !res.IsValid {
		metrics.ValidationFailures.WithLabelValues(string(et)).Inc()
		return Record{}, &ValidationError{Result: res}
	}
	defs := s.Loader.LoadAll(ctx, et)
	if id != 0 {
		merged, err := s.keepHidden(ctx, et, id, values, defs)
		if err != nil {
			return Record{}, err
		}
		values = merged
	}
	res := s.Packager.Package(et, values, defs)
	p, ok := res.Ok()
	if !ok {
		return Record{}, res.Err()
	}
	if id == 0 {
		rec, err := s.Store.Create(ctx, p)
		if err != nil {
			return Record{}, err
		}
		events.Emit(ctx, events.New(events.RecordCreated, string(et), rec.Map()))
		return rec, nil
	}
	rec, err := s.Store.Update(ctx, id, p)
	if err != nil {
		return Record{}, err
	}
	events.Emit(ctx, events.New(events.RecordUpdated, string(et), rec.Map()))
	return rec, nil
}

func (s *Service) keepHidden(ctx context.Context, et customfield.EntityType, id int64, values customfield.Values, defs []customfield.FieldDefinition) (customfield.Values, error) {
	rec, err := s.Store.Get(ctx, et, id)
	if err != nil {
		return nil, err
	}
	stored := s.Packager.Populate(et, rec.Map(), defs)
	out := values.Clone()
	for _, d := range defs {
		if !d.IsHidden {
			continue
		}
		if _, sent := out[d.FieldName]; sent {
			continue
		}
		if v, ok := stored[d.FieldName]; ok {
			out[d.FieldName] = v
		}
	}
	return out, nil
}

// Values loads a stored record back into a value store for editing.
func (s *Service) Values(ctx context.Context, et customfield.EntityType, id int64) (customfield.Values, error) {
	rec, err := s.Store.Get(ctx, et, id)
	if err != nil {
		return nil, err
	}
	return s.Packager.Populate(et, rec.Map(), s.Loader.LoadAll(ctx, et)), nil
}

// Delete removes a record.
func (s *Service) Delete(ctx context.Context, et customfield.EntityType, id int64) error {
	if err := s.Store.Delete(ctx, et, id); err != nil {
		return err
	}
	events.Emit(ctx, events.New(events.RecordDeleted, string(et), map[string]int64{"id": id}))
	return nil
}

// CreatePayload stores an already packaged record.
func (s *Service) CreatePayload(ctx context.Context, et customfield.EntityType, p packager.Payload) (Record, error) {
	if !et.Valid() {
		return Record{}, customfield.ErrUnknownEntityType
	}
	p.EntityType = et
	rec, err := s.Store.Create(ctx, p)
	if err != nil {
		return Record{}, err
	}
	events.Emit(ctx, events.New(events.RecordCreated, string(et), rec.Map()))
	return rec, nil
}

// Submit stores an already packaged record. It lets the service act as the
// import target.
func (s *Service) Submit(ctx context.Context, et customfield.EntityType, p packager.Payload) error {
	_, err := s.CreatePayload(ctx, et, p)
	return err
}

func (s *Service) session(ctx context.Context, et customfield.EntityType, text string, mapping map[string]string) (csvimport.Session, []customfield.FieldDefinition, error) {
	sess, err := csvimport.Parse(text)
	if err != nil {
		return sess, nil, err
	}
	defs := s.Loader.LoadAll(ctx, et)
	if len(mapping) == 0 {
		mapping = csvimport.AutoMap(sess.Headers, registry.Visible(defs))
	}
	sess.Mappings = mapping
	return sess, defs, nil
}

// Preview parses csv text and proposes a mapping. mapping, when given,
// replaces the proposal.
func (s *Service) Preview(ctx context.Context, et customfield.EntityType, text string, mapping map[string]string) (csvimport.Session, []csvimport.MappedRow, error) {
	sess, defs, err := s.session(ctx, et, text, mapping)
	if err != nil {
		return sess, nil, err
	}
	return sess, csvimport.ApplyMapping(sess.Rows, sess.Mappings, defs), nil
}

// Import parses csv text and submits every row in order.
func (s *Service) Import(ctx context.Context, et customfield.EntityType, text string, mapping map[string]string) (csvimport.Summary, error) {
	sess, defs, err := s.session(ctx, et, text, mapping)
	if err != nil {
		return csvimport.Summary{}, err
	}
	im := &csvimport.Importer{Submitter: s, Packager: s.Packager}
	sum := im.Run(ctx, et, defs, sess.Rows, sess.Mappings)
	events.Emit(ctx, events.New(events.ImportCompleted, string(et), sum))
	return sum, nil
}

// Sheet returns every record of et flattened for export.
func (s *Service) Sheet(ctx context.Context, et customfield.EntityType) (export.Sheet, error) {
	recs, err := s.Store.List(ctx, et)
	if err != nil {
		return export.Sheet{}, err
	}
	maps := make([]map[string]any, len(recs))
	for i, r := range recs {
		maps[i] = r.Map()
	}
	preferred := append([]string{"id"}, s.Packager.ColumnNames(et)...)
	return export.Build(maps, preferred...), nil
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}
