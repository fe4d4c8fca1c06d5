package csvimport

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/faciam-dev/crmfields/internal/customfield/packager"
	"github.com/faciam-dev/crmfields/pkg/customfield"
	"github.com/faciam-dev/crmfields/pkg/metrics"
)

// MaxErrors caps the number of row errors kept in a Summary.
const MaxErrors = 20

// Submitter persists one packaged record.
type Submitter interface {
	Submit(ctx context.Context, et customfield.EntityType, p packager.Payload) error
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, et customfield.EntityType, p packager.Payload) error

func (f SubmitterFunc) Submit(ctx context.Context, et customfield.EntityType, p packager.Payload) error {
	return f(ctx, et, p)
}

// Summary is the outcome of an import run.
type Summary struct {
	ID         string   `json:"id"`
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Skipped    int      `json:"skipped,omitempty"`
	Errors     []string `json:"errors"`
}

func (s *Summary) fail(msg string) {
	s.Failed++
	if len(s.Errors) < MaxErrors {
		s.Errors = append(s.Errors, msg)
	}
}

// Importer submits mapped rows one at a time. A failing row never aborts
// the run.
type Importer struct {
	Submitter Submitter
	Packager  *packager.Packager
	Logger    *zap.SugaredLogger
	// OnProgress, when set, is called after each row.
	OnProgress func(done, total int)
}

// Run imports rows of et. Each row is validated, packaged and submitted
// before the next one starts. When ctx is cancelled no further rows are
// submitted and the remaining ones are counted as skipped.
func (im *Importer) Run(ctx context.Context, et customfield.EntityType, defs []customfield.FieldDefinition, rows []Row, mapping map[string]string) Summary {
	log := im.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	pk := im.Packager
	if pk == nil {
		pk = packager.New()
	}
	sum := Summary{ID: uuid.NewString(), Total: len(rows), Errors: []string{}}
	log = log.With("import", sum.ID, "entity", et)
	mapped := ApplyMapping(rows, mapping, defs)
	for i, m := range mapped {
		if err := ctx.Err(); err != nil {
			sum.Skipped = len(mapped) - i
			log.Warnw("import cancelled", "remaining", sum.Skipped)
			break
		}
		im.row(ctx, et, defs, m, pk, &sum, log)
		if im.OnProgress != nil {
			im.OnProgress(i+1, len(mapped))
		}
	}
	log.Infow("import finished", "total", sum.Total, "successful", sum.Successful, "failed", sum.Failed)
	return sum
}

func (im *Importer) row(ctx context.Context, et customfield.EntityType, defs []customfield.FieldDefinition, m MappedRow, pk *packager.Packager, sum *Summary, log *zap.SugaredLogger) {
	if !m.Valid {
		sum.fail(fmt.Sprintf("Row %d: %s", m.Row, strings.Join(m.Errors, "; ")))
		metrics.ImportRows.WithLabelValues(string(et), "invalid").Inc()
		return
	}
	res := pk.Package(et, m.Values, defs)
	p, ok := res.Ok()
	if !ok {
		sum.fail(fmt.Sprintf("Row %d: %v", m.Row, res.Err()))
		metrics.ImportRows.WithLabelValues(string(et), "invalid").Inc()
		return
	}
	if err := im.Submitter.Submit(ctx, et, p); err != nil {
		log.Debugw("row failed", "row", m.Row, "err", err)
		sum.fail(fmt.Sprintf("Row %d: %v", m.Row, err))
		metrics.ImportRows.WithLabelValues(string(et), "failed").Inc()
		return
	}
	sum.Successful++
	metrics.ImportRows.WithLabelValues(string(et), "ok").Inc()
}
