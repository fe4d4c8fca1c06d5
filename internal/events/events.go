package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"time"

	ormdriver "github.com/faciam-dev/goquent/orm/driver"
	"github.com/faciam-dev/goquent/orm/query"
	"github.com/google/uuid"

	"github.com/faciam-dev/crmfields/internal/logger"
)

// Event names.
const (
	FieldCreated    = "field.created"
	FieldUpdated    = "field.updated"
	FieldDeleted    = "field.deleted"
	RecordCreated   = "record.created"
	RecordUpdated   = "record.updated"
	RecordDeleted   = "record.deleted"
	ImportCompleted = "import.completed"
)

// Default is the global dispatcher used by Emit.
var Default *Dispatcher

// Event represents a notification payload.
type Event struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Entity string    `json:"entity,omitempty"`
	Time   time.Time `json:"time"`
	Data   any       `json:"data"`
}

// New returns an event with a fresh id and the current time.
func New(name, entity string, data any) Event {
	return Event{ID: uuid.NewString(), Name: name, Entity: entity, Time: time.Now().UTC(), Data: data}
}

// Sink publishes events.
type Sink interface {
	Emit(ctx context.Context, e Event) error
}

type permanentError struct{ err error }

func (p permanentError) Error() string { return p.err.Error() }
func (p permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying. The dispatcher dead-letters
// such events immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

// DLQ stores failed events.
type DLQ interface {
	Store(ctx context.Context, e Event, attempts int, lastErr string) error
}

// Dispatcher broadcasts events to multiple sinks with retries.
type Dispatcher struct {
	sinks        []Sink
	maxAttempts  int
	initialDelay time.Duration
	dlq          DLQ
	wg           sync.WaitGroup
}

// Config provides dispatcher settings.
type Config struct {
	Sinks struct {
		Webhook WebhookConfig `yaml:"webhook"`
		Redis   RedisConfig   `yaml:"redis"`
		Kafka   KafkaConfig   `yaml:"kafka"`
	} `yaml:"sinks"`
	Retry RetryConfig `yaml:"retry"`
}

type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
}

// NewDispatcher creates a dispatcher from sinks and retry config.
func NewDispatcher(cfg Config, dlq DLQ, sinks ...Sink) *Dispatcher {
	d := &Dispatcher{maxAttempts: 3, initialDelay: time.Second}
	if cfg.Retry.MaxAttempts > 0 {
		d.maxAttempts = cfg.Retry.MaxAttempts
	}
	if cfg.Retry.InitialDelay > 0 {
		d.initialDelay = cfg.Retry.InitialDelay
	}
	d.sinks = append(d.sinks, sinks...)
	d.dlq = dlq
	return d
}

// Emit sends an event using the global dispatcher if set.
func Emit(ctx context.Context, e Event) {
	if Default != nil {
		Default.Dispatch(ctx, e)
	}
}

// Dispatch sends the event to all sinks asynchronously. Delivery outlives
// the request that produced the event.
func (d *Dispatcher) Dispatch(ctx context.Context, e Event) {
	ctx = context.WithoutCancel(ctx)
	for _, s := range d.sinks {
		sink := s
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.retrySend(ctx, sink, e)
		}()
	}
}

// Wait blocks until every dispatched event was delivered or dead-lettered.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) retrySend(ctx context.Context, s Sink, e Event) {
	delay := d.initialDelay
	var err error
	attempts := 0
	for attempts < d.maxAttempts {
		attempts++
		if err = s.Emit(ctx, e); err == nil {
			return
		}
		if IsPermanent(err) {
			break
		}
		if attempts < d.maxAttempts {
			time.Sleep(delay)
			delay *= 2
		}
	}
	logger.L.Warn("event delivery failed", "event", e.Name, "id", e.ID, "attempts", attempts, "err", err)
	if d.dlq != nil {
		if derr := d.dlq.Store(ctx, e, attempts, err.Error()); derr != nil {
			logger.L.Error("store failed event", "id", e.ID, "err", derr)
		}
	}
}

// SQLDLQ stores failed events in the database.
type SQLDLQ struct {
	DB          *sql.DB
	Dialect     ormdriver.Dialect
	TablePrefix string
}

// Store inserts the failed event.
func (q *SQLDLQ) Store(ctx context.Context, e Event, attempts int, lastErr string) error {
	if q == nil || q.DB == nil {
		return nil
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = query.New(q.DB, q.table(), q.Dialect).WithContext(ctx).InsertGetId(map[string]any{
		"name":       e.Name,
		"payload":    string(data),
		"attempts":   attempts,
		"last_error": lastErr,
	})
	return err
}

// Failed is a dead-lettered event row.
type Failed struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Payload   string    `db:"payload" json:"payload"`
	Attempts  int       `db:"attempts" json:"attempts"`
	LastError string    `db:"last_error" json:"lastError"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Event decodes the stored payload.
func (f Failed) Event() (Event, error) {
	var e Event
	err := json.Unmarshal([]byte(f.Payload), &e)
	return e, err
}

func (q *SQLDLQ) table() string {
	p := q.TablePrefix
	if p == "" {
		p = "crm_"
	}
	return p + "events_failed"
}

// List returns the dead-lettered events, oldest first.
func (q *SQLDLQ) List(ctx context.Context) ([]Failed, error) {
	var rows []Failed
	err := query.New(q.DB, q.table(), q.Dialect).
		Select("id", "name", "payload", "attempts", "last_error", "created_at").
		OrderBy("id", "asc").
		WithContext(ctx).
		Get(&rows)
	return rows, err
}

// Get returns one dead-lettered event.
func (q *SQLDLQ) Get(ctx context.Context, id int64) (Failed, error) {
	var f Failed
	err := query.New(q.DB, q.table(), q.Dialect).
		Select("id", "name", "payload", "attempts", "last_error", "created_at").
		Where("id", id).
		WithContext(ctx).
		First(&f)
	return f, err
}

// Remove deletes a dead-lettered event, typically after a successful retry.
func (q *SQLDLQ) Remove(ctx context.Context, id int64) error {
	_, err := query.New(q.DB, q.table(), q.Dialect).Where("id", id).WithContext(ctx).Delete()
	return err
}

// MemorySink keeps emitted events in memory.
type MemorySink struct {
	mu     sync.Mutex
	Events []Event
}

func (m *MemorySink) Emit(_ context.Context, e Event) error {
	m.mu.Lock()
	m.Events = append(m.Events, e)
	m.mu.Unlock()
	return nil
}

// Names returns the names of the collected events in order.
func (m *MemorySink) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Events))
	for i, e := range m.Events {
		out[i] = e.Name
	}
	return out
}
