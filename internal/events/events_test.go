package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type flakySink struct {
	mu    sync.Mutex
	fails int
	calls int
}

func (f *flakySink) Emit(context.Context, Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.fails {
		return errors.New("unavailable")
	}
	return nil
}

type memDLQ struct {
	mu       sync.Mutex
	attempts int
	lastErr  string
}

func (m *memDLQ) Store(_ context.Context, _ Event, attempts int, lastErr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts, m.lastErr = attempts, lastErr
	return nil
}

func retryConfig() Config {
	var c Config
	c.Retry.MaxAttempts = 3
	c.Retry.InitialDelay = time.Millisecond
	return c
}

func TestDispatcherRetries(t *testing.T) {
	sink := &flakySink{fails: 2}
	dlq := &memDLQ{}
	d := NewDispatcher(retryConfig(), dlq, sink)
	d.Dispatch(context.Background(), New(FieldCreated, "jobs", nil))
	d.Wait()
	if sink.calls != 3 || dlq.attempts != 0 {
		t.Fatalf("calls=%d dlq=%d", sink.calls, dlq.attempts)
	}
}

func TestDispatcherDeadLetters(t *testing.T) {
	sink := &flakySink{fails: 10}
	dlq := &memDLQ{}
	d := NewDispatcher(retryConfig(), dlq, sink)
	d.Dispatch(context.Background(), New(RecordCreated, "leads", nil))
	d.Wait()
	if dlq.attempts != 3 || dlq.lastErr != "unavailable" {
		t.Fatalf("unexpected dlq state %+v", dlq)
	}
}

func TestWebhookSignature(t *testing.T) {
	var got, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		got = r.Header.Get(SignatureHeader)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewWebhookSink(WebhookConfig{Enabled: true, Endpoint: srv.URL, Secret: "k"})
	if err := s.Emit(context.Background(), New(ImportCompleted, "jobs", map[string]int{"successful": 2})); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if got != "sha256="+Sign("k", []byte(body)) {
		t.Fatalf("bad signature %q", got)
	}
}

func TestWebhookErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	s := NewWebhookSink(WebhookConfig{Enabled: true, Endpoint: srv.URL})
	if err := s.Emit(context.Background(), New(FieldDeleted, "", nil)); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRedisSinkAndSubscribe(t *testing.T) {
	mr := miniredis.RunT(t)
	sink, err := NewRedisSink(RedisConfig{Enabled: true, DSN: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("NewRedisSink: %v", err)
	}
	cli := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cli.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan Event, 1)
	ready := make(chan struct{})
	go func() {
		sub := cli.Subscribe(ctx, DefaultChannel)
		defer sub.Close()
		if _, err := sub.Receive(ctx); err != nil {
			t.Errorf("subscribe: %v", err)
		}
		close(ready)
		msg := <-sub.Channel()
		var e Event
		_ = json.Unmarshal([]byte(msg.Payload), &e)
		got <- e
	}()
	<-ready
	if err := sink.Emit(ctx, New(FieldUpdated, "jobs", nil)); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	select {
	case e := <-got:
		if e.Name != FieldUpdated || e.Entity != "jobs" {
			t.Fatalf("unexpected event %+v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no event received")
	}
}

func TestMemorySink(t *testing.T) {
	m := &MemorySink{}
	_ = m.Emit(context.Background(), New(FieldCreated, "jobs", nil))
	if n := m.Names(); len(n) != 1 || n[0] != FieldCreated {
		t.Fatalf("unexpected names %v", n)
	}
}

func TestPermanentErrorSkipsRetries(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Header.Get("X-CRM-Delivery") == "" {
			t.Error("missing delivery id")
		}
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	dlq := &memDLQ{}
	d := NewDispatcher(retryConfig(), dlq, NewWebhookSink(WebhookConfig{Enabled: true, Endpoint: srv.URL}))
	d.Dispatch(context.Background(), New(FieldCreated, "jobs", nil))
	d.Wait()
	if calls != 1 {
		t.Fatalf("want a single attempt, got %d", calls)
	}
	if dlq.attempts != 1 {
		t.Fatalf("dead-lettered after %d attempts", dlq.attempts)
	}
}

func TestOnlyFiltersByName(t *testing.T) {
	mem := &MemorySink{}
	s := Only(mem, "field.*", "import.completed")
	ctx := context.Background()
	for _, name := range []string{FieldCreated, RecordCreated, ImportCompleted, FieldDeleted} {
		if err := s.Emit(ctx, New(name, "jobs", nil)); err != nil {
			t.Fatal(err)
		}
	}
	got := mem.Names()
	want := []string{FieldCreated, ImportCompleted, FieldDeleted}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v", got)
		}
	}
	if Only(mem) != Sink(mem) {
		t.Fatal("no patterns should return the sink unchanged")
	}
}

func TestKafkaTopicPerEntity(t *testing.T) {
	s := &KafkaSink{Topic: "crm.events", PerEntity: true}
	if got := s.topic(New(RecordCreated, "job-seekers", nil)); got != "crm.events.job-seekers" {
		t.Fatalf("topic %q", got)
	}
	if got := s.topic(New(FieldCreated, "", nil)); got != "crm.events" {
		t.Fatalf("topic %q", got)
	}
}
