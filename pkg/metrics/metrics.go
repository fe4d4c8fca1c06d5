package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	APIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_api_requests_total",
			Help: "Number of API requests",
		},
		[]string{"method", "path", "status"},
	)
	APILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crm_api_latency_seconds",
			Help:    "API latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	Fields = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "crm_fields_total",
			Help: "Number of field definitions by entity type",
		},
		[]string{"entity"},
	)
	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crm_field_cache_hits_total",
			Help: "Field definition cache hits",
		},
	)
	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crm_field_cache_misses_total",
			Help: "Field definition cache misses",
		},
	)
	ImportRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_import_rows_total",
			Help: "CSV import rows by outcome",
		},
		[]string{"entity", "result"},
	)
	ValidationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_validation_failures_total",
			Help: "Form validations that produced errors",
		},
		[]string{"entity"},
	)
	AuditEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_audit_events_total",
			Help: "Field history events",
		},
		[]string{"action"},
	)
	AuditErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_audit_errors_total",
			Help: "Field history write errors",
		},
		[]string{"action"},
	)
)

func init() {
	prometheus.MustRegister(
		APIRequests,
		APILatency,
		Fields,
		CacheHits,
		CacheMisses,
		ImportRows,
		ValidationFailures,
		AuditEvents,
		AuditErrors,
	)
}

// FieldCounter is implemented by stores able to count definitions per entity type.
type FieldCounter interface {
	CountByEntity(ctx context.Context) (map[string]int, error)
}

// RefreshFieldGauge updates the field gauge once.
func RefreshFieldGauge(ctx context.Context, repo FieldCounter) error {
	counts, err := repo.CountByEntity(ctx)
	if err != nil {
		return err
	}
	for et, n := range counts {
		Fields.WithLabelValues(et).Set(float64(n))
	}
	return nil
}

// StartFieldGauge schedules a job that refreshes the field gauge every
// interval. The returned scheduler is stopped when ctx is done.
func StartFieldGauge(ctx context.Context, repo FieldCounter, interval time.Duration) *gocron.Scheduler {
	if repo == nil {
		return nil
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	s := gocron.NewScheduler(time.UTC)
	_, err := s.Every(interval).Do(func() {
		if err := RefreshFieldGauge(ctx, repo); err != nil {
			slog.Default().Error("refresh field gauge", "err", err)
		}
	})
	if err != nil {
		slog.Default().Error("schedule field gauge", "err", err)
		return nil
	}
	s.StartAsync()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return s
}
