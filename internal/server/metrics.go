package server

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/faciam-dev/crmfields/internal/server/middleware"
	"github.com/faciam-dev/crmfields/pkg/metrics"
)

// setupMetrics registers metrics middleware and handlers.
func setupMetrics(ctx context.Context, api huma.API, r chi.Router, store any) {
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	api.UseMiddleware(middleware.MetricsMW)
	if fc, ok := store.(metrics.FieldCounter); ok {
		metrics.StartFieldGauge(ctx, fc, time.Minute)
	}
}
