package services

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/lukisch/n8n-workflow-manager/pkg/models"
)

const meterName = "github.com/lukisch/n8n-workflow-manager/internal/services"

type syncMetrics struct {
	operations metric.Int64Counter
	workflows  metric.Int64Counter
}

// newSyncMetrics registers the counters on the global meter provider, which
// is a no-op unless the binary installs one.
func newSyncMetrics() *syncMetrics {
	meter := otel.Meter(meterName)
	ops, err := meter.Int64Counter("n8nmgr.sync.operations",
		metric.WithDescription("Push and pull attempts by direction and status"))
	if err != nil {
		otel.Handle(err)
	}
	wfs, err := meter.Int64Counter("n8nmgr.sync.workflows",
		metric.WithDescription("Workflows handled by pulls by outcome"))
	if err != nil {
		otel.Handle(err)
	}
	return &syncMetrics{operations: ops, workflows: wfs}
}

func (m *syncMetrics) operation(ctx context.Context, dir models.SyncDirection, status models.SyncStatus) {
	if m == nil || m.operations == nil {
		return
	}
	m.operations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("direction", string(dir)),
		attribute.String("status", string(status)),
	))
}

func (m *syncMetrics) pulled(ctx context.Context, outcome string, n int) {
	if m == nil || m.workflows == nil || n == 0 {
		return
	}
	m.workflows.Add(ctx, int64(n), metric.WithAttributes(attribute.String("outcome", outcome)))
}
