// ABOUTME: Reconciliation and lifecycle instruments
// ABOUTME: A nil *Metrics records nothing so callers never need to check
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	passes    metric.Int64Counter
	duration  metric.Float64Histogram
	coalesced metric.Int64Counter
	partition metric.Int64Gauge
	repairs   metric.Int64Counter
}

// NewMetrics creates instruments on the given meter, or on Meter() when m is nil.
func NewMetrics(m metric.Meter) *Metrics {
	if m == nil {
		m = Meter()
	}

	passes, _ := m.Int64Counter("leadsync.reconcile.passes",
		metric.WithDescription("Reconciliation passes executed"),
	)
	duration, _ := m.Float64Histogram("leadsync.reconcile.duration",
		metric.WithDescription("Reconciliation pass duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	coalesced, _ := m.Int64Counter("leadsync.reconcile.coalesced",
		metric.WithDescription("Refresh requests folded into a pending re-run"),
	)
	partition, _ := m.Int64Gauge("leadsync.leads.partition",
		metric.WithDescription("Leads per cache namespace after the last pass"),
	)
	repairs, _ := m.Int64Counter("leadsync.lifecycle.repairs",
		metric.WithDescription("Outreach records repaired on read"),
	)

	return &Metrics{
		passes:    passes,
		duration:  duration,
		coalesced: coalesced,
		partition: partition,
		repairs:   repairs,
	}
}

// RecordPass counts a finished pass and its duration.
func (m *Metrics) RecordPass(ctx context.Context, trigger, status string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("trigger", trigger),
		attribute.String("status", status),
	)
	m.passes.Add(ctx, 1, attrs)
	m.duration.Record(ctx, float64(d.Milliseconds()), attrs)
}

func (m *Metrics) RecordCoalesced(ctx context.Context) {
	if m == nil {
		return
	}
	m.coalesced.Add(ctx, 1)
}

// RecordPartition snapshots namespace sizes.
func (m *Metrics) RecordPartition(ctx context.Context, active, archived int) {
	if m == nil {
		return
	}
	m.partition.Record(ctx, int64(active), metric.WithAttributes(attribute.String("namespace", "active")))
	m.partition.Record(ctx, int64(archived), metric.WithAttributes(attribute.String("namespace", "archived")))
}

func (m *Metrics) RecordRepair(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.repairs.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}
