// Package observe provides application-wide observability primitives for
// Lyralign: OpenTelemetry metrics, tracing, and structured logging helpers.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. Recording methods are nil-safe:
// components hold an optional *Metrics and record unconditionally, so
// telemetry never becomes a wiring requirement.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Lyralign metrics.
const meterName = "github.com/nomadkaraoke/lyralign"

// Metrics holds all OpenTelemetry metric instruments for the engine.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// AnchorSearchDuration tracks one full anchor search (cache miss path).
	AnchorSearchDuration metric.Float64Histogram

	// AnchorCandidates counts candidate anchors found before overlap
	// resolution.
	AnchorCandidates metric.Int64Counter

	// AnchorsAccepted counts anchors surviving overlap resolution.
	AnchorsAccepted metric.Int64Counter

	// CacheLookups counts anchor cache lookups. Attribute:
	//   attribute.Bool("hit", ...)
	CacheLookups metric.Int64Counter

	// HandlerInvocations counts handler outcomes per gap. Attributes:
	//   attribute.String("handler", ...), attribute.String("outcome", ...)
	HandlerInvocations metric.Int64Counter

	// Corrections counts word corrections applied per run.
	Corrections metric.Int64Counter

	// CorrectionRunDuration tracks one full correction run. Attribute:
	//   attribute.String("state", ...)
	CorrectionRunDuration metric.Float64Histogram
}

// durationBuckets defines histogram bucket boundaries (in seconds) sized for
// batch alignment work rather than request serving.
var durationBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300,
}

// NewMetrics creates a fully initialised [Metrics] using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.AnchorSearchDuration, err = m.Float64Histogram("lyralign.anchor.search.duration",
		metric.WithDescription("Duration of one full anchor search."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AnchorCandidates, err = m.Int64Counter("lyralign.anchor.candidates",
		metric.WithDescription("Candidate anchors found before overlap resolution."),
	); err != nil {
		return nil, err
	}
	if met.AnchorsAccepted, err = m.Int64Counter("lyralign.anchor.accepted",
		metric.WithDescription("Anchors accepted by overlap resolution."),
	); err != nil {
		return nil, err
	}
	if met.CacheLookups, err = m.Int64Counter("lyralign.cache.lookups",
		metric.WithDescription("Anchor cache lookups, tagged by hit/miss."),
	); err != nil {
		return nil, err
	}
	if met.HandlerInvocations, err = m.Int64Counter("lyralign.handler.invocations",
		metric.WithDescription("Correction handler outcomes per gap."),
	); err != nil {
		return nil, err
	}
	if met.Corrections, err = m.Int64Counter("lyralign.corrections",
		metric.WithDescription("Word corrections applied."),
	); err != nil {
		return nil, err
	}
	if met.CorrectionRunDuration, err = m.Float64Histogram("lyralign.correction.run.duration",
		metric.WithDescription("Duration of one full correction run."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// RecordSearch records one completed anchor search.
func (m *Metrics) RecordSearch(ctx context.Context, d time.Duration, accepted int) {
	if m == nil {
		return
	}
	m.AnchorSearchDuration.Record(ctx, d.Seconds())
	m.AnchorsAccepted.Add(ctx, int64(accepted))
}

// AddCandidates records candidate anchors found.
func (m *Metrics) AddCandidates(ctx context.Context, n int) {
	if m == nil {
		return
	}
	m.AnchorCandidates.Add(ctx, int64(n))
}

// AddCacheLookup records one anchor cache lookup.
func (m *Metrics) AddCacheLookup(ctx context.Context, hit bool) {
	if m == nil {
		return
	}
	m.CacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.Bool("hit", hit)))
}

// AddHandlerOutcome records one handler outcome ("handled", "no_match",
// "error").
func (m *Metrics) AddHandlerOutcome(ctx context.Context, handler, outcome string) {
	if m == nil {
		return
	}
	m.HandlerInvocations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("handler", handler),
		attribute.String("outcome", outcome),
	))
}

// RecordCorrectionRun records one completed correction run.
func (m *Metrics) RecordCorrectionRun(ctx context.Context, d time.Duration, state string, corrections int) {
	if m == nil {
		return
	}
	m.CorrectionRunDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("state", state)))
	m.Corrections.Add(ctx, int64(corrections))
}
