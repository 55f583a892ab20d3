package observe

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestRecordSearch(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordSearch(ctx, 250*time.Millisecond, 7)
	m.RecordSearch(ctx, 100*time.Millisecond, 3)

	rm := collect(t, reader)

	met := findMetric(rm, "lyralign.anchor.search.duration")
	if met == nil {
		t.Fatal("duration metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("metric is not a histogram")
	}
	if got := hist.DataPoints[0].Count; got != 2 {
		t.Errorf("sample count = %d, want 2", got)
	}

	met = findMetric(rm, "lyralign.anchor.accepted")
	if met == nil {
		t.Fatal("accepted metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("metric is not a sum")
	}
	if got := sum.DataPoints[0].Value; got != 10 {
		t.Errorf("accepted total = %d, want 10", got)
	}
}

func TestAddCacheLookupTagsHitAndMiss(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.AddCacheLookup(ctx, true)
	m.AddCacheLookup(ctx, true)
	m.AddCacheLookup(ctx, false)

	rm := collect(t, reader)
	met := findMetric(rm, "lyralign.cache.lookups")
	if met == nil {
		t.Fatal("metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("metric is not a sum")
	}

	for _, dp := range sum.DataPoints {
		for _, kv := range dp.Attributes.ToSlice() {
			if string(kv.Key) == "hit" && kv.Value.AsBool() {
				if dp.Value != 2 {
					t.Errorf("hit count = %d, want 2", dp.Value)
				}
				return
			}
		}
	}
	t.Error("data point with hit=true not found")
}

func TestAddHandlerOutcome(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.AddHandlerOutcome(ctx, "levenshtein", "handled")
	m.AddHandlerOutcome(ctx, "levenshtein", "handled")
	m.AddHandlerOutcome(ctx, "levenshtein", "no_match")

	rm := collect(t, reader)
	met := findMetric(rm, "lyralign.handler.invocations")
	if met == nil {
		t.Fatal("metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("metric is not a sum")
	}

	for _, dp := range sum.DataPoints {
		for _, kv := range dp.Attributes.ToSlice() {
			if string(kv.Key) == "outcome" && kv.Value.AsString() == "handled" {
				if dp.Value != 2 {
					t.Errorf("handled count = %d, want 2", dp.Value)
				}
				return
			}
		}
	}
	t.Error("data point with outcome=handled not found")
}

func TestRecordCorrectionRun(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordCorrectionRun(ctx, 2*time.Second, "DONE", 5)

	rm := collect(t, reader)

	met := findMetric(rm, "lyralign.correction.run.duration")
	if met == nil {
		t.Fatal("duration metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("metric is not a histogram")
	}
	if got := hist.DataPoints[0].Count; got != 1 {
		t.Errorf("sample count = %d, want 1", got)
	}

	met = findMetric(rm, "lyralign.corrections")
	if met == nil {
		t.Fatal("corrections metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("metric is not a sum")
	}
	if got := sum.DataPoints[0].Value; got != 5 {
		t.Errorf("corrections total = %d, want 5", got)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()

	// All recording methods must be no-ops on a nil receiver.
	m.RecordSearch(ctx, time.Second, 1)
	m.AddCandidates(ctx, 3)
	m.AddCacheLookup(ctx, true)
	m.AddHandlerOutcome(ctx, "llm", "error")
	m.RecordCorrectionRun(ctx, time.Second, "FALLBACK", 0)
}
