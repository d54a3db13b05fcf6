package observe

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Djarid/vinput/pkg/pipeline"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func counterSum(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("Metric %s is not an int64 sum", m.Name)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics_HandleEvent(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}

	ctx := context.Background()
	m.HandleEvent(ctx, pipeline.Event{Type: "transcript"})
	m.HandleEvent(ctx, pipeline.Event{Type: "match"})
	m.HandleEvent(ctx, pipeline.Event{Type: "no_match"})
	m.HandleEvent(ctx, pipeline.Event{Type: "executed"})
	m.HandleEvent(ctx, pipeline.Event{Type: "invalid_action"})
	m.HandleEvent(ctx, pipeline.Event{Type: "error"})
	m.HandleEvent(ctx, pipeline.Event{Type: "state"}) // ignored

	rm := collect(t, reader)

	checks := map[string]int64{
		"vinput.transcripts":  1,
		"vinput.commands":     2,
		"vinput.actions":      2,
		"vinput.stage_errors": 1,
	}
	for name, want := range checks {
		metric, ok := findMetric(rm, name)
		if !ok {
			t.Errorf("Metric %s not found", name)
			continue
		}
		if got := counterSum(t, metric); got != want {
			t.Errorf("%s = %d, want %d", name, got, want)
		}
	}
}

func TestMetrics_ObservePipeline(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}

	err = m.ObservePipeline(func() pipeline.Stats {
		return pipeline.Stats{FramesPushed: 100, FramesDropped: 3, Segments: 7}
	})
	if err != nil {
		t.Fatalf("ObservePipeline failed: %v", err)
	}

	rm := collect(t, reader)

	checks := map[string]int64{
		"vinput.frames_pushed":  100,
		"vinput.frames_dropped": 3,
		"vinput.segments":       7,
	}
	for name, want := range checks {
		metric, ok := findMetric(rm, name)
		if !ok {
			t.Errorf("Metric %s not found", name)
			continue
		}
		if got := counterSum(t, metric); got != want {
			t.Errorf("%s = %d, want %d", name, got, want)
		}
	}
}
