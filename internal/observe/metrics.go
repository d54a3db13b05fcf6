package observe

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Djarid/vinput/pkg/pipeline"
)

// meterName is the instrumentation scope for all vinput metrics.
const meterName = "github.com/Djarid/vinput"

// Metrics holds the pipeline's metric instruments. All instruments are safe
// for concurrent use.
type Metrics struct {
	// Transcripts counts non-empty recognizer results.
	Transcripts metric.Int64Counter

	// Commands counts match outcomes. Attribute: result=matched|no_match.
	Commands metric.Int64Counter

	// Actions counts execution outcomes. Attribute: status=ok|invalid.
	Actions metric.Int64Counter

	// StageErrors counts absorbed stage failures.
	StageErrors metric.Int64Counter

	// Latency records per-stage wall time in seconds.
	// Attribute: stage=recognize|turn.
	Latency metric.Float64Histogram

	meter metric.Meter
}

// NewMetrics creates the instruments on the given provider. Pass nil to use
// the global provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)

	m := &Metrics{meter: meter}
	var err error

	if m.Transcripts, err = meter.Int64Counter("vinput.transcripts",
		metric.WithDescription("Non-empty transcription results")); err != nil {
		return nil, err
	}
	if m.Commands, err = meter.Int64Counter("vinput.commands",
		metric.WithDescription("Command match outcomes")); err != nil {
		return nil, err
	}
	if m.Actions, err = meter.Int64Counter("vinput.actions",
		metric.WithDescription("Action execution outcomes")); err != nil {
		return nil, err
	}
	if m.StageErrors, err = meter.Int64Counter("vinput.stage_errors",
		metric.WithDescription("Pipeline stage failures absorbed by the retry loop")); err != nil {
		return nil, err
	}
	if m.Latency, err = meter.Float64Histogram("vinput.latency",
		metric.WithDescription("Pipeline stage latency"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}

	return m, nil
}

// ObservePipeline registers observable counters that read the pipeline's
// frame and segment counters on each scrape.
func (m *Metrics) ObservePipeline(snapshot func() pipeline.Stats) error {
	framesPushed, err := m.meter.Int64ObservableCounter("vinput.frames_pushed",
		metric.WithDescription("Audio frames pushed into the bridge"))
	if err != nil {
		return err
	}
	framesDropped, err := m.meter.Int64ObservableCounter("vinput.frames_dropped",
		metric.WithDescription("Audio frames dropped by the bridge under backpressure"))
	if err != nil {
		return err
	}
	segments, err := m.meter.Int64ObservableCounter("vinput.segments",
		metric.WithDescription("Finalized speech segments"))
	if err != nil {
		return err
	}

	_, err = m.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := snapshot()
		o.ObserveInt64(framesPushed, int64(s.FramesPushed))
		o.ObserveInt64(framesDropped, int64(s.FramesDropped))
		o.ObserveInt64(segments, int64(s.Segments))
		return nil
	}, framesPushed, framesDropped, segments)
	return err
}

// HandleEvent maps a pipeline event onto the metric instruments. Wired as
// (part of) the pipeline's notify callback; must stay non-blocking.
func (m *Metrics) HandleEvent(ctx context.Context, e pipeline.Event) {
	switch e.Type {
	case "transcript":
		m.Transcripts.Add(ctx, 1)
		m.Latency.Record(ctx, float64(e.ElapsedMS)/1000,
			metric.WithAttributes(attribute.String("stage", "recognize")))
	case "match":
		m.Commands.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "matched")))
	case "no_match":
		m.Commands.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "no_match")))
	case "executed":
		m.Actions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "ok")))
		m.Latency.Record(ctx, float64(e.ElapsedMS)/1000,
			metric.WithAttributes(attribute.String("stage", "turn")))
	case "invalid_action":
		m.Actions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "invalid")))
	case "error":
		m.StageErrors.Add(ctx, 1)
	}
}
