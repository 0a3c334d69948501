package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name for the engine.
const defaultTracerName = "lumen"

// TraceConfig configures the OpenTelemetry sink.
type TraceConfig struct {
	// TracerName is the name of the tracer (default: "lumen").
	TracerName string

	// MinDuration drops recompute spans shorter than this. Zero traces
	// everything; fine-grained engines can produce a lot of spans.
	MinDuration time.Duration

	// Filter determines which recomputes to trace. Return true to
	// trace the event, false to skip. If nil, all are traced.
	Filter func(e Event) bool

	// tracer is the resolved tracer instance.
	tracer trace.Tracer
}

// TraceOption configures the OpenTelemetry sink.
type TraceOption func(*TraceConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TraceOption {
	return func(c *TraceConfig) {
		c.TracerName = name
	}
}

// WithMinDuration sets the minimum recompute duration worth a span.
func WithMinDuration(d time.Duration) TraceOption {
	return func(c *TraceConfig) {
		c.MinDuration = d
	}
}

// WithTraceFilter sets a filter function for recompute events.
func WithTraceFilter(filter func(e Event) bool) TraceOption {
	return func(c *TraceConfig) {
		c.Filter = filter
	}
}

// TraceSink emits one OpenTelemetry span per completed recompute.
// Bumps, validations, and cache hits are far too frequent to trace and
// are ignored.
type TraceSink struct {
	config TraceConfig
}

// NewTraceSink creates an OpenTelemetry sink.
func NewTraceSink(opts ...TraceOption) *TraceSink {
	config := TraceConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	config.tracer = otel.Tracer(config.TracerName)
	return &TraceSink{config: config}
}

// ReactiveEvent implements Sink. Recompute events arrive after the
// computation finished, so the span is reconstructed with an explicit
// start timestamp and ended immediately.
func (s *TraceSink) ReactiveEvent(e Event) {
	if e.Kind != KindRecompute {
		return
	}
	if e.Duration < s.config.MinDuration {
		return
	}
	if s.config.Filter != nil && !s.config.Filter(e) {
		return
	}

	end := time.Now()
	start := end.Add(-e.Duration)

	_, span := s.config.tracer.Start(context.Background(), "lumen.recompute",
		trace.WithTimestamp(start),
		trace.WithAttributes(
			attribute.Int64("lumen.reference.id", int64(e.ID)),
			attribute.Int64("lumen.revision", int64(e.Revision)),
		),
	)
	span.End(trace.WithTimestamp(end))
}
