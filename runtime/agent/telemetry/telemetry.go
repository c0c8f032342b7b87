// Package telemetry defines the logging, metrics, and tracing surfaces used by
// the agent core. Components take these interfaces through their options and
// default to the noop implementations, so observability is opt-in and never
// required for correctness.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationScope names the OTEL meter and tracer used by the core.
const InstrumentationScope = "goa.design/agentcore"

type (
	// Logger emits structured log lines. keyvals alternate keys and values.
	Logger interface {
		Debug(ctx context.Context, msg string, keyvals ...any)
		Info(ctx context.Context, msg string, keyvals ...any)
		Warn(ctx context.Context, msg string, keyvals ...any)
		Error(ctx context.Context, msg string, keyvals ...any)
	}

	// Metrics records counters and timers. tags alternate keys and values.
	Metrics interface {
		IncCounter(name string, value float64, tags ...string)
		RecordTimer(name string, duration time.Duration, tags ...string)
	}

	// Tracer starts spans.
	Tracer interface {
		Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span)
	}

	// Span is an in-flight tracing span.
	Span interface {
		End(opts ...trace.SpanEndOption)
		AddEvent(name string, attrs ...any)
		SetStatus(code codes.Code, description string)
		RecordError(err error, opts ...trace.EventOption)
	}

	// Set bundles the three surfaces so components can accept them as a unit.
	Set struct {
		Logger  Logger
		Metrics Metrics
		Tracer  Tracer
	}
)

// Noop returns a Set that discards everything.
func Noop() Set {
	return Set{Logger: NoopLogger{}, Metrics: NoopMetrics{}, Tracer: NoopTracer{}}
}

// Clue returns a Set backed by goa.design/clue/log and the global OTEL
// providers.
func Clue() Set {
	return Set{Logger: NewClueLogger(), Metrics: NewClueMetrics(), Tracer: NewClueTracer()}
}

// WithDefaults returns s with every nil surface replaced by its noop
// implementation.
func (s Set) WithDefaults() Set {
	if s.Logger == nil {
		s.Logger = NoopLogger{}
	}
	if s.Metrics == nil {
		s.Metrics = NoopMetrics{}
	}
	if s.Tracer == nil {
		s.Tracer = NoopTracer{}
	}
	return s
}
