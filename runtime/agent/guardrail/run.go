package guardrail

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	agent "goa.design/agentcore/runtime/agent"
	"goa.design/agentcore/runtime/agent/agenterrors"
	"goa.design/agentcore/runtime/agent/telemetry"
)

// Metric names emitted by the Runner.
const (
	MetricTripwires = "agentcore.guardrail.tripwires"
	MetricDuration  = "agentcore.guardrail.duration"
)

type (
	// RunnerOptions configures a Runner.
	RunnerOptions struct {
		Telemetry telemetry.Set
	}

	// Runner runs a set of guardrails concurrently against one payload and
	// converts the first tripwire into an abort error.
	Runner struct {
		logger  telemetry.Logger
		metrics telemetry.Metrics
		tracer  telemetry.Tracer
	}
)

var defaultRunner = NewRunner(RunnerOptions{})

// NewRunner returns a Runner configured with opts.
func NewRunner(opts RunnerOptions) *Runner {
	tel := opts.Telemetry.WithDefaults()
	return &Runner{logger: tel.Logger, metrics: tel.Metrics, tracer: tel.Tracer}
}

// RunInputGuardrails runs guardrails with a Runner that discards telemetry.
func RunInputGuardrails(ctx context.Context, rc *RunContext, a agent.Ident, in Input, guardrails ...InputGuardrail) ([]InputResult, error) {
	return defaultRunner.RunInput(ctx, rc, a, in, guardrails...)
}

// RunOutputGuardrails runs guardrails with a Runner that discards telemetry.
func RunOutputGuardrails(ctx context.Context, rc *RunContext, a agent.Ident, output any, guardrails ...OutputGuardrail) ([]OutputResult, error) {
	return defaultRunner.RunOutput(ctx, rc, a, output, guardrails...)
}

// RunInput validates every guardrail, then runs them concurrently against in.
// When a guardrail trips, the context passed to the others is canceled and
// RunInput returns a *agenterrors.InputTripwireError for the first tripwire
// observed along with the results of the guardrails that completed before
// the abort. Tripwires take precedence over check errors. Results are ordered
// like guardrails.
func (r *Runner) RunInput(ctx context.Context, rc *RunContext, a agent.Ident, in Input, guardrails ...InputGuardrail) ([]InputResult, error) {
	if len(guardrails) == 0 {
		return nil, nil
	}
	for _, g := range guardrails {
		if err := g.Validate(); err != nil {
			return nil, err
		}
	}
	results := make([]InputResult, len(guardrails))
	done := make([]bool, len(guardrails))
	var tripped atomic.Pointer[agenterrors.InputTripwireError]
	eg, egctx := errgroup.WithContext(ctx)
	for i, g := range guardrails {
		eg.Go(func() error {
			name := g.GetName()
			sctx, span := r.startSpan(egctx, "guardrail.input", name, a)
			start := time.Now()
			res, err := g.Run(sctx, rc, a, in)
			r.finish(sctx, span, name, start, err, res.Output)
			if err != nil {
				return err
			}
			results[i], done[i] = res, true
			if res.Output.TripwireTriggered {
				tw := &agenterrors.InputTripwireError{Guardrail: name, OutputInfo: res.Output.OutputInfo}
				tripped.CompareAndSwap(nil, tw)
				return tw
			}
			return nil
		})
	}
	err := eg.Wait()
	if tw := tripped.Load(); tw != nil {
		return finished(results, done), tw
	}
	if err != nil {
		return nil, err
	}
	return results, nil
}

// RunOutput is the output counterpart of RunInput. It returns a
// *agenterrors.OutputTripwireError carrying the rejected output, and the
// completed results, when a guardrail trips.
func (r *Runner) RunOutput(ctx context.Context, rc *RunContext, a agent.Ident, output any, guardrails ...OutputGuardrail) ([]OutputResult, error) {
	if len(guardrails) == 0 {
		return nil, nil
	}
	for _, g := range guardrails {
		if err := g.Validate(); err != nil {
			return nil, err
		}
	}
	results := make([]OutputResult, len(guardrails))
	done := make([]bool, len(guardrails))
	var tripped atomic.Pointer[agenterrors.OutputTripwireError]
	eg, egctx := errgroup.WithContext(ctx)
	for i, g := range guardrails {
		eg.Go(func() error {
			name := g.GetName()
			sctx, span := r.startSpan(egctx, "guardrail.output", name, a)
			start := time.Now()
			res, err := g.Run(sctx, rc, a, output)
			r.finish(sctx, span, name, start, err, res.Output)
			if err != nil {
				return err
			}
			results[i], done[i] = res, true
			if res.Output.TripwireTriggered {
				tw := &agenterrors.OutputTripwireError{Guardrail: name, OutputInfo: res.Output.OutputInfo, AgentOutput: output}
				tripped.CompareAndSwap(nil, tw)
				return tw
			}
			return nil
		})
	}
	err := eg.Wait()
	if tw := tripped.Load(); tw != nil {
		return finished(results, done), tw
	}
	if err != nil {
		return nil, err
	}
	return results, nil
}

// finished keeps the results whose guardrail completed, preserving order.
func finished[T any](results []T, done []bool) []T {
	var out []T
	for i, res := range results {
		if done[i] {
			out = append(out, res)
		}
	}
	return out
}

func (r *Runner) startSpan(ctx context.Context, op, name string, a agent.Ident) (context.Context, telemetry.Span) {
	return r.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("guardrail.name", name),
		attribute.String("agent.id", string(a)),
		attribute.String("agent.service", a.Service()),
		attribute.String("agent.name", a.Name()),
	))
}

func (r *Runner) finish(ctx context.Context, span telemetry.Span, name string, start time.Time, err error, out FunctionOutput) {
	defer span.End()
	r.metrics.RecordTimer(MetricDuration, time.Since(start), "guardrail", name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.Error(ctx, "guardrail failed", "guardrail", name, "err", err)
		return
	}
	if out.TripwireTriggered {
		span.AddEvent("tripwire_triggered", "guardrail", name)
		span.SetStatus(codes.Error, "guardrail tripwire triggered")
		r.metrics.IncCounter(MetricTripwires, 1, "guardrail", name)
		r.logger.Warn(ctx, "guardrail tripwire triggered", "guardrail", name)
		return
	}
	span.SetStatus(codes.Ok, "")
}
