// Package guardrail runs input and output checks around an agent turn.
//
// A guardrail wraps a user-supplied check function. The function may return
// its verdict directly, return it with an error, or return a *Future that
// resolves later: Run accepts all three shapes and normalizes them into one
// synchronous result. A guardrail only reports what it found. When the
// verdict sets TripwireTriggered it is up to the caller (or RunInput /
// RunOutput) to abort the turn.
package guardrail

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"strings"

	agent "goa.design/agentcore/runtime/agent"
	"goa.design/agentcore/runtime/agent/agenterrors"
	"goa.design/agentcore/runtime/agent/model"
)

type (
	// FunctionOutput is the verdict of a guardrail check.
	FunctionOutput struct {
		// OutputInfo describes what the check found. It is carried unchanged
		// into results and tripwire errors.
		OutputInfo any
		// TripwireTriggered instructs the caller to abort the turn.
		TripwireTriggered bool
	}

	// RunContext is the caller-owned state of the run being checked.
	RunContext struct {
		// Context is the application value attached to the run.
		Context any
		// Usage is the token usage of the run so far.
		Usage model.Usage
	}

	// Input is the input of an agent turn: either plain text or the items
	// gathered so far.
	Input struct {
		Text  string
		Items []model.OutputItem
	}

	// InputFunc is the synchronous input check shape.
	InputFunc func(ctx context.Context, rc *RunContext, a agent.Ident, in Input) FunctionOutput

	// OutputFunc is the synchronous output check shape.
	OutputFunc func(ctx context.Context, rc *RunContext, a agent.Ident, output any) FunctionOutput

	// InputGuardrail checks the input of a turn before the model call.
	//
	// Function must have one of the shapes
	//
	//	func(context.Context, *RunContext, agent.Ident, Input) FunctionOutput
	//	func(context.Context, *RunContext, agent.Ident, Input) (FunctionOutput, error)
	//	func(context.Context, *RunContext, agent.Ident, Input) *Future
	//
	// InputFunc values are accepted as the first shape.
	InputGuardrail struct {
		// Name identifies the guardrail. Defaults to the function name.
		Name string
		// Function is the check.
		Function any
	}

	// OutputGuardrail checks the final output of a turn. Function takes the
	// same shapes as InputGuardrail.Function with an any payload in place of
	// Input.
	OutputGuardrail struct {
		Name     string
		Function any
	}

	// InputResult is the result of one input guardrail run.
	InputResult struct {
		Guardrail InputGuardrail
		Output    FunctionOutput
	}

	// OutputResult is the result of one output guardrail run.
	OutputResult struct {
		Guardrail OutputGuardrail
		// AgentOutput is the output that was checked.
		AgentOutput any
		// Agent is the agent that produced AgentOutput.
		Agent  agent.Ident
		Output FunctionOutput
	}

	// Option configures a guardrail built with NewInput or NewOutput.
	Option func(*options)

	options struct {
		name string
	}

	check[P any] func(ctx context.Context, rc *RunContext, a agent.Ident, payload P) (FunctionOutput, error)
)

// WithName sets the guardrail name.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// NewInput builds an input guardrail around fn.
func NewInput(fn any, opts ...Option) InputGuardrail {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return InputGuardrail{Name: o.name, Function: fn}
}

// NewOutput builds an output guardrail around fn.
func NewOutput(fn any, opts ...Option) OutputGuardrail {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return OutputGuardrail{Name: o.name, Function: fn}
}

// TextInput returns a text input.
func TextInput(text string) Input { return Input{Text: text} }

// ItemsInput returns an input made of items.
func ItemsInput(items ...model.OutputItem) Input { return Input{Items: items} }

// GetName returns the configured name or, when empty, the name of the check
// function.
func (g InputGuardrail) GetName() string { return guardrailName(g.Name, g.Function) }

// GetName returns the configured name or, when empty, the name of the check
// function.
func (g OutputGuardrail) GetName() string { return guardrailName(g.Name, g.Function) }

// Run invokes the check against in. It returns a *agenterrors.UserError
// without invoking anything when Function is nil or has an unsupported shape.
// Errors returned by the check are wrapped with the guardrail name. A
// tripwire is reported in the result, never as an error.
func (g InputGuardrail) Run(ctx context.Context, rc *RunContext, a agent.Ident, in Input) (InputResult, error) {
	fn, err := bindInput(g.Function)
	if err != nil {
		return InputResult{}, err
	}
	out, err := fn(ctx, rc, a, in)
	if err != nil {
		return InputResult{}, fmt.Errorf("input guardrail %s: %w", g.GetName(), err)
	}
	return InputResult{Guardrail: g, Output: out}, nil
}

// Run invokes the check against the agent output. See InputGuardrail.Run.
func (g OutputGuardrail) Run(ctx context.Context, rc *RunContext, a agent.Ident, agentOutput any) (OutputResult, error) {
	fn, err := bindOutput(g.Function)
	if err != nil {
		return OutputResult{}, err
	}
	out, err := fn(ctx, rc, a, agentOutput)
	if err != nil {
		return OutputResult{}, fmt.Errorf("output guardrail %s: %w", g.GetName(), err)
	}
	return OutputResult{Guardrail: g, AgentOutput: agentOutput, Agent: a, Output: out}, nil
}

// Validate reports a *agenterrors.UserError when the guardrail cannot be run.
func (g InputGuardrail) Validate() error {
	_, err := bindInput(g.Function)
	return err
}

// Validate reports a *agenterrors.UserError when the guardrail cannot be run.
func (g OutputGuardrail) Validate() error {
	_, err := bindOutput(g.Function)
	return err
}

func bindInput(fn any) (check[Input], error) {
	if f, ok := fn.(InputFunc); ok {
		if f == nil {
			return nil, agenterrors.UserErrorf("input guardrail function must be callable, got nil %T", fn)
		}
		fn = (func(context.Context, *RunContext, agent.Ident, Input) FunctionOutput)(f)
	}
	return bind[Input]("input", fn)
}

func bindOutput(fn any) (check[any], error) {
	if f, ok := fn.(OutputFunc); ok {
		if f == nil {
			return nil, agenterrors.UserErrorf("output guardrail function must be callable, got nil %T", fn)
		}
		fn = (func(context.Context, *RunContext, agent.Ident, any) FunctionOutput)(f)
	}
	return bind[any]("output", fn)
}

// bind normalizes the accepted function shapes into a check.
func bind[P any](kind string, fn any) (check[P], error) {
	switch f := fn.(type) {
	case func(context.Context, *RunContext, agent.Ident, P) FunctionOutput:
		if f == nil {
			break
		}
		return func(ctx context.Context, rc *RunContext, a agent.Ident, p P) (FunctionOutput, error) {
			return f(ctx, rc, a, p), nil
		}, nil
	case func(context.Context, *RunContext, agent.Ident, P) (FunctionOutput, error):
		if f == nil {
			break
		}
		return f, nil
	case func(context.Context, *RunContext, agent.Ident, P) *Future:
		if f == nil {
			break
		}
		return func(ctx context.Context, rc *RunContext, a agent.Ident, p P) (FunctionOutput, error) {
			fut := f(ctx, rc, a, p)
			if fut == nil {
				return FunctionOutput{}, agenterrors.UserErrorf("%s guardrail function returned a nil future", kind)
			}
			return fut.Await(ctx)
		}, nil
	case nil:
		return nil, agenterrors.UserErrorf("%s guardrail function must be callable, got nil", kind)
	default:
		return nil, agenterrors.UserErrorf("%s guardrail function must be callable, got: %T", kind, fn)
	}
	return nil, agenterrors.UserErrorf("%s guardrail function must be callable, got nil %T", kind, fn)
}

func guardrailName(name string, fn any) string {
	if name != "" {
		return name
	}
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return fmt.Sprintf("%T", fn)
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return fmt.Sprintf("%T", fn)
	}
	full := f.Name()
	if i := strings.LastIndex(full, "/"); i >= 0 {
		full = full[i+1:]
	}
	if i := strings.Index(full, "."); i >= 0 {
		full = full[i+1:]
	}
	return full
}
