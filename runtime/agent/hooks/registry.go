package hooks

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"goa.design/agentcore/runtime/agent/agenterrors"
	"goa.design/agentcore/runtime/agent/telemetry"
)

// MetricFailures counts hook invocations that returned an error or panicked.
const MetricFailures = "agentcore.hooks.failures"

type (
	// Hook is a lifecycle callback. data is event specific: the agent input
	// for agent_start, the final output for agent_end, the tool arguments
	// for tool_start, the tool result for tool_end, and the error for error.
	Hook func(ctx context.Context, hc Context, data any) error

	// Observer receives every event dispatched by the registry it is
	// attached to.
	Observer interface {
		Observe(ctx context.Context, event EventType, hc Context, data any) error
	}

	// Options configures a Registry.
	Options struct {
		Telemetry telemetry.Set
	}

	// Registry stores hooks per event type and dispatches events to them.
	// Registries are explicitly constructed and safe for concurrent use.
	Registry struct {
		mu      sync.RWMutex
		hooks   map[EventType][]*entry
		logger  telemetry.Logger
		metrics telemetry.Metrics
	}

	// Registration unregisters the hooks it was returned for.
	Registration struct {
		once  sync.Once
		close func()
	}

	// HookError is the payload of the error event dispatched when a hook
	// fails.
	HookError struct {
		// Event is the event whose hook failed.
		Event EventType
		// AgentName and ToolName are copied from the dispatch context.
		AgentName string
		ToolName  string
		// Err is the error returned by the hook or built from its panic.
		Err error
	}

	entry struct {
		hook Hook
	}
)

// NewRegistry returns an empty registry.
func NewRegistry(opts Options) *Registry {
	tel := opts.Telemetry.WithDefaults()
	return &Registry{
		hooks:   make(map[EventType][]*entry),
		logger:  tel.Logger,
		metrics: tel.Metrics,
	}
}

// Register adds h to the hooks of event.
func (r *Registry) Register(event EventType, h Hook) (*Registration, error) {
	if !event.Valid() {
		return nil, agenterrors.UserErrorf("unknown hook event %q", event)
	}
	if h == nil {
		return nil, agenterrors.UserErrorf("%s hook is nil", event)
	}
	e := &entry{hook: h}
	r.mu.Lock()
	r.hooks[event] = append(r.hooks[event], e)
	r.mu.Unlock()
	return &Registration{close: func() { r.remove(event, e) }}, nil
}

// RegisterAgentStart registers a hook run when an agent starts.
func (r *Registry) RegisterAgentStart(h Hook) (*Registration, error) {
	return r.Register(EventAgentStart, h)
}

// RegisterAgentEnd registers a hook run when an agent ends.
func (r *Registry) RegisterAgentEnd(h Hook) (*Registration, error) {
	return r.Register(EventAgentEnd, h)
}

// RegisterToolStart registers a hook run before a tool executes.
func (r *Registry) RegisterToolStart(h Hook) (*Registration, error) {
	return r.Register(EventToolStart, h)
}

// RegisterToolEnd registers a hook run after a tool returns.
func (r *Registry) RegisterToolEnd(h Hook) (*Registration, error) {
	return r.Register(EventToolEnd, h)
}

// RegisterError registers a hook run on errors.
func (r *Registry) RegisterError(h Hook) (*Registration, error) {
	return r.Register(EventError, h)
}

// Attach registers o for every event type. Closing the returned
// registration detaches o.
func (r *Registry) Attach(o Observer) (*Registration, error) {
	if o == nil {
		return nil, agenterrors.UserErrorf("observer is nil")
	}
	regs := make([]*Registration, 0, len(EventTypes))
	for _, event := range EventTypes {
		reg, err := r.Register(event, func(ctx context.Context, hc Context, data any) error {
			return o.Observe(ctx, event, hc, data)
		})
		if err != nil {
			for _, reg := range regs {
				reg.Close()
			}
			return nil, err
		}
		regs = append(regs, reg)
	}
	return &Registration{close: func() {
		for _, reg := range regs {
			reg.Close()
		}
	}}, nil
}

// Len returns the number of hooks registered for event.
func (r *Registry) Len(event EventType) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hooks[event])
}

// RunAgentStart dispatches agent_start.
func (r *Registry) RunAgentStart(ctx context.Context, hc Context, input any) {
	r.dispatch(ctx, EventAgentStart, hc, input, false)
}

// RunAgentEnd dispatches agent_end.
func (r *Registry) RunAgentEnd(ctx context.Context, hc Context, output any) {
	r.dispatch(ctx, EventAgentEnd, hc, output, false)
}

// RunToolStart dispatches tool_start.
func (r *Registry) RunToolStart(ctx context.Context, hc Context, args any) {
	r.dispatch(ctx, EventToolStart, hc, args, false)
}

// RunToolEnd dispatches tool_end.
func (r *Registry) RunToolEnd(ctx context.Context, hc Context, result any) {
	r.dispatch(ctx, EventToolEnd, hc, result, false)
}

// RunError dispatches error. Failures of error hooks are logged but not
// dispatched again.
func (r *Registry) RunError(ctx context.Context, hc Context, err error) {
	r.dispatch(ctx, EventError, hc, err, true)
}

// Emit dispatches event with data. It is used to replay events received
// from another process.
func (r *Registry) Emit(ctx context.Context, event EventType, hc Context, data any) error {
	if !event.Valid() {
		return agenterrors.UserErrorf("unknown hook event %q", event)
	}
	r.dispatch(ctx, event, hc, data, event == EventError)
	return nil
}

// dispatch runs the hooks of event. inError is set when the dispatch is
// itself an error dispatch and stops hook failures from being dispatched
// again.
func (r *Registry) dispatch(ctx context.Context, event EventType, hc Context, data any, inError bool) {
	r.mu.RLock()
	snapshot := slices.Clone(r.hooks[event])
	r.mu.RUnlock()

	for _, e := range snapshot {
		err := invoke(ctx, e.hook, hc, data)
		if err == nil {
			continue
		}
		r.logger.Error(ctx, "[HOOK ERROR]",
			"event", string(event),
			"agent", hc.AgentName,
			"tool", hc.ToolName,
			"err", err,
		)
		r.metrics.IncCounter(MetricFailures, 1, "event", string(event))
		if inError {
			continue
		}
		r.dispatch(ctx, EventError, hc, &HookError{
			Event:     event,
			AgentName: hc.AgentName,
			ToolName:  hc.ToolName,
			Err:       err,
		}, true)
	}
}

func (r *Registry) remove(event EventType, e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[event] = slices.DeleteFunc(slices.Clone(r.hooks[event]), func(x *entry) bool { return x == e })
}

func invoke(ctx context.Context, h Hook, hc Context, data any) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("hook panicked: %v", p)
		}
	}()
	return h(ctx, hc, data)
}

// Close unregisters the hooks. It is safe to call more than once.
func (r *Registration) Close() {
	if r == nil {
		return
	}
	r.once.Do(r.close)
}

// Error implements error.
func (e *HookError) Error() string {
	if e.ToolName != "" {
		return fmt.Sprintf("%s hook for agent %s tool %s failed: %v", e.Event, e.AgentName, e.ToolName, e.Err)
	}
	return fmt.Sprintf("%s hook for agent %s failed: %v", e.Event, e.AgentName, e.Err)
}

// Unwrap returns the hook failure.
func (e *HookError) Unwrap() error { return e.Err }
