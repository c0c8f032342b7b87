package hooks

import (
	"context"

	"goa.design/agentcore/runtime/agent/telemetry"
)

// NewLoggingRegistry returns a registry with hooks that log every lifecycle
// event and its payload to logger. Hook failures are reported through the same logger.
func NewLoggingRegistry(logger telemetry.Logger) *Registry {
	r := NewRegistry(Options{Telemetry: telemetry.Set{Logger: logger}})
	if logger == nil {
		return r
	}
	must := func(_ *Registration, err error) {
		if err != nil {
			panic(err) // hooks below are never nil
		}
	}
	must(r.RegisterAgentStart(func(ctx context.Context, hc Context, data any) error {
		logger.Info(ctx, "[AGENT START]", "agent", hc.AgentName, "input", data)
		return nil
	}))
	must(r.RegisterAgentEnd(func(ctx context.Context, hc Context, data any) error {
		logger.Info(ctx, "[AGENT END]", "agent", hc.AgentName, "output", data)
		return nil
	}))
	must(r.RegisterToolStart(func(ctx context.Context, hc Context, data any) error {
		logger.Info(ctx, "[TOOL START]", "agent", hc.AgentName, "tool", hc.ToolName, "input", data)
		return nil
	}))
	must(r.RegisterToolEnd(func(ctx context.Context, hc Context, data any) error {
		logger.Info(ctx, "[TOOL END]", "agent", hc.AgentName, "tool", hc.ToolName, "result", data)
		return nil
	}))
	must(r.RegisterError(func(ctx context.Context, hc Context, data any) error {
		logger.Error(ctx, "[ERROR]", "agent", hc.AgentName, "tool", hc.ToolName, "err", data)
		return nil
	}))
	return r
}
