package hooks

import "maps"

type (
	// Context describes the agent and tool an event refers to. Values are
	// immutable: the With methods return modified copies.
	Context struct {
		// AgentName names the agent that emitted the event.
		AgentName string
		// ToolName names the tool for tool events. Empty otherwise.
		ToolName string
		// Metadata carries caller-defined values such as run or session IDs.
		Metadata map[string]any
	}

	// ContextOption configures a Context built by NewContext.
	ContextOption func(*Context)
)

// NewContext returns the Context of agent.
func NewContext(agent string, opts ...ContextOption) Context {
	hc := Context{AgentName: agent}
	for _, o := range opts {
		o(&hc)
	}
	return hc
}

// WithToolName sets the tool name.
func WithToolName(name string) ContextOption {
	return func(hc *Context) { hc.ToolName = name }
}

// WithMetadata sets the metadata. md is copied.
func WithMetadata(md map[string]any) ContextOption {
	return func(hc *Context) { hc.Metadata = maps.Clone(md) }
}

// WithTool returns a copy of hc scoped to the tool name.
func (hc Context) WithTool(name string) Context {
	out := hc
	out.ToolName = name
	out.Metadata = maps.Clone(hc.Metadata)
	return out
}

// WithValue returns a copy of hc with key set to value in its metadata.
func (hc Context) WithValue(key string, value any) Context {
	out := hc
	out.Metadata = make(map[string]any, len(hc.Metadata)+1)
	maps.Copy(out.Metadata, hc.Metadata)
	out.Metadata[key] = value
	return out
}

// Value returns the metadata value stored under key.
func (hc Context) Value(key string) (any, bool) {
	v, ok := hc.Metadata[key]
	return v, ok
}
