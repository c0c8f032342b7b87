// Package hooks dispatches agent lifecycle events to registered callbacks.
//
// A Registry holds hooks per event type. Dispatch is synchronous and runs
// hooks in registration order against a snapshot of the registry, so hooks
// may register or unregister other hooks without affecting the dispatch in
// flight. Hook failures never reach the caller: returned errors and panics
// are logged, counted, and re-dispatched as error events.
package hooks

// EventType identifies an agent lifecycle event.
type EventType string

const (
	// EventAgentStart fires when an agent begins a run.
	EventAgentStart EventType = "agent_start"
	// EventAgentEnd fires when an agent produces its final output.
	EventAgentEnd EventType = "agent_end"
	// EventToolStart fires before a tool executes.
	EventToolStart EventType = "tool_start"
	// EventToolEnd fires after a tool returns.
	EventToolEnd EventType = "tool_end"
	// EventError fires when the run or a hook fails.
	EventError EventType = "error"
)

// EventTypes lists every event type in lifecycle order.
var EventTypes = []EventType{EventAgentStart, EventAgentEnd, EventToolStart, EventToolEnd, EventError}

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventAgentStart, EventAgentEnd, EventToolStart, EventToolEnd, EventError:
		return true
	}
	return false
}
