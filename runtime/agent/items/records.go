// Package items defines run items: the agent-turn level wrappers around raw
// provider records. A run item owns exactly one raw record, never changes after
// construction, and converts its record into the canonical model on demand.
package items

import (
	"encoding/json"
	"errors"
	"maps"
	"strings"

	"goa.design/agentcore/runtime/agent/model"
)

// ComputerUseToolName is the tool name used for provider computer-use calls.
const ComputerUseToolName = "computer_use"

// ErrArgumentsNotObject indicates tool call arguments decoded to a JSON value
// other than an object.
var ErrArgumentsNotObject = errors.New("tool call arguments are not a JSON object")

type (
	// FunctionToolCall is a provider function call record.
	FunctionToolCall struct {
		// ID is the provider identifier of the output record.
		ID string
		// CallID correlates the call with its tool result. Some providers
		// only set ID.
		CallID string
		// Name is the requested tool name.
		Name string
		// Arguments is the raw JSON argument string exactly as emitted.
		Arguments string
		// Status is the call status when reported.
		Status *model.Status
	}

	// ComputerCall is a provider computer-use call record.
	ComputerCall struct {
		ID     string
		CallID string
		Action map[string]any
		Status *model.Status
	}

	// OutputContent is one content entry of a provider output message.
	OutputContent struct {
		// Type is the provider content type ("output_text", "text",
		// "refusal", ...).
		Type        string
		Text        string
		Refusal     string
		Annotations []any
	}

	// OutputMessage is a provider message record.
	OutputMessage struct {
		ID string
		// Role is the provider role string. Roles outside the canonical set
		// map to assistant and are kept in the canonical ProviderRole.
		Role         string
		ProviderRole string
		Status       model.Status
		Content      []OutputContent
		StopReason   *model.StopReason
		StopSequence string
	}

	// ReasoningRecord is a provider reasoning record.
	ReasoningRecord struct {
		ID      string
		Summary []string
		Effort  *model.ReasoningEffort
	}
)

// ParseArguments decodes a raw tool argument string into a JSON object. An
// empty string decodes to an empty object. On failure it returns an empty,
// non-nil object together with the decoding error so callers can keep going.
func ParseArguments(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return map[string]any{}, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}, ErrArgumentsNotObject
	}
	return obj, nil
}

// ToolUseID returns the identifier tool results correlate with: CallID when
// set, ID otherwise.
func (c FunctionToolCall) ToolUseID() string {
	if c.CallID != "" {
		return c.CallID
	}
	return c.ID
}

// ToolUse converts the call into a tool_use part. Malformed arguments yield an
// empty input; use ParseArguments to observe the decoding error.
func (c FunctionToolCall) ToolUse() (model.ToolUsePart, error) {
	input, _ := ParseArguments(c.Arguments)
	return model.NewToolUsePart(c.ToolUseID(), c.Name, input, c.Status)
}

// ToolUse converts the computer call into a computer_use tool_use part whose
// input carries the action under "command".
func (c ComputerCall) ToolUse() (model.ToolUsePart, error) {
	id := c.CallID
	if id == "" {
		id = c.ID
	}
	return model.NewToolUsePart(id, ComputerUseToolName, map[string]any{"command": maps.Clone(c.Action)}, c.Status)
}

// Message converts the record into a canonical message. Only text content
// ("output_text" and "text") is kept; other content types are dropped in
// order.
func (m OutputMessage) Message() (model.MessageOutput, error) {
	role, providerRole := CanonicalRole(m.Role)
	if m.ProviderRole != "" {
		providerRole = m.ProviderRole
	}
	status := m.Status
	if status == "" {
		status = model.StatusCompleted
	}
	parts := make([]model.Part, 0, len(m.Content))
	for _, c := range m.Content {
		if !IsTextContent(c.Type) {
			continue
		}
		parts = append(parts, model.NewTextPart(c.Text, c.Annotations...))
	}
	out, err := model.NewMessage(m.ID, role, status, parts...)
	if err != nil {
		return model.MessageOutput{}, err
	}
	out.ProviderRole = providerRole
	out.StopReason = m.StopReason
	out.StopSequence = m.StopSequence
	return out, out.Validate()
}

// Reasoning converts the record into a canonical reasoning item. Summary
// entries are joined with blank lines.
func (r ReasoningRecord) Reasoning() (model.ReasoningOutput, error) {
	return model.NewReasoning(strings.Join(r.Summary, "\n\n"), r.Effort)
}

// IsTextContent reports whether a provider message content type carries text
// kept by the canonical model.
func IsTextContent(t string) bool {
	return t == "output_text" || t == "text"
}

// CanonicalRole maps a provider role onto the canonical role set. The second
// return value is the provider role to preserve, empty when the role was
// already canonical.
func CanonicalRole(role string) (model.Role, string) {
	r := model.Role(role)
	if r.Valid() {
		return r, ""
	}
	if role == "" {
		return model.RoleAssistant, ""
	}
	return model.RoleAssistant, role
}

func cloneContent(in []OutputContent) []OutputContent {
	if in == nil {
		return nil
	}
	out := make([]OutputContent, len(in))
	for i, c := range in {
		c.Annotations = append([]any(nil), c.Annotations...)
		out[i] = c
	}
	return out
}

func (m OutputMessage) clone() OutputMessage {
	m.Content = cloneContent(m.Content)
	return m
}
