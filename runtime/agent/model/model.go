// Package model defines the canonical, provider-agnostic output model produced
// by the converter and the stream accumulator. Every provider payload (OpenAI
// Responses, Anthropic Messages, Bedrock Converse) is normalized into these
// types before the run loop, guardrails, or hooks observe it.
//
// The two central unions are Part (content inside a message) and OutputItem
// (one unit of model output). Both are sealed: only the variants declared in
// this package implement them. Each variant serializes to a JSON object whose
// "type" field is the sole discriminator.
package model

type (
	// Status reports the generation status of an output item or tool call.
	Status string

	// StopReason explains why the provider stopped generating.
	StopReason string

	// Role is the canonical speaker role of a message item. Provider roles that
	// do not map onto this set are preserved in MessageOutput.ProviderRole.
	Role string

	// ReasoningEffort captures the effort level reported for a reasoning item.
	ReasoningEffort string

	// PartKind is the discriminator of a content part.
	PartKind string

	// ItemKind is the discriminator of an output item.
	ItemKind string
)

const (
	// StatusCompleted marks a finalized item.
	StatusCompleted Status = "completed"
	// StatusFailed marks an item the provider failed to produce.
	StatusFailed Status = "failed"
	// StatusInProgress marks a best-effort snapshot of an item still streaming.
	StatusInProgress Status = "in_progress"
	// StatusIncomplete marks an item truncated by the provider.
	StatusIncomplete Status = "incomplete"
)

const (
	StopReasonEndTurn       StopReason = "end_turn"
	StopReasonMaxTokens     StopReason = "max_tokens"
	StopReasonStopSequence  StopReason = "stop_sequence"
	StopReasonToolUse       StopReason = "tool_use"
	StopReasonContentFilter StopReason = "content_filter"
)

const (
	// RoleAssistant is the model speaker role.
	RoleAssistant Role = "assistant"
	// RoleUser is the end-user speaker role.
	RoleUser Role = "user"
)

const (
	ReasoningEffortLow    ReasoningEffort = "low"
	ReasoningEffortMedium ReasoningEffort = "medium"
	ReasoningEffortHigh   ReasoningEffort = "high"
)

const (
	PartKindText          PartKind = "text"
	PartKindImage         PartKind = "image"
	PartKindAudio         PartKind = "audio"
	PartKindToolUse       PartKind = "tool_use"
	PartKindToolResult    PartKind = "tool_result"
	PartKindToolReference PartKind = "tool_reference"
)

const (
	ItemKindMessage   ItemKind = "message"
	ItemKindReasoning ItemKind = "reasoning"
)

type (
	// Part is a single content block inside a message. The concrete variants
	// are TextPart, ImagePart, AudioPart, ToolUsePart, ToolResultPart, and
	// ToolReferencePart.
	Part interface {
		// Kind returns the JSON discriminator of the part.
		Kind() PartKind
		// Validate reports a *ConstructionError when a required field is missing
		// or an enumerated field holds an unknown value.
		Validate() error
		isPart()
	}

	// OutputItem is one unit of model output: a MessageOutput or a
	// ReasoningOutput.
	OutputItem interface {
		// Kind returns the JSON discriminator of the item.
		Kind() ItemKind
		// Validate reports a *ConstructionError when the item is malformed.
		Validate() error
		isOutputItem()
	}

	// TextPart carries plain text emitted by the model.
	TextPart struct {
		// Text is the text content.
		Text string `json:"text"`
		// Annotations carries provider-specific annotations (citations, file
		// references) verbatim.
		Annotations []any `json:"annotations,omitempty"`
	}

	// ImagePart references an image by URL.
	ImagePart struct {
		URL string `json:"url"`
		Alt string `json:"alt_text,omitempty"`
	}

	// AudioPart references an audio clip by URL.
	AudioPart struct {
		URL           string `json:"url"`
		Transcription string `json:"transcription,omitempty"`
	}

	// ToolUsePart records a tool invocation requested by the model.
	ToolUsePart struct {
		// ID is the provider-assigned identifier of the call.
		ID string `json:"id"`
		// Name is the tool name requested by the model.
		Name string `json:"name"`
		// Input is the decoded JSON object of call arguments. Never nil once
		// constructed through NewToolUsePart or decoding.
		Input map[string]any `json:"input"`
		// Status is the call status when the provider reports one.
		Status *Status `json:"status,omitempty"`
	}

	// ToolResultPart carries the result of a tool call back to the model.
	ToolResultPart struct {
		// ToolUseID correlates the result with ToolUsePart.ID.
		ToolUseID string `json:"tool_use_id"`
		// Content is the optional structured result content.
		Content []Part `json:"content,omitempty"`
	}

	// ToolReferencePart references a provider built-in tool call (web search,
	// file search, computer use) without embedding its result.
	ToolReferencePart struct {
		CallID   string  `json:"call_id"`
		ToolName string  `json:"tool_name,omitempty"`
		Status   *Status `json:"status,omitempty"`
		// Data holds the provider fields of the call that have no canonical
		// counterpart.
		Data map[string]any `json:"data,omitempty"`
	}

	// MessageOutput is a chat message item. Content preserves provider emission
	// order; an empty content list is valid.
	MessageOutput struct {
		ID           string      `json:"id"`
		Role         Role        `json:"role"`
		ProviderRole string      `json:"provider_role,omitempty"`
		Status       Status      `json:"status"`
		Content      []Part      `json:"content"`
		StopReason   *StopReason `json:"stop_reason,omitempty"`
		StopSequence string      `json:"stop_sequence,omitempty"`
	}

	// ReasoningOutput is a reasoning step reported by the model.
	ReasoningOutput struct {
		Effort  *ReasoningEffort `json:"effort,omitempty"`
		Summary string           `json:"summary,omitempty"`
	}
)

// Kind implements Part.
func (TextPart) Kind() PartKind { return PartKindText }

// Kind implements Part.
func (ImagePart) Kind() PartKind { return PartKindImage }

// Kind implements Part.
func (AudioPart) Kind() PartKind { return PartKindAudio }

// Kind implements Part.
func (ToolUsePart) Kind() PartKind { return PartKindToolUse }

// Kind implements Part.
func (ToolResultPart) Kind() PartKind { return PartKindToolResult }

// Kind implements Part.
func (ToolReferencePart) Kind() PartKind { return PartKindToolReference }

// Kind implements OutputItem.
func (MessageOutput) Kind() ItemKind { return ItemKindMessage }

// Kind implements OutputItem.
func (ReasoningOutput) Kind() ItemKind { return ItemKindReasoning }

func (TextPart) isPart()          {}
func (ImagePart) isPart()         {}
func (AudioPart) isPart()         {}
func (ToolUsePart) isPart()       {}
func (ToolResultPart) isPart()    {}
func (ToolReferencePart) isPart() {}

func (MessageOutput) isOutputItem()   {}
func (ReasoningOutput) isOutputItem() {}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusInProgress, StatusIncomplete:
		return true
	}
	return false
}

// Valid reports whether r is one of the known stop reasons.
func (r StopReason) Valid() bool {
	switch r {
	case StopReasonEndTurn, StopReasonMaxTokens, StopReasonStopSequence, StopReasonToolUse, StopReasonContentFilter:
		return true
	}
	return false
}

// Valid reports whether r is a canonical role.
func (r Role) Valid() bool {
	return r == RoleAssistant || r == RoleUser
}

// Valid reports whether e is one of the known effort levels.
func (e ReasoningEffort) Valid() bool {
	switch e {
	case ReasoningEffortLow, ReasoningEffortMedium, ReasoningEffortHigh:
		return true
	}
	return false
}

// ParseStatus returns the Status named by s and whether it is known.
func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	return st, st.Valid()
}

// NormalizeStatus maps a loosely typed provider status onto Status. Missing
// values (nil or "") yield StatusCompleted with known set to true; values
// outside the enum yield StatusCompleted with known set to false so callers
// can emit a diagnostic.
func NormalizeStatus(raw any) (status Status, known bool) {
	if raw == nil {
		return StatusCompleted, true
	}
	s, ok := raw.(string)
	if !ok {
		return StatusCompleted, false
	}
	if s == "" {
		return StatusCompleted, true
	}
	if st, ok := ParseStatus(s); ok {
		return st, true
	}
	return StatusCompleted, false
}

// StatusPtr returns a pointer to s, convenient for optional status fields.
func StatusPtr(s Status) *Status { return &s }

// StopReasonPtr returns a pointer to r.
func StopReasonPtr(r StopReason) *StopReason { return &r }

// EffortPtr returns a pointer to e.
func EffortPtr(e ReasoningEffort) *ReasoningEffort { return &e }

// Text returns the concatenated text of every TextPart in the message, in
// order.
func (m MessageOutput) Text() string {
	var n int
	for _, p := range m.Content {
		if t, ok := p.(TextPart); ok {
			n += len(t.Text)
		}
	}
	buf := make([]byte, 0, n)
	for _, p := range m.Content {
		if t, ok := p.(TextPart); ok {
			buf = append(buf, t.Text...)
		}
	}
	return string(buf)
}

// ToolUses returns the tool_use parts of the message in order.
func (m MessageOutput) ToolUses() []ToolUsePart {
	var out []ToolUsePart
	for _, p := range m.Content {
		if tu, ok := p.(ToolUsePart); ok {
			out = append(out, tu)
		}
	}
	return out
}
