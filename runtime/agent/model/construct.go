package model

import (
	"errors"
	"fmt"
)

// ConstructionError reports a tagged-union variant that cannot be built from
// the supplied fields: a required field is absent, an enumerated field holds an
// unknown value, or the discriminator names no known variant.
type ConstructionError struct {
	// Variant is the discriminator of the variant being built (e.g. "tool_use").
	Variant string
	// Field names the offending field, empty when the discriminator itself is
	// at fault.
	Field string
	// Reason describes the violation.
	Reason string
}

// Error implements error.
func (e *ConstructionError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("model: %s: %s", e.Variant, e.Reason)
	}
	return fmt.Sprintf("model: %s.%s: %s", e.Variant, e.Field, e.Reason)
}

// IsConstructionError reports whether err wraps a *ConstructionError.
func IsConstructionError(err error) bool {
	var ce *ConstructionError
	return errors.As(err, &ce)
}

func missing(variant, field string) error {
	return &ConstructionError{Variant: variant, Field: field, Reason: "required field is missing"}
}

func invalid(variant, field string, value any) error {
	return &ConstructionError{Variant: variant, Field: field, Reason: fmt.Sprintf("unknown value %q", fmt.Sprint(value))}
}

// NewTextPart builds a text part.
func NewTextPart(text string, annotations ...any) TextPart {
	return TextPart{Text: text, Annotations: annotations}
}

// NewImagePart builds an image part. url is required.
func NewImagePart(url, alt string) (ImagePart, error) {
	p := ImagePart{URL: url, Alt: alt}
	return p, p.Validate()
}

// NewAudioPart builds an audio part. url is required.
func NewAudioPart(url, transcription string) (AudioPart, error) {
	p := AudioPart{URL: url, Transcription: transcription}
	return p, p.Validate()
}

// NewToolUsePart builds a tool_use part. id and name are required; a nil input
// is normalized to an empty object.
func NewToolUsePart(id, name string, input map[string]any, status *Status) (ToolUsePart, error) {
	if input == nil {
		input = map[string]any{}
	}
	p := ToolUsePart{ID: id, Name: name, Input: input, Status: status}
	return p, p.Validate()
}

// NewToolResultPart builds a tool_result part. toolUseID is required and every
// nested part must itself be valid.
func NewToolResultPart(toolUseID string, content ...Part) (ToolResultPart, error) {
	p := ToolResultPart{ToolUseID: toolUseID, Content: content}
	return p, p.Validate()
}

// NewToolReferencePart builds a tool_reference part. The call ID may be empty
// when the provider omitted it.
func NewToolReferencePart(callID, toolName string, status *Status, data map[string]any) (ToolReferencePart, error) {
	p := ToolReferencePart{CallID: callID, ToolName: toolName, Status: status, Data: data}
	return p, p.Validate()
}

// NewMessage builds a message item. id is required, role must be canonical and
// status must be known. Content may be empty.
func NewMessage(id string, role Role, status Status, content ...Part) (MessageOutput, error) {
	if content == nil {
		content = []Part{}
	}
	m := MessageOutput{ID: id, Role: role, Status: status, Content: content}
	return m, m.Validate()
}

// NewReasoning builds a reasoning item.
func NewReasoning(summary string, effort *ReasoningEffort) (ReasoningOutput, error) {
	r := ReasoningOutput{Summary: summary, Effort: effort}
	return r, r.Validate()
}

// Validate implements Part. Text parts have no required field beyond the text
// itself, which may be empty.
func (p TextPart) Validate() error { return nil }

// Validate implements Part.
func (p ImagePart) Validate() error {
	if p.URL == "" {
		return missing(string(PartKindImage), "url")
	}
	return nil
}

// Validate implements Part.
func (p AudioPart) Validate() error {
	if p.URL == "" {
		return missing(string(PartKindAudio), "url")
	}
	return nil
}

// Validate implements Part.
func (p ToolUsePart) Validate() error {
	const v = string(PartKindToolUse)
	if p.ID == "" {
		return missing(v, "id")
	}
	if p.Name == "" {
		return missing(v, "name")
	}
	if p.Input == nil {
		return missing(v, "input")
	}
	if p.Status != nil && !p.Status.Valid() {
		return invalid(v, "status", *p.Status)
	}
	return nil
}

// Validate implements Part.
func (p ToolResultPart) Validate() error {
	if p.ToolUseID == "" {
		return missing(string(PartKindToolResult), "tool_use_id")
	}
	for _, c := range p.Content {
		if c == nil {
			return missing(string(PartKindToolResult), "content")
		}
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate implements Part.
func (p ToolReferencePart) Validate() error {
	if p.Status != nil && !p.Status.Valid() {
		return invalid(string(PartKindToolReference), "status", *p.Status)
	}
	return nil
}

// Validate implements OutputItem.
func (m MessageOutput) Validate() error {
	const v = string(ItemKindMessage)
	if m.ID == "" {
		return missing(v, "id")
	}
	if m.Role == "" {
		return missing(v, "role")
	}
	if !m.Role.Valid() {
		return invalid(v, "role", m.Role)
	}
	if !m.Status.Valid() {
		return invalid(v, "status", m.Status)
	}
	if m.StopReason != nil && !m.StopReason.Valid() {
		return invalid(v, "stop_reason", *m.StopReason)
	}
	for _, p := range m.Content {
		if p == nil {
			return missing(v, "content")
		}
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate implements OutputItem.
func (r ReasoningOutput) Validate() error {
	if r.Effort != nil && !r.Effort.Valid() {
		return invalid(string(ItemKindReasoning), "effort", *r.Effort)
	}
	return nil
}
