package model

import "encoding/json"

// MarshalJSON encodes TextPart with its "type" discriminator.
func (p TextPart) MarshalJSON() ([]byte, error) {
	type alias TextPart
	return json.Marshal(struct {
		Type PartKind `json:"type"`
		alias
	}{
		Type:  PartKindText,
		alias: alias(p),
	})
}

// MarshalJSON encodes ImagePart with its "type" discriminator.
func (p ImagePart) MarshalJSON() ([]byte, error) {
	type alias ImagePart
	return json.Marshal(struct {
		Type PartKind `json:"type"`
		alias
	}{
		Type:  PartKindImage,
		alias: alias(p),
	})
}

// MarshalJSON encodes AudioPart with its "type" discriminator.
func (p AudioPart) MarshalJSON() ([]byte, error) {
	type alias AudioPart
	return json.Marshal(struct {
		Type PartKind `json:"type"`
		alias
	}{
		Type:  PartKindAudio,
		alias: alias(p),
	})
}

// MarshalJSON encodes ToolUsePart with its "type" discriminator. A nil input
// is emitted as an empty object so the encoded form always decodes.
func (p ToolUsePart) MarshalJSON() ([]byte, error) {
	type alias ToolUsePart
	if p.Input == nil {
		p.Input = map[string]any{}
	}
	return json.Marshal(struct {
		Type PartKind `json:"type"`
		alias
	}{
		Type:  PartKindToolUse,
		alias: alias(p),
	})
}

// MarshalJSON encodes ToolResultPart with its "type" discriminator. Nested
// parts encode through their own MarshalJSON.
func (p ToolResultPart) MarshalJSON() ([]byte, error) {
	type alias ToolResultPart
	return json.Marshal(struct {
		Type PartKind `json:"type"`
		alias
	}{
		Type:  PartKindToolResult,
		alias: alias(p),
	})
}

// MarshalJSON encodes ToolReferencePart with its "type" discriminator.
func (p ToolReferencePart) MarshalJSON() ([]byte, error) {
	type alias ToolReferencePart
	return json.Marshal(struct {
		Type PartKind `json:"type"`
		alias
	}{
		Type:  PartKindToolReference,
		alias: alias(p),
	})
}

// MarshalJSON encodes MessageOutput with its "type" discriminator. Content is
// always emitted as an array.
func (m MessageOutput) MarshalJSON() ([]byte, error) {
	type alias MessageOutput
	if m.Content == nil {
		m.Content = []Part{}
	}
	return json.Marshal(struct {
		Type ItemKind `json:"type"`
		alias
	}{
		Type:  ItemKindMessage,
		alias: alias(m),
	})
}

// MarshalJSON encodes ReasoningOutput with its "type" discriminator.
func (r ReasoningOutput) MarshalJSON() ([]byte, error) {
	type alias ReasoningOutput
	return json.Marshal(struct {
		Type ItemKind `json:"type"`
		alias
	}{
		Type:  ItemKindReasoning,
		alias: alias(r),
	})
}
