package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"goa.design/agentcore/runtime/agent/telemetry"
)

type (
	// messageWire is the decode shape of a message item. Content stays raw so
	// each element can be dispatched on its own discriminator.
	messageWire struct {
		ID           string            `json:"id"`
		Role         Role              `json:"role"`
		ProviderRole string            `json:"provider_role"`
		Status       any               `json:"status"`
		Content      []json.RawMessage `json:"content"`
		StopReason   *StopReason       `json:"stop_reason"`
		StopSequence string            `json:"stop_sequence"`
	}

	toolUseWire struct {
		ID     string          `json:"id"`
		Name   string          `json:"name"`
		Input  json.RawMessage `json:"input"`
		Status any             `json:"status"`
	}

	toolResultWire struct {
		ToolUseID string            `json:"tool_use_id"`
		Content   []json.RawMessage `json:"content"`
	}

	toolReferenceWire struct {
		CallID   *string        `json:"call_id"`
		ToolName string         `json:"tool_name"`
		Status   any            `json:"status"`
		Data     map[string]any `json:"data"`
	}

	textWire struct {
		Text        *string `json:"text"`
		Annotations []any   `json:"annotations"`
	}

	// Decoder decodes canonical JSON. Recoverable ingest anomalies, such as
	// an unknown status, are repaired and reported to Logger.
	Decoder struct {
		Logger telemetry.Logger
	}
)

// DecodePart decodes one JSON content part with a Decoder that discards
// diagnostics.
func DecodePart(data []byte) (Part, error) {
	return Decoder{}.DecodePart(context.Background(), data)
}

// DecodeOutputItem decodes one JSON output item with a Decoder that
// discards diagnostics.
func DecodeOutputItem(data []byte) (OutputItem, error) {
	return Decoder{}.DecodeOutputItem(context.Background(), data)
}

// DecodeOutputItems decodes a JSON array of output items with a Decoder that
// discards diagnostics.
func DecodeOutputItems(data []byte) ([]OutputItem, error) {
	return Decoder{}.DecodeOutputItems(context.Background(), data)
}

// DecodePart decodes one JSON content part, dispatching on its "type" field.
// Unknown extra fields are ignored. A missing discriminator, an unknown
// discriminator, or a missing required field yields a *ConstructionError.
func (d Decoder) DecodePart(ctx context.Context, data []byte) (Part, error) {
	kind, err := discriminator(data, "part")
	if err != nil {
		return nil, err
	}
	switch PartKind(kind) {
	case PartKindText:
		var w textWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("decode text part: %w", err)
		}
		if w.Text == nil {
			return nil, missing(kind, "text")
		}
		return TextPart{Text: *w.Text, Annotations: w.Annotations}, nil
	case PartKindImage:
		var p ImagePart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode image part: %w", err)
		}
		return p, p.Validate()
	case PartKindAudio:
		var p AudioPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode audio part: %w", err)
		}
		return p, p.Validate()
	case PartKindToolUse:
		return d.decodeToolUse(ctx, data)
	case PartKindToolResult:
		return d.decodeToolResult(ctx, data)
	case PartKindToolReference:
		var w toolReferenceWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("decode tool_reference part: %w", err)
		}
		if w.CallID == nil {
			return nil, missing(kind, "call_id")
		}
		p := ToolReferencePart{CallID: *w.CallID, ToolName: w.ToolName, Status: d.optionalStatus(ctx, kind, w.Status), Data: w.Data}
		return p, p.Validate()
	default:
		return nil, &ConstructionError{Variant: kind, Reason: "unknown part type"}
	}
}

// DecodeOutputItem decodes one JSON output item, dispatching on its "type"
// field. A message with a missing or unknown status decodes as completed.
func (d Decoder) DecodeOutputItem(ctx context.Context, data []byte) (OutputItem, error) {
	kind, err := discriminator(data, "output_item")
	if err != nil {
		return nil, err
	}
	switch ItemKind(kind) {
	case ItemKindMessage:
		var m MessageOutput
		if err := d.decodeMessage(ctx, data, &m); err != nil {
			return nil, err
		}
		return m, nil
	case ItemKindReasoning:
		var r ReasoningOutput
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("decode reasoning item: %w", err)
		}
		return r, r.Validate()
	default:
		return nil, &ConstructionError{Variant: kind, Reason: "unknown output item type"}
	}
}

// DecodeOutputItems decodes a JSON array of output items, preserving order.
func (d Decoder) DecodeOutputItems(ctx context.Context, data []byte) ([]OutputItem, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decode output items: %w", err)
	}
	items := make([]OutputItem, 0, len(raws))
	for i, raw := range raws {
		it, err := d.DecodeOutputItem(ctx, raw)
		if err != nil {
			return nil, fmt.Errorf("output item %d: %w", i, err)
		}
		items = append(items, it)
	}
	return items, nil
}

// UnmarshalJSON decodes a message item including its nested content parts.
func (m *MessageOutput) UnmarshalJSON(data []byte) error {
	return Decoder{}.decodeMessage(context.Background(), data, m)
}

// UnmarshalJSON decodes a tool result including its nested content parts.
func (p *ToolResultPart) UnmarshalJSON(data []byte) error {
	part, err := Decoder{}.decodeToolResult(context.Background(), data)
	if err != nil {
		return err
	}
	*p = part
	return nil
}

// UnmarshalJSON decodes a tool_use part, requiring an object input.
func (p *ToolUsePart) UnmarshalJSON(data []byte) error {
	part, err := Decoder{}.decodeToolUse(context.Background(), data)
	if err != nil {
		return err
	}
	*p = part
	return nil
}

func (d Decoder) decodeMessage(ctx context.Context, data []byte, m *MessageOutput) error {
	var w messageWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode message item: %w", err)
	}
	parts, err := d.decodeParts(ctx, w.Content)
	if err != nil {
		return err
	}
	status := d.status(ctx, string(ItemKindMessage), w.Status)
	out := MessageOutput{
		ID:           w.ID,
		Role:         w.Role,
		ProviderRole: w.ProviderRole,
		Status:       status,
		Content:      parts,
		StopReason:   w.StopReason,
		StopSequence: w.StopSequence,
	}
	if err := out.Validate(); err != nil {
		return err
	}
	*m = out
	return nil
}

func (d Decoder) decodeToolUse(ctx context.Context, data []byte) (ToolUsePart, error) {
	const kind = string(PartKindToolUse)
	var w toolUseWire
	if err := json.Unmarshal(data, &w); err != nil {
		return ToolUsePart{}, fmt.Errorf("decode tool_use part: %w", err)
	}
	raw := bytes.TrimSpace(w.Input)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ToolUsePart{}, missing(kind, "input")
	}
	var input map[string]any
	if err := json.Unmarshal(raw, &input); err != nil {
		return ToolUsePart{}, &ConstructionError{Variant: kind, Field: "input", Reason: "must be a JSON object"}
	}
	p := ToolUsePart{ID: w.ID, Name: w.Name, Input: input, Status: d.optionalStatus(ctx, kind, w.Status)}
	return p, p.Validate()
}

func (d Decoder) decodeToolResult(ctx context.Context, data []byte) (ToolResultPart, error) {
	var w toolResultWire
	if err := json.Unmarshal(data, &w); err != nil {
		return ToolResultPart{}, fmt.Errorf("decode tool_result part: %w", err)
	}
	var content []Part
	if len(w.Content) > 0 {
		parts, err := d.decodeParts(ctx, w.Content)
		if err != nil {
			return ToolResultPart{}, err
		}
		content = parts
	}
	p := ToolResultPart{ToolUseID: w.ToolUseID, Content: content}
	return p, p.Validate()
}

func (d Decoder) decodeParts(ctx context.Context, raws []json.RawMessage) ([]Part, error) {
	parts := make([]Part, 0, len(raws))
	for i, raw := range raws {
		p, err := d.DecodePart(ctx, raw)
		if err != nil {
			return nil, fmt.Errorf("content[%d]: %w", i, err)
		}
		parts = append(parts, p)
	}
	return parts, nil
}

// status normalizes a decoded status. Missing and unknown values become
// completed; unknown ones are reported.
func (d Decoder) status(ctx context.Context, variant string, raw any) Status {
	st, known := NormalizeStatus(raw)
	if !known {
		d.logger().Warn(ctx, "unknown status, defaulting to completed", "type", variant, "status", fmt.Sprint(raw))
	}
	return st
}

// optionalStatus is status for parts whose status may be absent.
func (d Decoder) optionalStatus(ctx context.Context, variant string, raw any) *Status {
	if raw == nil {
		return nil
	}
	return StatusPtr(d.status(ctx, variant, raw))
}

func (d Decoder) logger() telemetry.Logger {
	if d.Logger == nil {
		return telemetry.NoopLogger{}
	}
	return d.Logger
}

// discriminator extracts the "type" field of a JSON object.
func discriminator(data []byte, variant string) (string, error) {
	var head struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return "", fmt.Errorf("decode %s: %w", variant, err)
	}
	if head.Type == nil || *head.Type == "" {
		return "", missing(variant, "type")
	}
	return *head.Type, nil
}
