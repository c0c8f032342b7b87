// Package convert maps raw provider output blocks onto the canonical model.
//
// A Block is a loosely typed record carrying at least a "type" discriminator.
// Convert dispatches on that discriminator and emits at most one OutputItem per
// block, preserving input order. Unknown discriminators are skipped, malformed
// tool arguments degrade to an empty input, and unknown statuses degrade to
// completed: no block can abort conversion of the others.
package convert

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	agent "goa.design/agentcore/runtime/agent"
	"goa.design/agentcore/runtime/agent/items"
	"goa.design/agentcore/runtime/agent/model"
	"goa.design/agentcore/runtime/agent/telemetry"
)

// Block discriminators understood by the converter.
const (
	TypeMessage        = "message"
	TypeFunctionCall   = "function_call"
	TypeWebSearchCall  = "web_search_call"
	TypeFileSearchCall = "file_search_call"
	TypeComputerCall   = "computer_call"
	TypeReasoning      = "reasoning"
)

const (
	// UnknownFunctionName names function calls that arrive without a name.
	UnknownFunctionName = "unknown_function"
	// HandoffPrefix marks function calls that request a handoff.
	HandoffPrefix = "transfer_to_"
)

// Metric names emitted by the converter.
const (
	MetricSkipped = "agentcore.convert.skipped"
	MetricInvalid = "agentcore.convert.invalid"
)

type (
	// Block is one raw provider output record.
	Block map[string]any

	// Options configures a Converter.
	Options struct {
		// Telemetry receives diagnostics. Nil surfaces default to noop.
		Telemetry telemetry.Set
		// NewID generates identifiers for records that arrive without one.
		// Defaults to uuid.NewString.
		NewID func() string
	}

	// Converter converts raw blocks into canonical items. It holds no state
	// across calls and is safe for concurrent use.
	Converter struct {
		logger  telemetry.Logger
		metrics telemetry.Metrics
		newID   func() string
	}
)

var defaultConverter = New(Options{})

// New returns a Converter configured with opts.
func New(opts Options) *Converter {
	tel := opts.Telemetry.WithDefaults()
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Converter{logger: tel.Logger, metrics: tel.Metrics, newID: newID}
}

// Convert converts blocks with a converter that discards diagnostics.
func Convert(ctx context.Context, blocks []Block) []model.OutputItem {
	return defaultConverter.Convert(ctx, blocks)
}

// RunItems converts blocks into run items with a converter that discards
// diagnostics.
func RunItems(ctx context.Context, a agent.Ident, blocks []Block) []items.RunItem {
	return defaultConverter.RunItems(ctx, a, blocks)
}

// DecodeBlocks decodes a JSON array of raw blocks.
func DecodeBlocks(data []byte) ([]Block, error) {
	var blocks []Block
	if err := json.Unmarshal(data, &blocks); err != nil {
		return nil, fmt.Errorf("decode blocks: %w", err)
	}
	return blocks, nil
}

// Type returns the block discriminator, or "" when absent or not a string.
func (b Block) Type() string {
	s, _ := b["type"].(string)
	return s
}

// Convert converts blocks into canonical items. The output preserves the
// order of the known blocks; unknown blocks are skipped.
func (c *Converter) Convert(ctx context.Context, blocks []Block) []model.OutputItem {
	out := make([]model.OutputItem, 0, len(blocks))
	for i, b := range blocks {
		it, ok := c.convertOne(ctx, i, b)
		if ok {
			out = append(out, it)
		}
	}
	return out
}

func (c *Converter) convertOne(ctx context.Context, index int, b Block) (model.OutputItem, bool) {
	var (
		it  model.OutputItem
		err error
	)
	switch t := b.Type(); t {
	case TypeMessage:
		it, err = c.message(ctx, b).Message()
	case TypeFunctionCall:
		it, err = c.functionCallMessage(ctx, b)
	case TypeWebSearchCall, TypeFileSearchCall, TypeComputerCall:
		it, err = c.builtinToolCall(ctx, t, b)
	case TypeReasoning:
		it, err = c.reasoning(ctx, b).Reasoning()
	default:
		c.skip(ctx, index, t)
		return nil, false
	}
	if err != nil {
		c.invalid(ctx, index, b.Type(), err)
		return nil, false
	}
	return it, true
}

// message builds the raw message record of a "message" block.
func (c *Converter) message(ctx context.Context, b Block) items.OutputMessage {
	role, _ := b["role"].(string)
	providerRole, _ := b["provider_role"].(string)
	stopSequence, _ := b["stop_sequence"].(string)
	msg := items.OutputMessage{
		ID:           c.id(b),
		Role:         role,
		ProviderRole: providerRole,
		Status:       c.status(ctx, TypeMessage, b["status"]),
		StopReason:   c.stopReason(ctx, b["stop_reason"]),
		StopSequence: stopSequence,
	}
	entries, _ := b["content"].([]any)
	for _, e := range entries {
		entry, ok := e.(map[string]any)
		if !ok {
			continue
		}
		typ, _ := entry["type"].(string)
		text, _ := entry["text"].(string)
		refusal, _ := entry["refusal"].(string)
		annotations, _ := entry["annotations"].([]any)
		msg.Content = append(msg.Content, items.OutputContent{
			Type:        typ,
			Text:        text,
			Refusal:     refusal,
			Annotations: annotations,
		})
	}
	return msg
}

// functionCall builds the raw call record of a "function_call" block. When
// the arguments field is already an object it is re-encoded so both shapes
// share the same parsing path.
func (c *Converter) functionCall(ctx context.Context, b Block) items.FunctionToolCall {
	name, _ := b["name"].(string)
	if name == "" {
		name = UnknownFunctionName
	}
	callID, _ := b["call_id"].(string)
	call := items.FunctionToolCall{
		ID:     c.id(b),
		CallID: callID,
		Name:   name,
		Status: c.optionalStatus(ctx, TypeFunctionCall, b["status"]),
	}
	switch args := b["arguments"].(type) {
	case nil:
		call.Arguments = "{}"
	case string:
		call.Arguments = args
	case map[string]any:
		data, err := json.Marshal(args)
		if err != nil {
			call.Arguments = "{}"
			break
		}
		call.Arguments = string(data)
	default:
		data, _ := json.Marshal(args)
		call.Arguments = string(data)
	}
	if _, err := items.ParseArguments(call.Arguments); err != nil {
		c.logger.Error(ctx, "malformed tool call arguments, using empty input",
			"tool", call.Name, "call_id", call.ToolUseID(), "err", err)
	}
	return call
}

func (c *Converter) functionCallMessage(ctx context.Context, b Block) (model.OutputItem, error) {
	return items.NewToolCallItem("", c.functionCall(ctx, b)).Message()
}

// builtinToolCall wraps a provider built-in tool call into a single
// tool_reference part. Every key except type, id, and status lands in the
// part's data map.
func (c *Converter) builtinToolCall(ctx context.Context, typ string, b Block) (model.OutputItem, error) {
	id := c.id(b)
	status := c.status(ctx, typ, b["status"])
	data := make(map[string]any, len(b))
	for k, v := range b {
		switch k {
		case "type", "id", "status":
			continue
		}
		data[k] = v
	}
	ref, err := model.NewToolReferencePart(id, BuiltinToolName(typ), model.StatusPtr(status), data)
	if err != nil {
		return nil, err
	}
	return model.NewMessage(id, model.RoleAssistant, status, ref)
}

// reasoning builds the raw reasoning record of a "reasoning" block. Summary
// may be a string, a list of strings, or a list of {"text": ...} entries.
func (c *Converter) reasoning(ctx context.Context, b Block) items.ReasoningRecord {
	id, _ := b["id"].(string)
	rec := items.ReasoningRecord{ID: id}
	switch s := b["summary"].(type) {
	case string:
		if s != "" {
			rec.Summary = []string{s}
		}
	case []any:
		for _, e := range s {
			switch v := e.(type) {
			case string:
				rec.Summary = append(rec.Summary, v)
			case map[string]any:
				if text, ok := v["text"].(string); ok {
					rec.Summary = append(rec.Summary, text)
				}
			}
		}
	}
	if effort, ok := b["effort"].(string); ok && effort != "" {
		e := model.ReasoningEffort(effort)
		if e.Valid() {
			rec.Effort = &e
		} else {
			c.logger.Warn(ctx, "unknown reasoning effort, dropping", "effort", effort)
		}
	}
	return rec
}

// BuiltinToolName returns the canonical tool name of a built-in tool call
// discriminator.
func BuiltinToolName(typ string) string {
	if typ == TypeComputerCall {
		return items.ComputerUseToolName
	}
	return typ
}

// IsHandoff reports whether a function call name requests a handoff.
func IsHandoff(name string) bool {
	return strings.HasPrefix(name, HandoffPrefix)
}

func (c *Converter) id(b Block) string {
	if id, ok := b["id"].(string); ok && id != "" {
		return id
	}
	return c.newID()
}

func (c *Converter) status(ctx context.Context, typ string, raw any) model.Status {
	st, known := model.NormalizeStatus(raw)
	if !known {
		c.logger.Warn(ctx, "unknown status, defaulting to completed", "type", typ, "status", fmt.Sprint(raw))
	}
	return st
}

func (c *Converter) optionalStatus(ctx context.Context, typ string, raw any) *model.Status {
	if raw == nil {
		return nil
	}
	return model.StatusPtr(c.status(ctx, typ, raw))
}

func (c *Converter) stopReason(ctx context.Context, raw any) *model.StopReason {
	s, ok := raw.(string)
	if !ok || s == "" {
		return nil
	}
	r := model.StopReason(s)
	if !r.Valid() {
		c.logger.Warn(ctx, "unknown stop reason, dropping", "stop_reason", s)
		return nil
	}
	return &r
}

func (c *Converter) skip(ctx context.Context, index int, typ string) {
	c.logger.Debug(ctx, "skipping unknown block", "index", index, "type", typ)
	c.metrics.IncCounter(MetricSkipped, 1, "type", typ)
}

func (c *Converter) invalid(ctx context.Context, index int, typ string, err error) {
	c.logger.Error(ctx, "dropping invalid block", "index", index, "type", typ, "err", err)
	c.metrics.IncCounter(MetricInvalid, 1, "type", typ)
}
