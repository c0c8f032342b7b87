package openai

import (
	"context"
	"encoding/json"

	"github.com/openai/openai-go/responses"

	"goa.design/agentcore/runtime/agent/convert"
	"goa.design/agentcore/runtime/agent/stream"
)

type (
	// EventStream is the subset of *ssestream.Stream used by Consume.
	EventStream interface {
		Next() bool
		Current() responses.ResponseStreamEventUnion
		Err() error
	}

	// StreamProcessor translates Responses stream events into deltas.
	// Output indexes become block indexes. It is stateless and safe for
	// concurrent use.
	StreamProcessor struct{}
)

// Events that carry nothing the accumulator needs beyond what the item and
// text deltas already convey.
var ignored = map[string]struct{}{
	"response.queued":                       {},
	"response.in_progress":                  {},
	"response.content_part.added":           {},
	"response.content_part.done":            {},
	"response.output_text.done":             {},
	"response.function_call_arguments.done": {},
	"response.reasoning_summary_part.added": {},
	"response.reasoning_summary_part.done":  {},
	"response.reasoning_summary_text.done":  {},
}

// Handle returns the deltas of ev. Events without a canonical counterpart
// keep their Responses type as the delta kind.
func (StreamProcessor) Handle(ev responses.ResponseStreamEventUnion) []stream.Delta {
	idx := int(ev.OutputIndex)
	switch ev.Type {
	case "response.created":
		return []stream.Delta{{
			Kind:      stream.DeltaMessageStart,
			MessageID: ev.Response.ID,
			Model:     string(ev.Response.Model),
		}}
	case "response.output_item.added":
		return itemStart(idx, ev.Item)
	case "response.output_text.delta", "response.reasoning_summary_text.delta", "response.refusal.delta":
		return []stream.Delta{{Kind: stream.DeltaText, Index: idx, Text: ev.Delta.OfString}}
	case "response.function_call_arguments.delta":
		return []stream.Delta{{Kind: stream.DeltaToolArgs, Index: idx, Text: ev.Delta.OfString}}
	case "response.output_item.done":
		out := make([]stream.Delta, 0, 2)
		if structured(ev.Item.Type) {
			out = append(out, stream.Delta{Kind: stream.DeltaJSON, Index: idx, JSON: payload(ev.Item)})
		}
		return append(out, stream.Delta{Kind: stream.DeltaBlockStop, Index: idx})
	case "response.completed", "response.incomplete":
		d := stream.Delta{Kind: stream.DeltaMessage, Usage: Usage(ev.Response.Usage)}
		if r, ok := StopReason(&ev.Response); ok {
			d.StopReason = &r
		}
		return []stream.Delta{d, {Kind: stream.DeltaMessageStop}}
	case "response.failed":
		e := ev.Response.Error
		return []stream.Delta{{Kind: stream.DeltaError, Err: failure("responses.stream", string(e.Code), e.Message)}}
	case "error":
		return []stream.Delta{{Kind: stream.DeltaError, Err: failure("responses.stream", ev.Code, ev.Message)}}
	}
	if _, ok := ignored[ev.Type]; ok {
		return nil
	}
	return []stream.Delta{{Kind: stream.DeltaKind(ev.Type)}}
}

func itemStart(idx int, item responses.ResponseOutputItemUnion) []stream.Delta {
	switch item.Type {
	case convert.TypeMessage:
		return []stream.Delta{{Kind: stream.DeltaBlockStart, Index: idx, BlockType: stream.BlockText}}
	case convert.TypeReasoning:
		return []stream.Delta{{Kind: stream.DeltaBlockStart, Index: idx, BlockType: stream.BlockReasoning}}
	case convert.TypeFunctionCall:
		id := item.CallID
		if id == "" {
			id = item.ID
		}
		out := []stream.Delta{{Kind: stream.DeltaBlockStart, Index: idx, BlockType: stream.BlockTool, ToolID: id, ToolName: item.Name}}
		if item.Arguments != "" {
			out = append(out, stream.Delta{Kind: stream.DeltaToolArgs, Index: idx, Text: item.Arguments})
		}
		return out
	}
	return []stream.Delta{{Kind: stream.DeltaBlockStart, Index: idx, BlockType: stream.BlockStructured, JSON: payload(item)}}
}

func structured(typ string) bool {
	switch typ {
	case convert.TypeMessage, convert.TypeReasoning, convert.TypeFunctionCall:
		return false
	}
	return true
}

func payload(item responses.ResponseOutputItemUnion) any {
	var v map[string]any
	if err := json.Unmarshal([]byte(item.RawJSON()), &v); err != nil || v == nil {
		return map[string]any{"type": item.Type}
	}
	return v
}

// Consume applies every event of s to acc until the stream ends. Transport
// failures are classified with WrapError, recorded on acc and returned.
// Failures reported in-band by the stream are returned as recorded.
func Consume(ctx context.Context, s EventStream, acc *stream.Accumulator) error {
	var p StreamProcessor
	for s.Next() {
		if err := ctx.Err(); err != nil {
			acc.Fail(err)
			return err
		}
		for _, d := range p.Handle(s.Current()) {
			acc.Apply(ctx, d)
		}
		if acc.Status() == stream.ResponseError {
			return acc.Err()
		}
	}
	if err := s.Err(); err != nil {
		werr := WrapError("responses.stream", err)
		acc.Apply(ctx, stream.Delta{Kind: stream.DeltaError, Err: werr})
		return werr
	}
	if acc.Status() == stream.ResponseInProgress {
		acc.Finish()
	}
	return nil
}
