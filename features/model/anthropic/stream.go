package anthropic

import (
	"context"
	"encoding/json"

	sdk "github.com/anthropics/anthropic-sdk-go"

	"goa.design/agentcore/runtime/agent/model"
	"goa.design/agentcore/runtime/agent/stream"
)

type (
	// EventStream is the subset of *ssestream.Stream used by Consume.
	EventStream interface {
		Next() bool
		Current() sdk.MessageStreamEventUnion
		Err() error
	}

	// StreamProcessor translates Messages stream events into deltas.
	// It is stateless and safe for concurrent use.
	StreamProcessor struct{}
)

// Handle returns the deltas of ev. Events without a canonical counterpart
// keep their Anthropic type as the delta kind.
func (StreamProcessor) Handle(ev sdk.MessageStreamEventUnion) []stream.Delta {
	switch e := ev.AsAny().(type) {
	case sdk.MessageStartEvent:
		return []stream.Delta{{
			Kind:      stream.DeltaMessageStart,
			MessageID: e.Message.ID,
			Model:     string(e.Message.Model),
			Usage:     usage(e.Message.Usage.InputTokens, e.Message.Usage.OutputTokens),
		}}
	case sdk.ContentBlockStartEvent:
		return blockStart(int(e.Index), e.ContentBlock)
	case sdk.ContentBlockDeltaEvent:
		idx := int(e.Index)
		switch d := e.Delta.AsAny().(type) {
		case sdk.TextDelta:
			return []stream.Delta{{Kind: stream.DeltaText, Index: idx, Text: d.Text}}
		case sdk.ThinkingDelta:
			return []stream.Delta{{Kind: stream.DeltaText, Index: idx, Text: d.Thinking}}
		case sdk.InputJSONDelta:
			return []stream.Delta{{Kind: stream.DeltaToolArgs, Index: idx, Text: d.PartialJSON}}
		}
		return nil
	case sdk.ContentBlockStopEvent:
		return []stream.Delta{{Kind: stream.DeltaBlockStop, Index: int(e.Index)}}
	case sdk.MessageDeltaEvent:
		d := stream.Delta{
			Kind:         stream.DeltaMessage,
			StopSequence: e.Delta.StopSequence,
			Usage:        usage(e.Usage.InputTokens, e.Usage.OutputTokens),
		}
		if r, ok := StopReason(e.Delta.StopReason); ok {
			d.StopReason = &r
		}
		return []stream.Delta{d}
	case sdk.MessageStopEvent:
		return []stream.Delta{{Kind: stream.DeltaMessageStop}}
	}
	return []stream.Delta{{Kind: stream.DeltaKind(ev.Type)}}
}

func blockStart(idx int, cb sdk.ContentBlockStartEventContentBlockUnion) []stream.Delta {
	switch v := cb.AsAny().(type) {
	case sdk.TextBlock:
		out := []stream.Delta{{Kind: stream.DeltaBlockStart, Index: idx, BlockType: stream.BlockText}}
		if v.Text != "" {
			out = append(out, stream.Delta{Kind: stream.DeltaText, Index: idx, Text: v.Text})
		}
		return out
	case sdk.ThinkingBlock, sdk.RedactedThinkingBlock:
		return []stream.Delta{{Kind: stream.DeltaBlockStart, Index: idx, BlockType: stream.BlockReasoning}}
	case sdk.ToolUseBlock:
		return []stream.Delta{{
			Kind:      stream.DeltaBlockStart,
			Index:     idx,
			BlockType: stream.BlockTool,
			ToolID:    v.ID,
			ToolName:  v.Name,
			JSON:      seed(v.Input),
		}}
	case sdk.ServerToolUseBlock:
		d := stream.Delta{
			Kind:      stream.DeltaBlockStart,
			Index:     idx,
			BlockType: stream.BlockTool,
			ToolID:    v.ID,
			ToolName:  string(v.Name),
		}
		if in, ok := v.Input.(map[string]any); ok && len(in) > 0 {
			d.JSON = in
		}
		return []stream.Delta{d}
	}
	// Server tool results carry structured payloads.
	var payload any
	if err := json.Unmarshal([]byte(cb.RawJSON()), &payload); err != nil {
		payload = map[string]any{"type": cb.Type}
	}
	return []stream.Delta{{Kind: stream.DeltaBlockStart, Index: idx, BlockType: stream.BlockStructured, JSON: payload}}
}

// seed returns the initial tool input when the start event carries a
// non-empty object.
func seed(raw json.RawMessage) any {
	var in map[string]any
	if err := json.Unmarshal(raw, &in); err != nil || len(in) == 0 {
		return nil
	}
	return in
}

func usage(in, out int64) *model.Usage {
	if in == 0 && out == 0 {
		return nil
	}
	return &model.Usage{InputTokens: int(in), OutputTokens: int(out)}
}

// Consume applies every event of s to acc until the stream ends. Stream
// failures are classified with WrapError, recorded on acc and returned.
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
	}
	if err := s.Err(); err != nil {
		werr := WrapError("messages.stream", err)
		acc.Apply(ctx, stream.Delta{Kind: stream.DeltaError, Err: werr})
		return werr
	}
	if acc.Status() == stream.ResponseInProgress {
		acc.Finish()
	}
	return nil
}
