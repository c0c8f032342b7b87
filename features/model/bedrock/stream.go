package bedrock

import (
	"context"
	"fmt"

	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"goa.design/agentcore/runtime/agent/model"
	"goa.design/agentcore/runtime/agent/stream"
)

type (
	// EventStream is the subset of *bedrockruntime.ConverseStreamEventStream
	// used by Consume.
	EventStream interface {
		Events() <-chan brtypes.ConverseStreamOutput
		Err() error
	}

	// StreamProcessor translates ConverseStream events into deltas.
	StreamProcessor struct {
		// Names resolves provider-visible tool names.
		Names ToolNames
	}
)

// Handle returns the deltas of ev. Bedrock only opens tool blocks
// explicitly; text and reasoning blocks are created by their first delta.
// Handle fails on events missing their content block index.
func (p StreamProcessor) Handle(ev brtypes.ConverseStreamOutput) ([]stream.Delta, error) {
	switch e := ev.(type) {
	case *brtypes.ConverseStreamOutputMemberMessageStart:
		return []stream.Delta{{Kind: stream.DeltaMessageStart}}, nil
	case *brtypes.ConverseStreamOutputMemberContentBlockStart:
		idx, err := contentIndex(e.Value.ContentBlockIndex)
		if err != nil {
			return nil, err
		}
		tu, ok := e.Value.Start.(*brtypes.ContentBlockStartMemberToolUse)
		if !ok {
			return nil, nil
		}
		return []stream.Delta{{
			Kind:      stream.DeltaBlockStart,
			Index:     idx,
			BlockType: stream.BlockTool,
			ToolID:    deref(tu.Value.ToolUseId),
			ToolName:  p.Names.Canonical(deref(tu.Value.Name)),
		}}, nil
	case *brtypes.ConverseStreamOutputMemberContentBlockDelta:
		idx, err := contentIndex(e.Value.ContentBlockIndex)
		if err != nil {
			return nil, err
		}
		switch d := e.Value.Delta.(type) {
		case *brtypes.ContentBlockDeltaMemberText:
			return []stream.Delta{{Kind: stream.DeltaText, Index: idx, Text: d.Value}}, nil
		case *brtypes.ContentBlockDeltaMemberReasoningContent:
			t, ok := d.Value.(*brtypes.ReasoningContentBlockDeltaMemberText)
			if !ok {
				return nil, nil
			}
			return []stream.Delta{
				{Kind: stream.DeltaBlockStart, Index: idx, BlockType: stream.BlockReasoning},
				{Kind: stream.DeltaText, Index: idx, Text: t.Value},
			}, nil
		case *brtypes.ContentBlockDeltaMemberToolUse:
			return []stream.Delta{{Kind: stream.DeltaToolArgs, Index: idx, Text: deref(d.Value.Input)}}, nil
		}
		return nil, nil
	case *brtypes.ConverseStreamOutputMemberContentBlockStop:
		idx, err := contentIndex(e.Value.ContentBlockIndex)
		if err != nil {
			return nil, err
		}
		return []stream.Delta{{Kind: stream.DeltaBlockStop, Index: idx}}, nil
	case *brtypes.ConverseStreamOutputMemberMessageStop:
		d := stream.Delta{Kind: stream.DeltaMessage}
		if r, ok := StopReason(e.Value.StopReason); ok {
			d.StopReason = &r
		}
		return []stream.Delta{d, {Kind: stream.DeltaMessageStop}}, nil
	case *brtypes.ConverseStreamOutputMemberMetadata:
		// Metadata follows message_stop; usage still applies.
		return []stream.Delta{{Kind: stream.DeltaMessage, Usage: Usage(e.Value.Usage)}}, nil
	case *brtypes.UnknownUnionMember:
		return []stream.Delta{{Kind: stream.DeltaKind(e.Tag)}}, nil
	}
	return nil, nil
}

func contentIndex(idx *int32) (int, error) {
	if idx == nil {
		return 0, fmt.Errorf("bedrock: content block index missing")
	}
	return int(*idx), nil
}

// Consume applies every event of s to acc until the event channel closes or
// ctx is done. Failures are classified, recorded on acc and returned.
func Consume(ctx context.Context, s EventStream, acc *stream.Accumulator, names ToolNames) error {
	p := StreamProcessor{Names: names}
	events := s.Events()
	for {
		select {
		case <-ctx.Done():
			err := ctx.Err()
			acc.Fail(err)
			return err
		case ev, ok := <-events:
			if !ok {
				if err := s.Err(); err != nil {
					werr := WrapError("converse_stream", err)
					acc.Apply(ctx, stream.Delta{Kind: stream.DeltaError, Err: werr})
					return werr
				}
				if acc.Status() == stream.ResponseInProgress {
					acc.Finish()
				}
				return nil
			}
			deltas, err := p.Handle(ev)
			if err != nil {
				werr := streamFailure(err)
				acc.Apply(ctx, stream.Delta{Kind: stream.DeltaError, Err: werr})
				return werr
			}
			for _, d := range deltas {
				acc.Apply(ctx, d)
			}
		}
	}
}

func streamFailure(err error) error {
	pe, perr := model.NewProviderError(model.ProviderErrorOptions{
		Provider:  ProviderName,
		Operation: "converse_stream",
		Kind:      model.ProviderErrorKindStream,
		Message:   err.Error(),
		Cause:     err,
	})
	if perr != nil {
		return err
	}
	return pe
}
