package stream

import (
	"context"

	"goa.design/agentcore/runtime/agent/model"
)

// MetricSkipped counts deltas of unknown kind.
const MetricSkipped = "agentcore.stream.skipped"

// DeltaKind identifies a provider-neutral stream event.
type DeltaKind string

const (
	// DeltaMessageStart opens the response. MessageID and Model are optional.
	DeltaMessageStart DeltaKind = "message_start"
	// DeltaBlockStart opens block Index with BlockType. Tool blocks carry
	// ToolID and ToolName; JSON optionally seeds the block value.
	DeltaBlockStart DeltaKind = "block_start"
	// DeltaText appends Text to block Index.
	DeltaText DeltaKind = "text_delta"
	// DeltaJSON merges JSON into block Index.
	DeltaJSON DeltaKind = "json_delta"
	// DeltaToolArgs appends a raw argument fragment in Text to tool block
	// Index.
	DeltaToolArgs DeltaKind = "tool_args_delta"
	// DeltaBlockStop closes block Index.
	DeltaBlockStop DeltaKind = "block_stop"
	// DeltaMessage reports response-level updates: StopReason, StopSequence
	// and Usage.
	DeltaMessage DeltaKind = "message_delta"
	// DeltaMessageStop finishes the response and closes every block.
	DeltaMessageStop DeltaKind = "message_stop"
	// DeltaError reports a provider error carried in Err.
	DeltaError DeltaKind = "error"
)

// Delta is one provider-neutral stream event. Only the fields documented on
// its Kind are read.
type Delta struct {
	Kind         DeltaKind
	Index        int
	BlockType    BlockType
	Text         string
	JSON         any
	ToolID       string
	ToolName     string
	MessageID    string
	Model        string
	StopReason   *model.StopReason
	StopSequence string
	Usage        *model.Usage
	Err          error
}

// Apply dispatches d onto the accumulator. Unknown kinds are skipped and
// reported through the debug log and the skipped counter. Apply reports
// whether d was recognized.
func (a *Accumulator) Apply(ctx context.Context, d Delta) bool {
	switch d.Kind {
	case DeltaMessageStart:
		if d.MessageID != "" {
			a.responseID = d.MessageID
		}
		if d.Model != "" {
			a.modelID = d.Model
		}
		a.addUsage(d.Usage)
	case DeltaBlockStart:
		t := d.BlockType
		if !t.Valid() {
			t = BlockText
		}
		b := a.GetOrCreate(d.Index, t)
		if d.ToolID != "" || d.ToolName != "" {
			b.setTool(d.ToolID, d.ToolName)
		}
		if d.JSON != nil {
			b.mergeJSON(d.JSON)
		}
	case DeltaText:
		a.AppendText(d.Index, d.Text)
	case DeltaJSON:
		a.MergeJSON(d.Index, d.JSON)
	case DeltaToolArgs:
		a.GetOrCreate(d.Index, BlockTool).appendText(d.Text)
	case DeltaBlockStop:
		a.Close(d.Index)
	case DeltaMessage:
		if d.StopReason != nil {
			r := *d.StopReason
			a.stopReason = &r
		}
		if d.StopSequence != "" {
			a.stopSequence = d.StopSequence
		}
		a.addUsage(d.Usage)
	case DeltaMessageStop:
		a.Finish()
	case DeltaError:
		a.Fail(d.Err)
	default:
		a.logger.Debug(ctx, "skipping unknown stream delta", "kind", string(d.Kind), "index", d.Index)
		a.metrics.IncCounter(MetricSkipped, 1, "kind", string(d.Kind))
		return false
	}
	return true
}

// addUsage folds reported usage into the running totals. Providers report
// cumulative counters, so non-zero values replace earlier ones.
func (a *Accumulator) addUsage(u *model.Usage) {
	if u == nil {
		return
	}
	if u.InputTokens > 0 {
		a.usage.InputTokens = u.InputTokens
	}
	if u.OutputTokens > 0 {
		a.usage.OutputTokens = u.OutputTokens
	}
	if u.TotalTokens > 0 {
		a.usage.TotalTokens = u.TotalTokens
	} else {
		a.usage.TotalTokens = a.usage.InputTokens + a.usage.OutputTokens
	}
}
