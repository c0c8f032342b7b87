// Package anthropic adapts Anthropic Messages API payloads to the agent core.
//
// Blocks converts a complete sdk.Message into raw item blocks for the
// converter. StreamProcessor and Consume turn a Messages stream into
// provider-neutral deltas applied to a stream.Accumulator.
package anthropic

import (
	"encoding/json"
	"errors"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"

	"goa.design/agentcore/runtime/agent/convert"
	"goa.design/agentcore/runtime/agent/model"
)

// ProviderName identifies Anthropic in provider errors.
const ProviderName = "anthropic"

// Blocks returns the raw item blocks of msg in content order. Text blocks
// become assistant message blocks, thinking becomes reasoning, tool_use
// becomes function_call and the web_search server tool becomes
// web_search_call. Other content keeps its Anthropic type so the converter
// skips it.
func Blocks(msg sdk.Message) []convert.Block {
	blocks := make([]convert.Block, 0, len(msg.Content))
	lastMessage := -1
	for i, c := range msg.Content {
		id := fmt.Sprintf("%s_%d", msg.ID, i)
		switch v := c.AsAny().(type) {
		case sdk.TextBlock:
			lastMessage = len(blocks)
			blocks = append(blocks, convert.Block{
				"type":   convert.TypeMessage,
				"id":     id,
				"role":   string(msg.Role),
				"status": string(model.StatusCompleted),
				"content": []any{
					map[string]any{"type": "output_text", "text": v.Text},
				},
			})
		case sdk.ThinkingBlock:
			blocks = append(blocks, convert.Block{
				"type":    convert.TypeReasoning,
				"id":      id,
				"summary": []any{map[string]any{"text": v.Thinking}},
			})
		case sdk.ToolUseBlock:
			args := string(v.Input)
			blocks = append(blocks, convert.Block{
				"type":      convert.TypeFunctionCall,
				"id":        id,
				"call_id":   v.ID,
				"name":      v.Name,
				"arguments": args,
				"status":    string(model.StatusCompleted),
			})
		case sdk.ServerToolUseBlock:
			blocks = append(blocks, serverToolBlock(v))
		default:
			blocks = append(blocks, convert.Block{"type": c.Type, "id": id})
		}
	}
	if lastMessage >= 0 {
		if r, ok := StopReason(msg.StopReason); ok {
			blocks[lastMessage]["stop_reason"] = string(r)
		}
		if msg.StopSequence != "" {
			blocks[lastMessage]["stop_sequence"] = msg.StopSequence
		}
	}
	return blocks
}

func serverToolBlock(v sdk.ServerToolUseBlock) convert.Block {
	if string(v.Name) == "web_search" {
		b := convert.Block{
			"type":   convert.TypeWebSearchCall,
			"id":     v.ID,
			"status": string(model.StatusCompleted),
		}
		if in, ok := v.Input.(map[string]any); ok {
			b["action"] = map[string]any{"type": "search", "query": in["query"]}
		}
		return b
	}
	args, err := json.Marshal(v.Input)
	if err != nil {
		args = []byte("{}")
	}
	return convert.Block{
		"type":      convert.TypeFunctionCall,
		"id":        v.ID,
		"call_id":   v.ID,
		"name":      string(v.Name),
		"arguments": string(args),
		"status":    string(model.StatusCompleted),
	}
}

// StopReason maps an Anthropic stop reason. pause_turn has no canonical
// counterpart and reports false.
func StopReason(r sdk.StopReason) (model.StopReason, bool) {
	switch r {
	case sdk.StopReasonEndTurn:
		return model.StopReasonEndTurn, true
	case sdk.StopReasonMaxTokens:
		return model.StopReasonMaxTokens, true
	case sdk.StopReasonStopSequence:
		return model.StopReasonStopSequence, true
	case sdk.StopReasonToolUse:
		return model.StopReasonToolUse, true
	case sdk.StopReasonRefusal:
		return model.StopReasonContentFilter, true
	}
	return "", false
}

// WrapError classifies an SDK error into a *model.ProviderError. Errors
// that are not API errors are classified as stream failures.
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	opts := model.ProviderErrorOptions{
		Provider:  ProviderName,
		Operation: operation,
		Kind:      model.ProviderErrorKindStream,
		Message:   err.Error(),
		Cause:     err,
	}
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		opts.HTTPStatus = apiErr.StatusCode
		opts.Kind = model.KindFromHTTPStatus(apiErr.StatusCode)
	}
	pe, perr := model.NewProviderError(opts)
	if perr != nil {
		return err
	}
	return pe
}
