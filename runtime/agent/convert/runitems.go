package convert

import (
	"context"

	agent "goa.design/agentcore/runtime/agent"
	"goa.design/agentcore/runtime/agent/items"
)

// RunItems converts blocks into run items attributed to agent a. Messages
// become MessageOutputItem, function calls become ToolCallItem or, when the
// name carries the handoff prefix, HandoffCallItem. Computer calls become
// ToolCallItem and reasoning blocks ReasoningItem. Other discriminators,
// including the search built-ins, produce no run item.
//
// Run items describe calls the run loop executes, so a computer call yields
// an executable computer_use tool_use with the action under "command". Convert
// reports the same block as an opaque tool_reference instead.
func (c *Converter) RunItems(ctx context.Context, a agent.Ident, blocks []Block) []items.RunItem {
	out := make([]items.RunItem, 0, len(blocks))
	for i, b := range blocks {
		switch t := b.Type(); t {
		case TypeMessage:
			out = append(out, items.NewMessageOutputItem(a, c.message(ctx, b)))
		case TypeFunctionCall:
			call := c.functionCall(ctx, b)
			if IsHandoff(call.Name) {
				out = append(out, items.NewHandoffCallItem(a, call))
				continue
			}
			out = append(out, items.NewToolCallItem(a, call))
		case TypeComputerCall:
			out = append(out, items.NewComputerCallItem(a, c.computerCall(ctx, b)))
		case TypeReasoning:
			out = append(out, items.NewReasoningItem(a, c.reasoning(ctx, b)))
		default:
			c.skip(ctx, i, t)
		}
	}
	return out
}

func (c *Converter) computerCall(ctx context.Context, b Block) items.ComputerCall {
	callID, _ := b["call_id"].(string)
	action, _ := b["action"].(map[string]any)
	return items.ComputerCall{
		ID:     c.id(b),
		CallID: callID,
		Action: action,
		Status: c.optionalStatus(ctx, TypeComputerCall, b["status"]),
	}
}
