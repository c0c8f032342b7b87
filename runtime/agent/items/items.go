package items

import (
	"maps"

	agent "goa.design/agentcore/runtime/agent"
	"goa.design/agentcore/runtime/agent/model"
)

// ItemType discriminates run items.
type ItemType string

const (
	ItemTypeHandoffCall    ItemType = "handoff_call_item"
	ItemTypeToolCall       ItemType = "tool_call_item"
	ItemTypeReasoning      ItemType = "reasoning_item"
	ItemTypeMessageOutput  ItemType = "message_output_item"
	ItemTypeHandoffOutput  ItemType = "handoff_output_item"
	ItemTypeToolCallOutput ItemType = "tool_call_output_item"
)

type (
	// RunItem is the sealed union of run items.
	RunItem interface {
		// Type returns the run item discriminator.
		Type() ItemType
		// Agent returns the agent that produced the item.
		Agent() agent.Ident
		// Raw returns a copy of the wrapped provider record.
		Raw() any
		isRunItem()
	}

	// MessageItem is implemented by run items that convert into a canonical
	// message.
	MessageItem interface {
		RunItem
		Message() (model.MessageOutput, error)
	}

	// HandoffCallItem is a tool call requesting a handoff to another agent.
	HandoffCallItem struct {
		agent agent.Ident
		raw   FunctionToolCall
	}

	// ToolCallItem is a tool call requested by the model. It wraps either a
	// function call or a computer call.
	ToolCallItem struct {
		agent    agent.Ident
		function *FunctionToolCall
		computer *ComputerCall
	}

	// ReasoningItem is a reasoning step reported by the model.
	ReasoningItem struct {
		agent agent.Ident
		raw   ReasoningRecord
	}

	// MessageOutputItem is a message produced by the model.
	MessageOutputItem struct {
		agent agent.Ident
		raw   OutputMessage
	}

	// HandoffOutputItem is the message recording a completed handoff.
	HandoffOutputItem struct {
		agent  agent.Ident
		raw    OutputMessage
		source agent.Ident
		target agent.Ident
	}

	// ToolCallOutputItem is the message carrying a tool result.
	ToolCallOutputItem struct {
		agent  agent.Ident
		raw    OutputMessage
		output any
	}
)

// NewHandoffCallItem wraps a handoff function call.
func NewHandoffCallItem(a agent.Ident, raw FunctionToolCall) HandoffCallItem {
	return HandoffCallItem{agent: a, raw: raw}
}

// NewToolCallItem wraps a function call.
func NewToolCallItem(a agent.Ident, raw FunctionToolCall) ToolCallItem {
	return ToolCallItem{agent: a, function: &raw}
}

// NewComputerCallItem wraps a computer-use call.
func NewComputerCallItem(a agent.Ident, raw ComputerCall) ToolCallItem {
	raw.Action = maps.Clone(raw.Action)
	return ToolCallItem{agent: a, computer: &raw}
}

// NewReasoningItem wraps a reasoning record.
func NewReasoningItem(a agent.Ident, raw ReasoningRecord) ReasoningItem {
	raw.Summary = append([]string(nil), raw.Summary...)
	return ReasoningItem{agent: a, raw: raw}
}

// NewMessageOutputItem wraps a message record.
func NewMessageOutputItem(a agent.Ident, raw OutputMessage) MessageOutputItem {
	return MessageOutputItem{agent: a, raw: raw.clone()}
}

// NewHandoffOutputItem wraps the message recording a handoff from source to
// target.
func NewHandoffOutputItem(a agent.Ident, raw OutputMessage, source, target agent.Ident) HandoffOutputItem {
	return HandoffOutputItem{agent: a, raw: raw.clone(), source: source, target: target}
}

// NewToolCallOutputItem wraps the message carrying a tool result together
// with the tool output value.
func NewToolCallOutputItem(a agent.Ident, raw OutputMessage, output any) ToolCallOutputItem {
	return ToolCallOutputItem{agent: a, raw: raw.clone(), output: output}
}

func (HandoffCallItem) Type() ItemType    { return ItemTypeHandoffCall }
func (ToolCallItem) Type() ItemType       { return ItemTypeToolCall }
func (ReasoningItem) Type() ItemType      { return ItemTypeReasoning }
func (MessageOutputItem) Type() ItemType  { return ItemTypeMessageOutput }
func (HandoffOutputItem) Type() ItemType  { return ItemTypeHandoffOutput }
func (ToolCallOutputItem) Type() ItemType { return ItemTypeToolCallOutput }

func (i HandoffCallItem) Agent() agent.Ident    { return i.agent }
func (i ToolCallItem) Agent() agent.Ident       { return i.agent }
func (i ReasoningItem) Agent() agent.Ident      { return i.agent }
func (i MessageOutputItem) Agent() agent.Ident  { return i.agent }
func (i HandoffOutputItem) Agent() agent.Ident  { return i.agent }
func (i ToolCallOutputItem) Agent() agent.Ident { return i.agent }

func (HandoffCallItem) isRunItem()    {}
func (ToolCallItem) isRunItem()       {}
func (ReasoningItem) isRunItem()      {}
func (MessageOutputItem) isRunItem()  {}
func (HandoffOutputItem) isRunItem()  {}
func (ToolCallOutputItem) isRunItem() {}

// Raw returns a copy of the wrapped FunctionToolCall.
func (i HandoffCallItem) Raw() any { return i.raw }

// Call returns a copy of the wrapped call.
func (i HandoffCallItem) Call() FunctionToolCall { return i.raw }

// ToolUse converts the handoff call into a tool_use part.
func (i HandoffCallItem) ToolUse() (model.ToolUsePart, error) { return i.raw.ToolUse() }

// Message wraps the tool_use part in a synthetic assistant message.
func (i HandoffCallItem) Message() (model.MessageOutput, error) {
	return toolUseMessage(i.raw.ID, i.raw.Status, i.ToolUse)
}

// Raw returns a copy of the wrapped FunctionToolCall or ComputerCall.
func (i ToolCallItem) Raw() any {
	if i.computer != nil {
		c := *i.computer
		c.Action = maps.Clone(c.Action)
		return c
	}
	if i.function != nil {
		return *i.function
	}
	return nil
}

// ToolUse converts the call into a tool_use part.
func (i ToolCallItem) ToolUse() (model.ToolUsePart, error) {
	if i.computer != nil {
		return i.computer.ToolUse()
	}
	if i.function != nil {
		return i.function.ToolUse()
	}
	return model.ToolUsePart{}, &model.ConstructionError{Variant: string(ItemTypeToolCall), Reason: "no wrapped call"}
}

// Message wraps the tool_use part in a synthetic assistant message.
func (i ToolCallItem) Message() (model.MessageOutput, error) {
	var (
		id     string
		status *model.Status
	)
	switch {
	case i.computer != nil:
		id, status = i.computer.ID, i.computer.Status
	case i.function != nil:
		id, status = i.function.ID, i.function.Status
	}
	return toolUseMessage(id, status, i.ToolUse)
}

// Raw returns a copy of the wrapped ReasoningRecord.
func (i ReasoningItem) Raw() any {
	r := i.raw
	r.Summary = append([]string(nil), r.Summary...)
	return r
}

// Reasoning converts the record into a canonical reasoning item.
func (i ReasoningItem) Reasoning() (model.ReasoningOutput, error) { return i.raw.Reasoning() }

// Raw returns a copy of the wrapped OutputMessage.
func (i MessageOutputItem) Raw() any { return i.raw.clone() }

// Message converts the record into a canonical message.
func (i MessageOutputItem) Message() (model.MessageOutput, error) { return i.raw.Message() }

// Raw returns a copy of the wrapped OutputMessage.
func (i HandoffOutputItem) Raw() any { return i.raw.clone() }

// Message converts the record into a canonical message.
func (i HandoffOutputItem) Message() (model.MessageOutput, error) { return i.raw.Message() }

// Source returns the agent that handed off.
func (i HandoffOutputItem) Source() agent.Ident { return i.source }

// Target returns the agent that received the handoff.
func (i HandoffOutputItem) Target() agent.Ident { return i.target }

// Raw returns a copy of the wrapped OutputMessage.
func (i ToolCallOutputItem) Raw() any { return i.raw.clone() }

// Message converts the record into a canonical message.
func (i ToolCallOutputItem) Message() (model.MessageOutput, error) { return i.raw.Message() }

// Output returns the tool output value.
func (i ToolCallOutputItem) Output() any { return i.output }

func toolUseMessage(id string, status *model.Status, toolUse func() (model.ToolUsePart, error)) (model.MessageOutput, error) {
	tu, err := toolUse()
	if err != nil {
		return model.MessageOutput{}, err
	}
	if id == "" {
		id = tu.ID
	}
	st := model.StatusCompleted
	if status != nil {
		st = *status
	}
	return model.NewMessage(id, model.RoleAssistant, st, tu)
}
