package stream

import (
	"encoding/json"
	"strings"
)

// BlockType categorizes the content accumulated by a block.
type BlockType string

const (
	// BlockText accumulates assistant text.
	BlockText BlockType = "text"
	// BlockTool accumulates a tool call: identity plus argument fragments.
	BlockTool BlockType = "tool"
	// BlockStructured accumulates a structured JSON value.
	BlockStructured BlockType = "structured"
	// BlockReasoning accumulates reasoning text.
	BlockReasoning BlockType = "reasoning"
)

// Valid reports whether t is a known block type.
func (t BlockType) Valid() bool {
	switch t {
	case BlockText, BlockTool, BlockStructured, BlockReasoning:
		return true
	}
	return false
}

// Block is the accumulation state of one stream index. Its type is fixed at
// creation. Writes after Close are ignored so trailing out-of-order events
// cannot alter finalized content.
type Block struct {
	typ      BlockType
	text     strings.Builder
	value    any
	closed   bool
	// id is the item identifier frozen when the block closes.
	id       string
	toolID   string
	toolName string
}

func newBlock(t BlockType) *Block {
	return &Block{typ: t, value: map[string]any{}}
}

// Type returns the block type.
func (b *Block) Type() BlockType { return b.typ }

// Text returns the accumulated text buffer.
func (b *Block) Text() string { return b.text.String() }

// JSON returns a deep copy of the accumulated JSON value. The initial value
// is an empty object.
func (b *Block) JSON() any { return deepCopy(b.value) }

// Closed reports whether the block has been finalized.
func (b *Block) Closed() bool { return b.closed }

// ToolID returns the tool call identifier of a tool block.
func (b *Block) ToolID() string { return b.toolID }

// ToolName returns the tool name of a tool block.
func (b *Block) ToolName() string { return b.toolName }

func (b *Block) appendText(s string) {
	if b.closed {
		return
	}
	b.text.WriteString(s)
}

// mergeJSON shallow-merges fragment into the accumulated value when both are
// objects and replaces the value otherwise. The block keeps its own copy of
// fragment.
func (b *Block) mergeJSON(fragment any) {
	if b.closed {
		return
	}
	in, inObj := fragment.(map[string]any)
	cur, curObj := b.value.(map[string]any)
	switch {
	case inObj && curObj:
		for k, v := range in {
			cur[k] = deepCopy(v)
		}
	default:
		b.value = deepCopy(fragment)
	}
}

func (b *Block) setTool(id, name string) {
	if b.closed {
		return
	}
	if b.toolID == "" {
		b.toolID = id
	}
	if b.toolName == "" {
		b.toolName = name
	}
}

func (b *Block) close(id string) {
	if b.closed {
		return
	}
	b.closed = true
	b.id = id
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = deepCopy(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopy(e)
		}
		return out
	case nil, string, bool, json.Number,
		int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return v
	default:
		// Detach other values through their JSON form.
		data, err := json.Marshal(v)
		if err != nil {
			return v
		}
		var out any
		if err := json.Unmarshal(data, &out); err != nil {
			return v
		}
		return out
	}
}
