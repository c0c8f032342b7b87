// Package stream reconstructs canonical output items from the ordered partial
// events of a streaming model response.
//
// An Accumulator maps block indices to Blocks. Provider adapters feed it
// either through the primitive operations (AppendText, MergeJSON, Close, ...)
// or through provider-neutral Delta events passed to Apply. At any point the
// caller may ask for the best-known item of a block: snapshots taken before
// the block closes carry an in_progress status, snapshots taken after carry
// completed.
//
// Accumulators are owned by the single goroutine processing one response
// stream. Use one accumulator per stream; they are not safe for concurrent
// writers.
package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"goa.design/agentcore/runtime/agent/model"
	"goa.design/agentcore/runtime/agent/telemetry"
)

// unknownToolName names tool blocks whose start event carried no name.
const unknownToolName = "unknown_function"

// ResponseStatus reports the lifecycle state of a streamed response.
type ResponseStatus string

const (
	// ResponseInProgress indicates the response is still streaming.
	ResponseInProgress ResponseStatus = "in_progress"
	// ResponseCompleted indicates the provider finished the response.
	ResponseCompleted ResponseStatus = "completed"
	// ResponseError indicates the provider reported an error mid-stream.
	ResponseError ResponseStatus = "error"
)

type (
	// Options configures an Accumulator.
	Options struct {
		// Telemetry receives diagnostics about skipped events.
		Telemetry telemetry.Set
		// ResponseID seeds the identifiers of the produced message items.
		// Defaults to a random UUID and is replaced by the ID carried by a
		// message_start delta.
		ResponseID string
	}

	// Snapshot is the best-known state of one block.
	Snapshot struct {
		// Index is the block index.
		Index int
		// Type is the block type.
		Type BlockType
		// Status is in_progress until the block closes and completed after.
		Status model.Status
		// Item is the canonical item reconstructed from the block.
		Item model.OutputItem
	}

	// Accumulator holds the blocks of one streamed response. The zero value
	// is not usable; call New.
	Accumulator struct {
		blocks       map[int]*Block
		responseID   string
		modelID      string
		status       ResponseStatus
		err          error
		stopReason   *model.StopReason
		stopSequence string
		usage        model.Usage
		logger       telemetry.Logger
		metrics      telemetry.Metrics
	}
)

// New returns an empty accumulator.
func New(opts Options) *Accumulator {
	tel := opts.Telemetry.WithDefaults()
	id := opts.ResponseID
	if id == "" {
		id = uuid.NewString()
	}
	return &Accumulator{
		blocks:     make(map[int]*Block),
		responseID: id,
		status:     ResponseInProgress,
		logger:     tel.Logger,
		metrics:    tel.Metrics,
	}
}

// GetOrCreate returns the block at index, creating it with type t when it
// does not exist yet. The type of an existing block never changes.
func (a *Accumulator) GetOrCreate(index int, t BlockType) *Block {
	if b, ok := a.blocks[index]; ok {
		return b
	}
	b := newBlock(t)
	a.blocks[index] = b
	return b
}

// Block returns the block at index if it exists.
func (a *Accumulator) Block(index int) (*Block, bool) {
	b, ok := a.blocks[index]
	return b, ok
}

// AppendText appends text to the block at index, creating a text block if
// needed. Closed blocks are left unchanged.
func (a *Accumulator) AppendText(index int, text string) {
	a.GetOrCreate(index, BlockText).appendText(text)
}

// MergeJSON merges fragment into the JSON value of the block at index,
// creating a structured block if needed. When both the accumulated value and
// fragment are objects the merge is shallow and fragment keys win; otherwise
// fragment replaces the value. Closed blocks are left unchanged.
func (a *Accumulator) MergeJSON(index int, fragment any) {
	a.GetOrCreate(index, BlockStructured).mergeJSON(fragment)
}

// SetTool records the tool call identity of the block at index, creating a
// tool block if needed. The first non-empty id and name win.
func (a *Accumulator) SetTool(index int, id, name string) {
	a.GetOrCreate(index, BlockTool).setTool(id, name)
}

// Close finalizes the block at index and freezes its item identifier.
// Closing twice is a no-op and closing an unseen index records an empty
// closed text block.
func (a *Accumulator) Close(index int) {
	a.GetOrCreate(index, BlockText).close(a.itemID(index))
}

// Indices returns the known block indices in ascending order.
func (a *Accumulator) Indices() []int {
	idx := make([]int, 0, len(a.blocks))
	for i := range a.blocks {
		idx = append(idx, i)
	}
	slices.Sort(idx)
	return idx
}

// CurrentItem returns a fresh snapshot of the block at index. The returned
// item never aliases accumulator state.
func (a *Accumulator) CurrentItem(index int) (Snapshot, bool) {
	b, ok := a.blocks[index]
	if !ok {
		return Snapshot{}, false
	}
	status := model.StatusInProgress
	if b.closed {
		status = model.StatusCompleted
	}
	return Snapshot{Index: index, Type: b.typ, Status: status, Item: a.item(index, b, status)}, true
}

// Snapshots returns the snapshot of every block ordered by index.
func (a *Accumulator) Snapshots() []Snapshot {
	out := make([]Snapshot, 0, len(a.blocks))
	for _, i := range a.Indices() {
		s, _ := a.CurrentItem(i)
		out = append(out, s)
	}
	return out
}

// Items returns the current item of every block ordered by index.
func (a *Accumulator) Items() []model.OutputItem {
	snaps := a.Snapshots()
	out := make([]model.OutputItem, len(snaps))
	for i, s := range snaps {
		out[i] = s.Item
	}
	return out
}

// Status returns the response status.
func (a *Accumulator) Status() ResponseStatus { return a.status }

// Err returns the error reported by an error delta, if any.
func (a *Accumulator) Err() error { return a.err }

// ResponseID returns the identifier used for produced message items.
func (a *Accumulator) ResponseID() string { return a.responseID }

// Usage returns the token usage reported so far.
func (a *Accumulator) Usage() model.Usage { return a.usage }

// StopReason returns the stop reason reported so far, if any.
func (a *Accumulator) StopReason() *model.StopReason {
	if a.stopReason == nil {
		return nil
	}
	r := *a.stopReason
	return &r
}

// Completion assembles the accumulated response into a CompletionOutput.
func (a *Accumulator) Completion() model.CompletionOutput {
	status := model.StatusInProgress
	switch a.status {
	case ResponseCompleted:
		status = model.StatusCompleted
	case ResponseError:
		status = model.StatusFailed
	}
	usage := a.usage
	return model.CompletionOutput{
		ProviderID:      a.responseID,
		ProviderModelID: a.modelID,
		Status:          status,
		Items:           a.Items(),
		Usage:           &usage,
	}
}

// Finish closes every open block and marks the response completed unless it
// already failed.
func (a *Accumulator) Finish() {
	for i, b := range a.blocks {
		b.close(a.itemID(i))
	}
	if a.status == ResponseInProgress {
		a.status = ResponseCompleted
	}
}

// Fail records a provider error and marks the response failed.
func (a *Accumulator) Fail(err error) {
	if err == nil {
		err = errors.New("stream: provider reported an error")
	}
	a.err = err
	a.status = ResponseError
}

func (a *Accumulator) item(index int, b *Block, status model.Status) model.OutputItem {
	switch b.typ {
	case BlockReasoning:
		return model.ReasoningOutput{Summary: b.Text()}
	case BlockTool:
		id := b.toolID
		if id == "" {
			id = a.blockID(index, b)
		}
		name := b.toolName
		if name == "" {
			name = unknownToolName
		}
		tu := model.ToolUsePart{ID: id, Name: name, Input: toolInput(b), Status: model.StatusPtr(status)}
		return a.message(id, status, tu)
	case BlockStructured:
		data, err := json.Marshal(b.value)
		if err != nil {
			data = []byte("null")
		}
		return a.message(a.blockID(index, b), status, model.TextPart{Text: string(data)})
	default:
		return a.message(a.blockID(index, b), status, model.TextPart{Text: b.Text()})
	}
}

func (a *Accumulator) message(id string, status model.Status, part model.Part) model.MessageOutput {
	return model.MessageOutput{
		ID:           id,
		Role:         model.RoleAssistant,
		Status:       status,
		Content:      []model.Part{part},
		StopReason:   a.StopReason(),
		StopSequence: a.stopSequence,
	}
}

// blockID returns the frozen identifier of a closed block, or the identifier
// derived from the current response ID for an open one.
func (a *Accumulator) blockID(index int, b *Block) string {
	if b.id != "" {
		return b.id
	}
	return a.itemID(index)
}

func (a *Accumulator) itemID(index int) string {
	return fmt.Sprintf("%s_%d", a.responseID, index)
}

// toolInput returns the tool arguments of b: the merged JSON object when it
// holds keys, else the text buffer decoded as a JSON object, else an empty
// object. Partial argument text decodes to an empty object until complete.
func toolInput(b *Block) map[string]any {
	if obj, ok := b.value.(map[string]any); ok && len(obj) > 0 {
		return deepCopy(obj).(map[string]any)
	}
	if text := b.Text(); text != "" {
		var obj map[string]any
		if err := json.Unmarshal([]byte(text), &obj); err == nil && obj != nil {
			return obj
		}
	}
	return map[string]any{}
}
