package convert

import (
	"context"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"goa.design/agentcore/runtime/agent/items"
	"goa.design/agentcore/runtime/agent/model"
	"goa.design/agentcore/runtime/agent/telemetry/telemetrytest"
)

func TestConvertEndToEnd(t *testing.T) {
	blocks, err := DecodeBlocks([]byte(`[
		{"type":"message","id":"m1","role":"assistant","content":[{"type":"output_text","text":"hi"}]},
		{"type":"function_call","id":"c1","name":"lookup","arguments":"{\"q\":\"x\"}"},
		{"type":"unknown_x"}
	]`))
	require.NoError(t, err)

	out := Convert(context.Background(), blocks)
	require.Len(t, out, 2)

	first, ok := out[0].(model.MessageOutput)
	require.True(t, ok)
	require.Equal(t, "m1", first.ID)
	require.Equal(t, model.RoleAssistant, first.Role)
	require.Equal(t, []model.Part{model.TextPart{Text: "hi"}}, first.Content)

	second, ok := out[1].(model.MessageOutput)
	require.True(t, ok)
	require.Equal(t, model.RoleAssistant, second.Role)
	require.Len(t, second.Content, 1)
	tu, ok := second.Content[0].(model.ToolUsePart)
	require.True(t, ok)
	require.Equal(t, "lookup", tu.Name)
	require.Equal(t, map[string]any{"q": "x"}, tu.Input)
}

func TestConvertMessageDropsNonTextContent(t *testing.T) {
	out := Convert(context.Background(), []Block{{
		"type": "message",
		"id":   "m1",
		"role": "user",
		"content": []any{
			map[string]any{"type": "output_text", "text": "a"},
			map[string]any{"type": "input_image", "image_url": "x"},
			map[string]any{"type": "text", "text": "b", "annotations": []any{"cite"}},
			"garbage",
			map[string]any{"type": "refusal", "refusal": "no"},
			map[string]any{"type": "output_text", "text": "c"},
		},
		"stop_reason":   "max_tokens",
		"stop_sequence": "END",
	}})
	require.Len(t, out, 1)
	msg := out[0].(model.MessageOutput)
	require.Equal(t, model.RoleUser, msg.Role)
	require.Equal(t, []model.Part{
		model.TextPart{Text: "a"},
		model.TextPart{Text: "b", Annotations: []any{"cite"}},
		model.TextPart{Text: "c"},
	}, msg.Content)
	require.Equal(t, model.StopReasonMaxTokens, *msg.StopReason)
	require.Equal(t, "END", msg.StopSequence)
}

func TestConvertMessageWithoutIDGetsGeneratedID(t *testing.T) {
	c := New(Options{NewID: func() string { return "gen-1" }})
	out := c.Convert(context.Background(), []Block{{"type": "message", "role": "assistant"}})
	require.Len(t, out, 1)
	msg := out[0].(model.MessageOutput)
	require.Equal(t, "gen-1", msg.ID)
	require.NotNil(t, msg.Content)
	require.Empty(t, msg.Content)
}

func TestConvertMessageNonCanonicalRole(t *testing.T) {
	out := Convert(context.Background(), []Block{{"type": "message", "id": "m1", "role": "model"}})
	msg := out[0].(model.MessageOutput)
	require.Equal(t, model.RoleAssistant, msg.Role)
	require.Equal(t, "model", msg.ProviderRole)
}

func TestConvertStatusDefaults(t *testing.T) {
	tel, logger, _ := telemetrytest.NewSet()
	c := New(Options{Telemetry: tel})
	out := c.Convert(context.Background(), []Block{
		{"type": "message", "id": "m1", "role": "assistant"},
		{"type": "message", "id": "m2", "role": "assistant", "status": "in_progress"},
		{"type": "message", "id": "m3", "role": "assistant", "status": "searching"},
	})
	require.Len(t, out, 3)
	require.Equal(t, model.StatusCompleted, out[0].(model.MessageOutput).Status)
	require.Equal(t, model.StatusInProgress, out[1].(model.MessageOutput).Status)
	require.Equal(t, model.StatusCompleted, out[2].(model.MessageOutput).Status)

	warns := logger.Level("warn")
	require.Len(t, warns, 1)
	require.Equal(t, "searching", warns[0].KV["status"])
}

func TestConvertFunctionCallInvalidArguments(t *testing.T) {
	cases := map[string]any{
		"truncated":  `{"q":`,
		"not json":   "lookup x",
		"array":      `[1,2,3]`,
		"number":     float64(3),
		"scalar str": `"x"`,
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			tel, logger, _ := telemetrytest.NewSet()
			c := New(Options{Telemetry: tel})
			out := c.Convert(context.Background(), []Block{{"type": "function_call", "id": "c1", "name": "lookup", "arguments": args}})
			require.Len(t, out, 1)
			uses := out[0].(model.MessageOutput).ToolUses()
			require.Len(t, uses, 1)
			require.NotNil(t, uses[0].Input)
			require.Empty(t, uses[0].Input)
			require.Len(t, logger.Level("error"), 1)
		})
	}
}

func TestConvertFunctionCallDefaults(t *testing.T) {
	out := Convert(context.Background(), []Block{{"type": "function_call", "id": "c1"}})
	require.Len(t, out, 1)
	msg := out[0].(model.MessageOutput)
	require.Equal(t, "c1", msg.ID)
	require.Equal(t, model.RoleAssistant, msg.Role)
	uses := msg.ToolUses()
	require.Equal(t, UnknownFunctionName, uses[0].Name)
	require.Empty(t, uses[0].Input)
	require.Nil(t, uses[0].Status)
}

func TestConvertFunctionCallObjectArgumentsAndCallID(t *testing.T) {
	out := Convert(context.Background(), []Block{{
		"type":      "function_call",
		"id":        "fc_1",
		"call_id":   "call_1",
		"name":      "lookup",
		"status":    "in_progress",
		"arguments": map[string]any{"q": "x"},
	}})
	msg := out[0].(model.MessageOutput)
	require.Equal(t, "fc_1", msg.ID)
	require.Equal(t, model.StatusInProgress, msg.Status)
	tu := msg.ToolUses()[0]
	require.Equal(t, "call_1", tu.ID)
	require.Equal(t, map[string]any{"q": "x"}, tu.Input)
	require.Equal(t, model.StatusInProgress, *tu.Status)
}

func TestConvertBuiltinToolCalls(t *testing.T) {
	out := Convert(context.Background(), []Block{
		{"type": "web_search_call", "id": "ws1", "status": "completed", "query": "go", "results": []any{"a"}},
		{"type": "file_search_call", "id": "fs1", "queries": []any{"q"}},
		{"type": "computer_call", "id": "cu1", "status": "in_progress", "action": map[string]any{"type": "click"}},
	})
	require.Len(t, out, 3)

	cases := []struct {
		id     string
		tool   string
		status model.Status
		data   map[string]any
	}{
		{"ws1", "web_search_call", model.StatusCompleted, map[string]any{"query": "go", "results": []any{"a"}}},
		{"fs1", "file_search_call", model.StatusCompleted, map[string]any{"queries": []any{"q"}}},
		{"cu1", "computer_use", model.StatusInProgress, map[string]any{"action": map[string]any{"type": "click"}}},
	}
	for i, tc := range cases {
		msg := out[i].(model.MessageOutput)
		require.Equal(t, tc.id, msg.ID)
		require.Equal(t, model.RoleAssistant, msg.Role)
		require.Equal(t, tc.status, msg.Status)
		require.Len(t, msg.Content, 1)
		ref, ok := msg.Content[0].(model.ToolReferencePart)
		require.True(t, ok)
		require.Equal(t, tc.id, ref.CallID)
		require.Equal(t, tc.tool, ref.ToolName)
		require.Equal(t, tc.status, *ref.Status)
		require.Equal(t, tc.data, ref.Data)
	}
}

func TestConvertReasoning(t *testing.T) {
	out := Convert(context.Background(), []Block{
		{"type": "reasoning", "id": "r1", "effort": "medium", "summary": []any{
			map[string]any{"type": "summary_text", "text": "first"},
			"second",
		}},
		{"type": "reasoning", "summary": "plain", "effort": "extreme"},
	})
	require.Len(t, out, 2)
	r := out[0].(model.ReasoningOutput)
	require.Equal(t, "first\n\nsecond", r.Summary)
	require.Equal(t, model.ReasoningEffortMedium, *r.Effort)
	r = out[1].(model.ReasoningOutput)
	require.Equal(t, "plain", r.Summary)
	require.Nil(t, r.Effort)
}

func TestConvertSkipsUnknownBlocks(t *testing.T) {
	tel, logger, metrics := telemetrytest.NewSet()
	c := New(Options{Telemetry: tel})
	out := c.Convert(context.Background(), []Block{
		{"type": "unknown_x"},
		{"no_type": true},
		{"type": 12},
	})
	require.Empty(t, out)
	require.Equal(t, float64(3), metrics.Counter(MetricSkipped))
	require.Len(t, logger.Level("debug"), 3)
}

func TestRunItems(t *testing.T) {
	its := RunItems(context.Background(), "svc.triage", []Block{
		{"type": "message", "id": "m1", "role": "assistant", "content": []any{map[string]any{"type": "output_text", "text": "hi"}}},
		{"type": "function_call", "id": "c1", "name": "lookup", "arguments": `{"q":"x"}`},
		{"type": "function_call", "id": "c2", "name": "transfer_to_billing", "arguments": `{}`},
		{"type": "computer_call", "id": "cu1", "action": map[string]any{"type": "scroll"}},
		{"type": "reasoning", "summary": "thinking"},
		{"type": "web_search_call", "id": "ws1"},
		{"type": "unknown_x"},
	})
	require.Len(t, its, 5)
	want := []items.ItemType{
		items.ItemTypeMessageOutput,
		items.ItemTypeToolCall,
		items.ItemTypeHandoffCall,
		items.ItemTypeToolCall,
		items.ItemTypeReasoning,
	}
	for i, it := range its {
		require.Equal(t, want[i], it.Type(), "item %d", i)
		require.EqualValues(t, "svc.triage", it.Agent())
	}

	handoff := its[2].(items.HandoffCallItem)
	tu, err := handoff.ToolUse()
	require.NoError(t, err)
	require.Equal(t, "transfer_to_billing", tu.Name)

	computer := its[3].(items.ToolCallItem)
	tu, err = computer.ToolUse()
	require.NoError(t, err)
	require.Equal(t, items.ComputerUseToolName, tu.Name)
	require.Equal(t, map[string]any{"command": map[string]any{"type": "scroll"}}, tu.Input)
}

func TestComputerCallForms(t *testing.T) {
	block := Block{"type": "computer_call", "id": "cu1", "call_id": "call_cu1", "action": map[string]any{"type": "click"}}
	ctx := context.Background()

	out := Convert(ctx, []Block{block})
	require.Len(t, out, 1)
	msg := out[0].(model.MessageOutput)
	require.Len(t, msg.Content, 1)
	ref, ok := msg.Content[0].(model.ToolReferencePart)
	require.True(t, ok)
	require.Equal(t, items.ComputerUseToolName, ref.ToolName)
	require.Equal(t, map[string]any{"type": "click"}, ref.Data["action"])

	its := RunItems(ctx, "svc.triage", []Block{block})
	require.Len(t, its, 1)
	call, err := its[0].(items.ToolCallItem).Message()
	require.NoError(t, err)
	uses := call.ToolUses()
	require.Len(t, uses, 1)
	require.Equal(t, "call_cu1", uses[0].ID)
	require.Equal(t, items.ComputerUseToolName, uses[0].Name)
	require.Equal(t, map[string]any{"command": map[string]any{"type": "click"}}, uses[0].Input)
}

func TestConvertIsDeterministic(t *testing.T) {
	c := New(Options{NewID: func() string { return "fixed" }})
	blocks := []Block{
		{"type": "message", "role": "assistant", "content": []any{map[string]any{"type": "text", "text": "a"}}},
		{"type": "function_call", "name": "f", "arguments": `{"n":1}`},
	}
	require.Equal(t, c.Convert(context.Background(), blocks), c.Convert(context.Background(), blocks))
}

func TestConvertKnownBlocksKeepOrder(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	kinds := []string{TypeMessage, TypeFunctionCall, TypeWebSearchCall, TypeFileSearchCall, TypeComputerCall, "unknown_x", "image_generation_call", "mcp_list_tools"}
	known := map[string]bool{TypeMessage: true, TypeFunctionCall: true, TypeWebSearchCall: true, TypeFileSearchCall: true, TypeComputerCall: true}

	properties.Property("output count and order equal the known blocks", prop.ForAll(
		func(picks []int) bool {
			blocks := make([]Block, len(picks))
			var want []string
			for i, p := range picks {
				kind := kinds[p]
				id := fmt.Sprintf("b%d", i)
				blocks[i] = Block{"type": kind, "id": id, "role": "assistant", "name": "f", "arguments": "{}"}
				if known[kind] {
					want = append(want, id)
				}
			}
			out := Convert(context.Background(), blocks)
			if len(out) != len(want) {
				return false
			}
			for i, it := range out {
				msg, ok := it.(model.MessageOutput)
				if !ok || msg.ID != want[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, len(kinds)-1)),
	))

	properties.Property("message conversion preserves retained text order", prop.ForAll(
		func(texts []string, keep []bool) bool {
			var content []any
			var want []string
			for i, s := range texts {
				if i < len(keep) && !keep[i] {
					content = append(content, map[string]any{"type": "input_audio", "data": s})
					continue
				}
				content = append(content, map[string]any{"type": "output_text", "text": s})
				want = append(want, s)
			}
			out := Convert(context.Background(), []Block{{"type": "message", "id": "m", "role": "user", "content": content}})
			if len(out) != 1 {
				return false
			}
			msg := out[0].(model.MessageOutput)
			if msg.ID != "m" || msg.Role != model.RoleUser || len(msg.Content) != len(want) {
				return false
			}
			for i := range want {
				tp, ok := msg.Content[i].(model.TextPart)
				if !ok || tp.Text != want[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}
