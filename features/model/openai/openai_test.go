package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/ssestream"
	"github.com/openai/openai-go/responses"
	"github.com/stretchr/testify/require"

	"goa.design/agentcore/runtime/agent/convert"
	"goa.design/agentcore/runtime/agent/model"
	"goa.design/agentcore/runtime/agent/stream"
)

const responseJSON = `{
  "id": "resp_1",
  "object": "response",
  "created_at": 1741476542,
  "status": "completed",
  "model": "gpt-4.1",
  "output": [
    {"type": "reasoning", "id": "rs_1", "summary": [{"type": "summary_text", "text": "need weather"}]},
    {"type": "message", "id": "msg_1", "role": "assistant", "status": "completed",
     "content": [{"type": "output_text", "text": "Checking the weather.", "annotations": []}]},
    {"type": "function_call", "id": "fc_1", "call_id": "call_1", "name": "get_weather",
     "arguments": "{\"city\":\"Paris\"}", "status": "completed"},
    {"type": "web_search_call", "id": "ws_1", "status": "completed",
     "action": {"type": "search", "query": "paris forecast"}}
  ],
  "usage": {"input_tokens": 12, "output_tokens": 30, "total_tokens": 42}
}`

func TestBlocksConvert(t *testing.T) {
	var resp responses.Response
	require.NoError(t, json.Unmarshal([]byte(responseJSON), &resp))

	blocks, err := Blocks(&resp)
	require.NoError(t, err)
	require.Len(t, blocks, 4)
	require.Equal(t, "tool_use", blocks[1]["stop_reason"])

	out := convert.Convert(context.Background(), blocks)
	require.Len(t, out, 4)

	require.Equal(t, "need weather", out[0].(model.ReasoningOutput).Summary)

	text := out[1].(model.MessageOutput)
	require.Equal(t, "msg_1", text.ID)
	require.Equal(t, "Checking the weather.", text.Text())
	require.Equal(t, model.StopReasonToolUse, *text.StopReason)

	uses := out[2].(model.MessageOutput).ToolUses()
	require.Len(t, uses, 1)
	require.Equal(t, "call_1", uses[0].ID)
	require.Equal(t, map[string]any{"city": "Paris"}, uses[0].Input)

	ref, ok := out[3].(model.MessageOutput).Content[0].(model.ToolReferencePart)
	require.True(t, ok)
	require.Equal(t, convert.TypeWebSearchCall, ref.ToolName)

	require.Equal(t, &model.Usage{InputTokens: 12, OutputTokens: 30, TotalTokens: 42}, Usage(resp.Usage))
}

func TestBlocksNil(t *testing.T) {
	blocks, err := Blocks(nil)
	require.NoError(t, err)
	require.Nil(t, blocks)
}

func TestStopReason(t *testing.T) {
	cases := []struct {
		name string
		body string
		want model.StopReason
		ok   bool
	}{
		{"end turn", `{"status":"completed","output":[{"type":"message"}]}`, model.StopReasonEndTurn, true},
		{"tool use", `{"status":"completed","output":[{"type":"function_call"}]}`, model.StopReasonToolUse, true},
		{"max tokens", `{"status":"incomplete","incomplete_details":{"reason":"max_output_tokens"}}`, model.StopReasonMaxTokens, true},
		{"filtered", `{"status":"incomplete","incomplete_details":{"reason":"content_filter"}}`, model.StopReasonContentFilter, true},
		{"in progress", `{"status":"in_progress"}`, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var resp responses.Response
			require.NoError(t, json.Unmarshal([]byte(tc.body), &resp))
			got, ok := StopReason(&resp)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

// testDecoder feeds a fixed sequence of events to an ssestream.Stream.
type testDecoder struct {
	events []ssestream.Event
	i      int
	err    error
}

func (d *testDecoder) Event() ssestream.Event { return d.events[d.i-1] }

func (d *testDecoder) Next() bool {
	if d.i >= len(d.events) {
		return false
	}
	d.i++
	return true
}

func (d *testDecoder) Close() error { return nil }
func (d *testDecoder) Err() error   { return d.err }

func sse(typ, data string) ssestream.Event {
	return ssestream.Event{Type: typ, Data: []byte(data)}
}

func TestConsumeAccumulatesStream(t *testing.T) {
	dec := &testDecoder{events: []ssestream.Event{
		sse("response.created", `{"type":"response.created","response":{"id":"resp_9","model":"gpt-4.1","status":"in_progress","output":[]}}`),
		sse("response.in_progress", `{"type":"response.in_progress","response":{"id":"resp_9","status":"in_progress"}}`),
		sse("response.output_item.added", `{"type":"response.output_item.added","output_index":0,"item":{"type":"message","id":"msg_9","role":"assistant","status":"in_progress","content":[]}}`),
		sse("response.output_text.delta", `{"type":"response.output_text.delta","output_index":0,"item_id":"msg_9","content_index":0,"delta":"Hel"}`),
		sse("response.output_text.delta", `{"type":"response.output_text.delta","output_index":0,"item_id":"msg_9","content_index":0,"delta":"lo"}`),
		sse("response.output_item.done", `{"type":"response.output_item.done","output_index":0,"item":{"type":"message","id":"msg_9","role":"assistant","status":"completed","content":[]}}`),
		sse("response.output_item.added", `{"type":"response.output_item.added","output_index":1,"item":{"type":"function_call","id":"fc_9","call_id":"call_9","name":"lookup","arguments":""}}`),
		sse("response.function_call_arguments.delta", `{"type":"response.function_call_arguments.delta","output_index":1,"item_id":"fc_9","delta":"{\"id\":"}`),
		sse("response.function_call_arguments.delta", `{"type":"response.function_call_arguments.delta","output_index":1,"item_id":"fc_9","delta":"42}"}`),
		sse("response.output_item.done", `{"type":"response.output_item.done","output_index":1,"item":{"type":"function_call","id":"fc_9","call_id":"call_9","name":"lookup","arguments":"{\"id\":42}"}}`),
		sse("response.output_item.added", `{"type":"response.output_item.added","output_index":2,"item":{"type":"web_search_call","id":"ws_9","status":"in_progress"}}`),
		sse("response.output_item.done", `{"type":"response.output_item.done","output_index":2,"item":{"type":"web_search_call","id":"ws_9","status":"completed"}}`),
		sse("response.completed", `{"type":"response.completed","response":{"id":"resp_9","status":"completed","output":[{"type":"message"},{"type":"function_call"}],"usage":{"input_tokens":7,"output_tokens":15,"total_tokens":22}}}`),
	}}
	s := ssestream.NewStream[responses.ResponseStreamEventUnion](dec, nil)
	acc := stream.New(stream.Options{})

	require.NoError(t, Consume(context.Background(), s, acc))
	require.Equal(t, stream.ResponseCompleted, acc.Status())
	require.Equal(t, "resp_9", acc.ResponseID())
	require.Equal(t, model.Usage{InputTokens: 7, OutputTokens: 15, TotalTokens: 22}, acc.Usage())
	require.Equal(t, model.StopReasonToolUse, *acc.StopReason())

	items := acc.Items()
	require.Len(t, items, 3)
	require.Equal(t, "Hello", items[0].(model.MessageOutput).Text())
	uses := items[1].(model.MessageOutput).ToolUses()
	require.Len(t, uses, 1)
	require.Equal(t, "call_9", uses[0].ID)
	require.Equal(t, map[string]any{"id": float64(42)}, uses[0].Input)
	require.JSONEq(t, `{"type":"web_search_call","id":"ws_9","status":"completed"}`, items[2].(model.MessageOutput).Text())
}

func TestHandleUnknownEventKeepsType(t *testing.T) {
	var ev responses.ResponseStreamEventUnion
	require.NoError(t, json.Unmarshal([]byte(`{"type":"response.audio.delta","delta":"AAAA"}`), &ev))
	deltas := StreamProcessor{}.Handle(ev)
	require.Len(t, deltas, 1)
	require.Equal(t, stream.DeltaKind("response.audio.delta"), deltas[0].Kind)

	acc := stream.New(stream.Options{})
	require.False(t, acc.Apply(context.Background(), deltas[0]))
}

func TestConsumeStopsOnFailedResponse(t *testing.T) {
	dec := &testDecoder{events: []ssestream.Event{
		sse("response.created", `{"type":"response.created","response":{"id":"resp_f","status":"in_progress"}}`),
		sse("response.failed", `{"type":"response.failed","response":{"id":"resp_f","status":"failed","error":{"code":"server_error","message":"model overloaded"}}}`),
		sse("response.output_text.delta", `{"type":"response.output_text.delta","output_index":0,"delta":"late"}`),
	}}
	s := ssestream.NewStream[responses.ResponseStreamEventUnion](dec, nil)
	acc := stream.New(stream.Options{})

	err := Consume(context.Background(), s, acc)
	pe, ok := model.AsProviderError(err)
	require.True(t, ok)
	require.Equal(t, "server_error", pe.Code())
	require.Equal(t, stream.ResponseError, acc.Status())
	require.Empty(t, acc.Items())
}

func TestConsumeRecordsTransportError(t *testing.T) {
	dec := &testDecoder{err: errors.New("connection reset")}
	s := ssestream.NewStream[responses.ResponseStreamEventUnion](dec, nil)
	acc := stream.New(stream.Options{ResponseID: "r"})

	err := Consume(context.Background(), s, acc)
	pe, ok := model.AsProviderError(err)
	require.True(t, ok)
	require.Equal(t, model.ProviderErrorKindStream, pe.Kind())
	require.Equal(t, ProviderName, pe.Provider())
	require.ErrorIs(t, acc.Err(), err)
}

func TestConsumeHonorsCanceledContext(t *testing.T) {
	dec := &testDecoder{events: []ssestream.Event{sse("response.completed", `{"type":"response.completed","response":{"status":"completed"}}`)}}
	s := ssestream.NewStream[responses.ResponseStreamEventUnion](dec, nil)
	acc := stream.New(stream.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, Consume(ctx, s, acc), context.Canceled)
	require.Equal(t, stream.ResponseError, acc.Status())
}

func TestWrapErrorClassifiesStatus(t *testing.T) {
	apiErr := &sdk.Error{
		StatusCode: http.StatusUnauthorized,
		Code:       "invalid_api_key",
		Message:    "Incorrect API key provided",
		Request:    httptest.NewRequest(http.MethodPost, "https://api.openai.com/v1/responses", nil),
		Response:   &http.Response{StatusCode: http.StatusUnauthorized},
	}
	pe, ok := model.AsProviderError(WrapError("responses.new", apiErr))
	require.True(t, ok)
	require.Equal(t, model.ProviderErrorKindAuth, pe.Kind())
	require.Equal(t, http.StatusUnauthorized, pe.HTTPStatus())
	require.Equal(t, "invalid_api_key", pe.Code())
	require.NoError(t, WrapError("x", nil))
}
