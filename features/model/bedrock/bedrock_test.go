package bedrock

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/stretchr/testify/require"

	"goa.design/agentcore/runtime/agent/convert"
	"goa.design/agentcore/runtime/agent/model"
	"goa.design/agentcore/runtime/agent/stream"
)

func TestBlocksConvert(t *testing.T) {
	out := &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{Value: brtypes.Message{
			Role: brtypes.ConversationRoleAssistant,
			Content: []brtypes.ContentBlock{
				&brtypes.ContentBlockMemberReasoningContent{Value: &brtypes.ReasoningContentBlockMemberReasoningText{
					Value: brtypes.ReasoningTextBlock{Text: aws.String("need weather")},
				}},
				&brtypes.ContentBlockMemberText{Value: "Checking the weather."},
				&brtypes.ContentBlockMemberText{Value: ""},
				&brtypes.ContentBlockMemberToolUse{Value: brtypes.ToolUseBlock{
					Name:      aws.String("weather_get"),
					ToolUseId: aws.String("tooluse_1"),
					Input:     document.NewLazyDocument(&map[string]any{"city": "Paris"}),
				}},
			},
		}},
		Usage: &brtypes.TokenUsage{
			InputTokens:  aws.Int32(100),
			OutputTokens: aws.Int32(20),
			TotalTokens:  aws.Int32(120),
		},
		StopReason: brtypes.StopReasonToolUse,
	}

	blocks, err := Blocks("conv_1", out, NewToolNames("weather.get"))
	require.NoError(t, err)
	require.Len(t, blocks, 3)
	require.Equal(t, "tool_use", blocks[1]["stop_reason"])

	items := convert.Convert(context.Background(), blocks)
	require.Len(t, items, 3)
	require.Equal(t, "need weather", items[0].(model.ReasoningOutput).Summary)

	text := items[1].(model.MessageOutput)
	require.Equal(t, "conv_1_1", text.ID)
	require.Equal(t, "Checking the weather.", text.Text())
	require.Equal(t, model.StopReasonToolUse, *text.StopReason)

	uses := items[2].(model.MessageOutput).ToolUses()
	require.Len(t, uses, 1)
	require.Equal(t, "tooluse_1", uses[0].ID)
	require.Equal(t, "weather.get", uses[0].Name)
	require.Equal(t, map[string]any{"city": "Paris"}, uses[0].Input)

	require.Equal(t, &model.Usage{InputTokens: 100, OutputTokens: 20, TotalTokens: 120}, Usage(out.Usage))
}

func TestBlocksCitations(t *testing.T) {
	out := &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{Value: brtypes.Message{
			Content: []brtypes.ContentBlock{
				&brtypes.ContentBlockMemberCitationsContent{Value: brtypes.CitationsContentBlock{
					Content: []brtypes.CitationGeneratedContent{
						&brtypes.CitationGeneratedContentMemberText{Value: "Paris is "},
						&brtypes.CitationGeneratedContentMemberText{Value: "sunny."},
					},
					Citations: []brtypes.Citation{{Title: aws.String("Forecast"), Source: aws.String("doc-1")}},
				}},
			},
		}},
		StopReason: brtypes.StopReasonGuardrailIntervened,
	}
	blocks, err := Blocks("conv_2", out, nil)
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	items := convert.Convert(context.Background(), blocks)
	require.Len(t, items, 1)
	msg := items[0].(model.MessageOutput)
	require.Equal(t, "Paris is sunny.", msg.Text())
	require.Equal(t, model.StopReasonContentFilter, *msg.StopReason)
	part := msg.Content[0].(model.TextPart)
	require.Equal(t, []any{map[string]any{"type": "citation", "title": "Forecast", "source": "doc-1"}}, part.Annotations)
}

func TestBlocksNil(t *testing.T) {
	_, err := Blocks("x", nil, nil)
	require.Error(t, err)
}

func TestToolNames(t *testing.T) {
	names := NewToolNames("atlas.read.get_time", "", "plain")
	require.Len(t, names, 2)
	require.Equal(t, "atlas.read.get_time", names.Canonical("atlas_read_get_time"))
	require.Equal(t, "atlas.read.get_time", names.Canonical("$FUNCTIONS.atlas_read_get_time"))
	require.Equal(t, "other", names.Canonical("$FUNCTIONS.other"))
	require.Equal(t, "other", ToolNames(nil).Canonical("other"))

	require.Equal(t, "a_b-c_d", SanitizeToolName("a.b-c d"))
	require.Empty(t, SanitizeToolName(""))

	long := strings.Repeat("x", 80)
	s := SanitizeToolName(long)
	require.Len(t, s, maxToolNameLen)
	require.Equal(t, s, SanitizeToolName(long))
	require.NotEqual(t, s, SanitizeToolName(long+"y"))
}

type fakeStream struct {
	events chan brtypes.ConverseStreamOutput
	err    error
}

func newFakeStream(err error, events ...brtypes.ConverseStreamOutput) *fakeStream {
	ch := make(chan brtypes.ConverseStreamOutput, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return &fakeStream{events: ch, err: err}
}

func (f *fakeStream) Events() <-chan brtypes.ConverseStreamOutput { return f.events }
func (f *fakeStream) Err() error                                  { return f.err }

func TestConsumeAccumulatesStream(t *testing.T) {
	s := newFakeStream(nil,
		&brtypes.ConverseStreamOutputMemberMessageStart{Value: brtypes.MessageStartEvent{Role: brtypes.ConversationRoleAssistant}},
		&brtypes.ConverseStreamOutputMemberContentBlockDelta{Value: brtypes.ContentBlockDeltaEvent{
			ContentBlockIndex: aws.Int32(0),
			Delta: &brtypes.ContentBlockDeltaMemberReasoningContent{
				Value: &brtypes.ReasoningContentBlockDeltaMemberText{Value: "thinking"},
			},
		}},
		&brtypes.ConverseStreamOutputMemberContentBlockStop{Value: brtypes.ContentBlockStopEvent{ContentBlockIndex: aws.Int32(0)}},
		&brtypes.ConverseStreamOutputMemberContentBlockDelta{Value: brtypes.ContentBlockDeltaEvent{
			ContentBlockIndex: aws.Int32(1),
			Delta:             &brtypes.ContentBlockDeltaMemberText{Value: "Hel"},
		}},
		&brtypes.ConverseStreamOutputMemberContentBlockDelta{Value: brtypes.ContentBlockDeltaEvent{
			ContentBlockIndex: aws.Int32(1),
			Delta:             &brtypes.ContentBlockDeltaMemberText{Value: "lo"},
		}},
		&brtypes.ConverseStreamOutputMemberContentBlockStop{Value: brtypes.ContentBlockStopEvent{ContentBlockIndex: aws.Int32(1)}},
		&brtypes.ConverseStreamOutputMemberContentBlockStart{Value: brtypes.ContentBlockStartEvent{
			ContentBlockIndex: aws.Int32(2),
			Start: &brtypes.ContentBlockStartMemberToolUse{Value: brtypes.ToolUseBlockStart{
				Name:      aws.String("$FUNCTIONS.search_docs"),
				ToolUseId: aws.String("tool-1"),
			}},
		}},
		&brtypes.ConverseStreamOutputMemberContentBlockDelta{Value: brtypes.ContentBlockDeltaEvent{
			ContentBlockIndex: aws.Int32(2),
			Delta:             &brtypes.ContentBlockDeltaMemberToolUse{Value: brtypes.ToolUseBlockDelta{Input: aws.String(`{"query":`)}},
		}},
		&brtypes.ConverseStreamOutputMemberContentBlockDelta{Value: brtypes.ContentBlockDeltaEvent{
			ContentBlockIndex: aws.Int32(2),
			Delta:             &brtypes.ContentBlockDeltaMemberToolUse{Value: brtypes.ToolUseBlockDelta{Input: aws.String(`"goa"}`)}},
		}},
		&brtypes.ConverseStreamOutputMemberContentBlockStop{Value: brtypes.ContentBlockStopEvent{ContentBlockIndex: aws.Int32(2)}},
		&brtypes.ConverseStreamOutputMemberMessageStop{Value: brtypes.MessageStopEvent{StopReason: brtypes.StopReasonToolUse}},
		&brtypes.ConverseStreamOutputMemberMetadata{Value: brtypes.ConverseStreamMetadataEvent{
			Usage: &brtypes.TokenUsage{InputTokens: aws.Int32(10), OutputTokens: aws.Int32(2), TotalTokens: aws.Int32(12)},
		}},
	)
	acc := stream.New(stream.Options{ResponseID: "conv_9"})

	require.NoError(t, Consume(context.Background(), s, acc, NewToolNames("search.docs")))
	require.Equal(t, stream.ResponseCompleted, acc.Status())
	require.Equal(t, model.Usage{InputTokens: 10, OutputTokens: 2, TotalTokens: 12}, acc.Usage())
	require.Equal(t, model.StopReasonToolUse, *acc.StopReason())

	items := acc.Items()
	require.Len(t, items, 3)
	require.Equal(t, "thinking", items[0].(model.ReasoningOutput).Summary)
	require.Equal(t, "Hello", items[1].(model.MessageOutput).Text())
	uses := items[2].(model.MessageOutput).ToolUses()
	require.Len(t, uses, 1)
	require.Equal(t, "tool-1", uses[0].ID)
	require.Equal(t, "search.docs", uses[0].Name)
	require.Equal(t, map[string]any{"query": "goa"}, uses[0].Input)
}

func TestConsumeMissingIndexFails(t *testing.T) {
	s := newFakeStream(nil, &brtypes.ConverseStreamOutputMemberContentBlockStop{})
	acc := stream.New(stream.Options{})
	err := Consume(context.Background(), s, acc, nil)
	pe, ok := model.AsProviderError(err)
	require.True(t, ok)
	require.Equal(t, model.ProviderErrorKindStream, pe.Kind())
	require.Equal(t, stream.ResponseError, acc.Status())
}

func TestConsumeRecordsStreamError(t *testing.T) {
	s := newFakeStream(&smithy.GenericAPIError{Code: "ThrottlingException", Message: "slow down"},
		&brtypes.ConverseStreamOutputMemberContentBlockDelta{Value: brtypes.ContentBlockDeltaEvent{
			ContentBlockIndex: aws.Int32(0),
			Delta:             &brtypes.ContentBlockDeltaMemberText{Value: "partial"},
		}},
	)
	acc := stream.New(stream.Options{ResponseID: "r"})
	err := Consume(context.Background(), s, acc, nil)
	pe, ok := model.AsProviderError(err)
	require.True(t, ok)
	require.Equal(t, model.ProviderErrorKindRateLimited, pe.Kind())
	require.Equal(t, http.StatusTooManyRequests, pe.HTTPStatus())
	require.ErrorIs(t, acc.Err(), err)

	snap, ok := acc.CurrentItem(0)
	require.True(t, ok)
	require.Equal(t, model.StatusInProgress, snap.Status)
	require.Equal(t, "partial", snap.Item.(model.MessageOutput).Text())
}

func TestConsumeHonorsContext(t *testing.T) {
	s := &fakeStream{events: make(chan brtypes.ConverseStreamOutput)}
	acc := stream.New(stream.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, Consume(ctx, s, acc, nil), context.Canceled)
	require.Equal(t, stream.ResponseError, acc.Status())
}

func TestHandleUnknownEventKeepsTag(t *testing.T) {
	deltas, err := StreamProcessor{}.Handle(&brtypes.UnknownUnionMember{Tag: "newEvent"})
	require.NoError(t, err)
	require.Equal(t, []stream.Delta{{Kind: "newEvent"}}, deltas)
}

func TestWrapErrorClassifiesStatus(t *testing.T) {
	respErr := &smithyhttp.ResponseError{
		Response: &smithyhttp.Response{Response: &http.Response{StatusCode: http.StatusServiceUnavailable}},
		Err:      &smithy.GenericAPIError{Code: "ServiceUnavailableException", Message: "busy"},
	}
	pe, ok := model.AsProviderError(WrapError("converse", respErr))
	require.True(t, ok)
	require.Equal(t, model.ProviderErrorKindUnavailable, pe.Kind())
	require.Equal(t, http.StatusServiceUnavailable, pe.HTTPStatus())
	require.Equal(t, "ServiceUnavailableException", pe.Code())
	require.Equal(t, "busy", pe.Message())
	require.ErrorIs(t, pe, respErr)

	pe, ok = model.AsProviderError(WrapError("converse", errors.New("dial tcp: timeout")))
	require.True(t, ok)
	require.Equal(t, model.ProviderErrorKindUnknown, pe.Kind())
	require.NoError(t, WrapError("converse", nil))
}
