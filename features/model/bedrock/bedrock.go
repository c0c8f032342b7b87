// Package bedrock adapts AWS Bedrock Converse API payloads to the agent core.
//
// Blocks turns a Converse response into raw item blocks for the converter.
// StreamProcessor and Consume map ConverseStream events onto the stream
// accumulator. Tool names are translated back to their canonical form with
// a ToolNames reverse map.
package bedrock

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"goa.design/agentcore/runtime/agent/convert"
	"goa.design/agentcore/runtime/agent/model"
)

// ProviderName identifies Bedrock in provider errors.
const ProviderName = "bedrock"

// Blocks returns the raw item blocks of a Converse response. responseID
// seeds the identifiers of message blocks since Converse responses carry
// none. Tool names are resolved through names.
func Blocks(responseID string, out *bedrockruntime.ConverseOutput, names ToolNames) ([]convert.Block, error) {
	if out == nil {
		return nil, errors.New("bedrock: response is nil")
	}
	msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return nil, nil
	}
	var blocks []convert.Block
	lastMessage := -1
	for i, cb := range msg.Value.Content {
		id := fmt.Sprintf("%s_%d", responseID, i)
		switch v := cb.(type) {
		case *brtypes.ContentBlockMemberText:
			if v.Value == "" {
				continue
			}
			lastMessage = len(blocks)
			blocks = append(blocks, messageBlock(id, v.Value, nil))
		case *brtypes.ContentBlockMemberCitationsContent:
			text, annotations := citations(v.Value)
			lastMessage = len(blocks)
			blocks = append(blocks, messageBlock(id, text, annotations))
		case *brtypes.ContentBlockMemberReasoningContent:
			b := convert.Block{"type": convert.TypeReasoning, "id": id}
			if rt, ok := v.Value.(*brtypes.ReasoningContentBlockMemberReasoningText); ok && rt.Value.Text != nil {
				b["summary"] = []any{map[string]any{"type": "summary_text", "text": *rt.Value.Text}}
			}
			blocks = append(blocks, b)
		case *brtypes.ContentBlockMemberToolUse:
			args, err := arguments(v.Value.Input)
			if err != nil {
				return nil, fmt.Errorf("bedrock: tool input of block %d: %w", i, err)
			}
			b := convert.Block{
				"type":      convert.TypeFunctionCall,
				"id":        id,
				"name":      names.Canonical(deref(v.Value.Name)),
				"arguments": args,
				"status":    string(model.StatusCompleted),
			}
			if v.Value.ToolUseId != nil {
				b["call_id"] = *v.Value.ToolUseId
			}
			blocks = append(blocks, b)
		}
	}
	if lastMessage >= 0 {
		if r, ok := StopReason(out.StopReason); ok {
			blocks[lastMessage]["stop_reason"] = string(r)
		}
	}
	return blocks, nil
}

func messageBlock(id, text string, annotations []any) convert.Block {
	content := map[string]any{"type": "output_text", "text": text}
	if len(annotations) > 0 {
		content["annotations"] = annotations
	}
	return convert.Block{
		"type":    convert.TypeMessage,
		"id":      id,
		"role":    string(model.RoleAssistant),
		"status":  string(model.StatusCompleted),
		"content": []any{content},
	}
}

func citations(c brtypes.CitationsContentBlock) (string, []any) {
	var b strings.Builder
	for _, gc := range c.Content {
		if t, ok := gc.(*brtypes.CitationGeneratedContentMemberText); ok {
			b.WriteString(t.Value)
		}
	}
	annotations := make([]any, 0, len(c.Citations))
	for _, ct := range c.Citations {
		annotations = append(annotations, map[string]any{
			"type":   "citation",
			"title":  deref(ct.Title),
			"source": deref(ct.Source),
		})
	}
	return b.String(), annotations
}

// arguments returns the JSON text of a tool input document.
func arguments(doc document.Interface) (string, error) {
	if doc == nil {
		return "{}", nil
	}
	data, err := doc.MarshalSmithyDocument()
	if err != nil {
		return "", err
	}
	if !json.Valid(data) {
		return "", errors.New("input is not valid JSON")
	}
	return string(data), nil
}

// StopReason maps a Bedrock stop reason to its canonical value. Guardrail
// interventions and content filtering both map to content_filter.
func StopReason(r brtypes.StopReason) (model.StopReason, bool) {
	switch r {
	case brtypes.StopReasonEndTurn:
		return model.StopReasonEndTurn, true
	case brtypes.StopReasonToolUse:
		return model.StopReasonToolUse, true
	case brtypes.StopReasonMaxTokens:
		return model.StopReasonMaxTokens, true
	case brtypes.StopReasonStopSequence:
		return model.StopReasonStopSequence, true
	case brtypes.StopReasonGuardrailIntervened, brtypes.StopReasonContentFiltered:
		return model.StopReasonContentFilter, true
	}
	return "", false
}

// Usage converts Bedrock token usage, returning nil when u is nil.
func Usage(u *brtypes.TokenUsage) *model.Usage {
	if u == nil {
		return nil
	}
	return &model.Usage{
		InputTokens:  int(deref(u.InputTokens)),
		OutputTokens: int(deref(u.OutputTokens)),
		TotalTokens:  int(deref(u.TotalTokens)),
	}
}

// WrapError classifies a Bedrock SDK error into a *model.ProviderError.
// Throttling codes are rate limits even when no HTTP status is available.
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	opts := model.ProviderErrorOptions{
		Provider:  ProviderName,
		Operation: operation,
		Kind:      model.ProviderErrorKindUnknown,
		Message:   err.Error(),
		Cause:     err,
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		opts.Code = apiErr.ErrorCode()
		if m := apiErr.ErrorMessage(); m != "" {
			opts.Message = m
		}
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) && respErr.Response != nil {
		opts.HTTPStatus = respErr.HTTPStatusCode()
		opts.Kind = model.KindFromHTTPStatus(opts.HTTPStatus)
	}
	switch opts.Code {
	case "ThrottlingException", "TooManyRequestsException":
		opts.Kind = model.ProviderErrorKindRateLimited
		if opts.HTTPStatus == 0 {
			opts.HTTPStatus = http.StatusTooManyRequests
		}
	}
	pe, perr := model.NewProviderError(opts)
	if perr != nil {
		return err
	}
	return pe
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
