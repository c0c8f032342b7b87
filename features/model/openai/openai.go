// Package openai adapts OpenAI Responses API payloads to the agent core.
//
// Responses output items already use the raw block shape the converter
// reads, so Blocks decodes each item's JSON verbatim. StreamProcessor maps
// Responses stream events onto provider-neutral deltas.
package openai

import (
	"encoding/json"
	"errors"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/responses"

	"goa.design/agentcore/runtime/agent/convert"
	"goa.design/agentcore/runtime/agent/model"
)

// ProviderName identifies OpenAI in provider errors.
const ProviderName = "openai"

// Blocks returns the raw item blocks of resp in output order. Items that
// cannot be decoded are skipped and reported in the returned error.
func Blocks(resp *responses.Response) ([]convert.Block, error) {
	if resp == nil {
		return nil, nil
	}
	blocks := make([]convert.Block, 0, len(resp.Output))
	var errs []error
	for _, item := range resp.Output {
		b, err := itemBlock(item)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		blocks = append(blocks, b)
	}
	if r, ok := StopReason(resp); ok {
		for i := len(blocks) - 1; i >= 0; i-- {
			if blocks[i].Type() == convert.TypeMessage {
				blocks[i]["stop_reason"] = string(r)
				break
			}
		}
	}
	return blocks, errors.Join(errs...)
}

func itemBlock(item responses.ResponseOutputItemUnion) (convert.Block, error) {
	raw := item.RawJSON()
	if raw == "" {
		b, err := json.Marshal(item)
		if err != nil {
			return nil, err
		}
		raw = string(b)
	}
	var b convert.Block
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		return nil, err
	}
	return b, nil
}

// StopReason derives the canonical stop reason of resp. Incomplete
// responses map their incomplete reason; completed responses report
// tool_use when they requested a function call and end_turn otherwise.
func StopReason(resp *responses.Response) (model.StopReason, bool) {
	switch resp.Status {
	case responses.ResponseStatusIncomplete:
		switch resp.IncompleteDetails.Reason {
		case "max_output_tokens":
			return model.StopReasonMaxTokens, true
		case "content_filter":
			return model.StopReasonContentFilter, true
		}
		return "", false
	case responses.ResponseStatusCompleted:
		for _, item := range resp.Output {
			if item.Type == convert.TypeFunctionCall {
				return model.StopReasonToolUse, true
			}
		}
		return model.StopReasonEndTurn, true
	}
	return "", false
}

// Usage returns the token usage of resp, or nil when none was reported.
func Usage(u responses.ResponseUsage) *model.Usage {
	if u.InputTokens == 0 && u.OutputTokens == 0 && u.TotalTokens == 0 {
		return nil
	}
	return &model.Usage{
		InputTokens:  int(u.InputTokens),
		OutputTokens: int(u.OutputTokens),
		TotalTokens:  int(u.TotalTokens),
	}
}

// WrapError classifies an SDK error into a *model.ProviderError.
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
		opts.Code = apiErr.Code
		if apiErr.Message != "" {
			opts.Message = apiErr.Message
		}
	}
	pe, perr := model.NewProviderError(opts)
	if perr != nil {
		return err
	}
	return pe
}

func failure(operation, code, message string) error {
	pe, err := model.NewProviderError(model.ProviderErrorOptions{
		Provider:  ProviderName,
		Operation: operation,
		Kind:      model.ProviderErrorKindStream,
		Code:      code,
		Message:   message,
	})
	if err != nil {
		return errors.New(message)
	}
	return pe
}
