package model

import (
	"encoding/json"
	"fmt"
)

type (
	// CompletionOutput is the canonical form of one complete provider
	// response: provider metadata plus the ordered output items.
	CompletionOutput struct {
		// ProviderID is the provider response identifier.
		ProviderID string `json:"provider_id"`
		// ProviderModelID identifies the model that handled the request.
		ProviderModelID string `json:"provider_model_id"`
		// ProviderTimestamp is the Unix time the provider created the response.
		ProviderTimestamp int64 `json:"provider_timestamp"`
		// Status is the overall generation status.
		Status Status `json:"status"`
		// Items are the output items in provider emission order.
		Items []OutputItem `json:"items"`
		// Usage reports token consumption when the provider returned it.
		Usage *Usage `json:"usage,omitempty"`
	}

	// Usage reports token consumption for a model call.
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
		TotalTokens  int `json:"total_tokens"`
	}
)

// Add returns the element-wise sum of u and other. TotalTokens is recomputed
// when neither side reported it.
func (u Usage) Add(other Usage) Usage {
	out := Usage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
		TotalTokens:  u.TotalTokens + other.TotalTokens,
	}
	if out.TotalTokens == 0 {
		out.TotalTokens = out.InputTokens + out.OutputTokens
	}
	return out
}

// Messages returns the message items of the output in order.
func (c CompletionOutput) Messages() []MessageOutput {
	var out []MessageOutput
	for _, it := range c.Items {
		if m, ok := it.(MessageOutput); ok {
			out = append(out, m)
		}
	}
	return out
}

// MarshalJSON always emits items as an array.
func (c CompletionOutput) MarshalJSON() ([]byte, error) {
	type alias CompletionOutput
	if c.Items == nil {
		c.Items = []OutputItem{}
	}
	return json.Marshal(alias(c))
}

// UnmarshalJSON decodes the output and its discriminated items.
func (c *CompletionOutput) UnmarshalJSON(data []byte) error {
	var w struct {
		ProviderID        string          `json:"provider_id"`
		ProviderModelID   string          `json:"provider_model_id"`
		ProviderTimestamp int64           `json:"provider_timestamp"`
		Status            any             `json:"status"`
		Items             json.RawMessage `json:"items"`
		Usage             *Usage          `json:"usage"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode completion output: %w", err)
	}
	status, _ := NormalizeStatus(w.Status)
	out := CompletionOutput{
		ProviderID:        w.ProviderID,
		ProviderModelID:   w.ProviderModelID,
		ProviderTimestamp: w.ProviderTimestamp,
		Status:            status,
		Usage:             w.Usage,
	}
	if len(w.Items) > 0 && string(w.Items) != "null" {
		items, err := DecodeOutputItems(w.Items)
		if err != nil {
			return err
		}
		out.Items = items
	}
	*c = out
	return nil
}
