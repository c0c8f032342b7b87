package items

import "goa.design/agentcore/runtime/agent/model"

// ModelResponse is the complete output of one model call.
type ModelResponse struct {
	// Output lists the canonical items in provider order.
	Output []model.OutputItem
	// Usage reports token consumption for the call.
	Usage model.Usage
	// ResponseID is the provider response identifier when reported.
	ResponseID string
}

// ToMessages returns the message items of the response in order.
func (r ModelResponse) ToMessages() []model.MessageOutput {
	var out []model.MessageOutput
	for _, it := range r.Output {
		if m, ok := it.(model.MessageOutput); ok {
			out = append(out, m)
		}
	}
	return out
}

// Messages converts every run item that carries a message, skipping items
// that fail to convert. Conversion errors are keyed by the failing item's
// index in its.
func Messages(its []RunItem) ([]model.MessageOutput, map[int]error) {
	var (
		out  []model.MessageOutput
		errs map[int]error
	)
	for i, it := range its {
		mi, ok := it.(MessageItem)
		if !ok {
			continue
		}
		m, err := mi.Message()
		if err != nil {
			if errs == nil {
				errs = make(map[int]error)
			}
			errs[i] = err
			continue
		}
		out = append(out, m)
	}
	return out, errs
}
