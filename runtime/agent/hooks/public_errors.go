package hooks

import (
	"context"
	"errors"

	"goa.design/agentcore/runtime/agent/model"
)

// Messages rendered to end users when an error event is published. Callers
// may override them at startup, before any event is encoded.
var (
	// PublicErrorTimeout is used when the run failed on a deadline.
	PublicErrorTimeout = "The request timed out. Please retry."

	// PublicErrorInternal is used for unclassified failures.
	PublicErrorInternal = "The request failed. Please retry."

	// PublicErrorProviderRateLimited is used when the provider throttles requests.
	PublicErrorProviderRateLimited = "The AI provider is rate-limiting requests. Please wait a moment and retry."

	// PublicErrorProviderUnavailable is used for transient provider failures.
	PublicErrorProviderUnavailable = "The AI provider is temporarily unavailable. Please retry."

	// PublicErrorProviderInvalidRequest is used when the provider rejects the request.
	PublicErrorProviderInvalidRequest = "The AI provider rejected the request."

	// PublicErrorProviderAuth is used when provider authentication fails.
	PublicErrorProviderAuth = "The AI provider authentication failed."

	// PublicErrorProviderStream is used when the provider aborts a stream.
	PublicErrorProviderStream = "The AI provider interrupted the response. Please retry."

	// PublicErrorProviderDefault is used for unclassified provider failures.
	PublicErrorProviderDefault = "The AI provider returned an error. Please retry."
)

// PublicMessage returns the user-facing message for err. It never exposes
// the error text itself.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return PublicErrorTimeout
	}
	pe, ok := model.AsProviderError(err)
	if !ok {
		return PublicErrorInternal
	}
	switch pe.Kind() {
	case model.ProviderErrorKindRateLimited:
		return PublicErrorProviderRateLimited
	case model.ProviderErrorKindUnavailable:
		return PublicErrorProviderUnavailable
	case model.ProviderErrorKindInvalidRequest:
		return PublicErrorProviderInvalidRequest
	case model.ProviderErrorKindAuth:
		return PublicErrorProviderAuth
	case model.ProviderErrorKindStream:
		return PublicErrorProviderStream
	default:
		return PublicErrorProviderDefault
	}
}
