package model

import (
	"errors"
	"fmt"
)

// ProviderErrorKind classifies provider failures surfaced while decoding a
// response or a stream.
type ProviderErrorKind string

const (
	// ProviderErrorKindAuth indicates authentication or authorization failures.
	ProviderErrorKindAuth ProviderErrorKind = "auth"
	// ProviderErrorKindInvalidRequest indicates the provider rejected the request.
	ProviderErrorKindInvalidRequest ProviderErrorKind = "invalid_request"
	// ProviderErrorKindRateLimited indicates the provider is throttling requests.
	ProviderErrorKindRateLimited ProviderErrorKind = "rate_limited"
	// ProviderErrorKindUnavailable indicates a transient provider failure.
	ProviderErrorKindUnavailable ProviderErrorKind = "unavailable"
	// ProviderErrorKindStream indicates the provider reported an error event
	// in the middle of a stream.
	ProviderErrorKindStream ProviderErrorKind = "stream"
	// ProviderErrorKindUnknown indicates an unclassified provider failure.
	ProviderErrorKindUnknown ProviderErrorKind = "unknown"
)

type (
	// ProviderError describes a failure reported by a model provider. Adapters
	// build it from SDK errors so callers can inspect a stable shape without
	// importing provider SDKs.
	ProviderError struct {
		provider  string
		operation string
		http      int
		kind      ProviderErrorKind
		code      string
		message   string
		cause     error
	}

	// ProviderErrorOptions holds the fields of a ProviderError.
	ProviderErrorOptions struct {
		// Provider identifies the provider ("anthropic", "openai", "bedrock").
		// Required.
		Provider string
		// Operation names the provider operation, e.g. "converse_stream".
		Operation string
		// HTTPStatus is the HTTP status code when known.
		HTTPStatus int
		// Kind classifies the failure. Defaults to ProviderErrorKindUnknown.
		Kind ProviderErrorKind
		// Code is the provider-specific error code.
		Code string
		// Message is the provider error message.
		Message string
		// Cause is the original SDK error.
		Cause error
	}
)

// NewProviderError builds a ProviderError. It returns an error when the
// provider name is missing.
func NewProviderError(opts ProviderErrorOptions) (*ProviderError, error) {
	if opts.Provider == "" {
		return nil, errors.New("model: provider is required")
	}
	kind := opts.Kind
	if kind == "" {
		kind = ProviderErrorKindUnknown
	}
	return &ProviderError{
		provider:  opts.Provider,
		operation: opts.Operation,
		http:      opts.HTTPStatus,
		kind:      kind,
		code:      opts.Code,
		message:   opts.Message,
		cause:     opts.Cause,
	}, nil
}

// KindFromHTTPStatus maps an HTTP status code onto a ProviderErrorKind.
func KindFromHTTPStatus(status int) ProviderErrorKind {
	switch {
	case status == 401 || status == 403:
		return ProviderErrorKindAuth
	case status == 429:
		return ProviderErrorKindRateLimited
	case status >= 500:
		return ProviderErrorKindUnavailable
	case status >= 400:
		return ProviderErrorKindInvalidRequest
	}
	return ProviderErrorKindUnknown
}

// Provider returns the provider identifier.
func (e *ProviderError) Provider() string { return e.provider }

// Operation returns the provider operation name when known.
func (e *ProviderError) Operation() string { return e.operation }

// HTTPStatus returns the HTTP status code when available, otherwise 0.
func (e *ProviderError) HTTPStatus() int { return e.http }

// Kind returns the failure classification.
func (e *ProviderError) Kind() ProviderErrorKind { return e.kind }

// Code returns the provider-specific error code when available.
func (e *ProviderError) Code() string { return e.code }

// Message returns the provider error message when available.
func (e *ProviderError) Message() string { return e.message }

func (e *ProviderError) Error() string {
	op := e.operation
	if op == "" {
		op = "request"
	}
	msg := e.message
	if msg == "" && e.cause != nil {
		msg = e.cause.Error()
	}
	if msg == "" {
		msg = "provider error"
	}
	if e.code != "" {
		msg = e.code + ": " + msg
	}
	if e.http > 0 {
		return fmt.Sprintf("%s %s %d (%s): %s", e.provider, e.kind, e.http, op, msg)
	}
	return fmt.Sprintf("%s %s (%s): %s", e.provider, e.kind, op, msg)
}

// Unwrap returns the original SDK error.
func (e *ProviderError) Unwrap() error { return e.cause }

// AsProviderError returns the first ProviderError in err's chain, if any.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
