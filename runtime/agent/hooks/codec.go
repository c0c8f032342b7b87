package hooks

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"time"

	"goa.design/agentcore/runtime/agent/model"
)

type (
	// Envelope is the serializable form of a dispatched event. Observers
	// that persist or publish events encode them into envelopes.
	Envelope struct {
		Type      EventType      `json:"type"`
		AgentName string         `json:"agent_name"`
		ToolName  string         `json:"tool_name,omitempty"`
		Metadata  map[string]any `json:"metadata,omitempty"`
		// Data is the JSON encoding of the event data. Empty for error
		// events and nil data.
		Data json.RawMessage `json:"data,omitempty"`
		// Error is the error text of error events.
		Error string `json:"error,omitempty"`
		// PublicError is the user-facing message of error events.
		PublicError string `json:"public_error,omitempty"`
		// ErrorKind is the provider error kind when the error came from a
		// model provider.
		ErrorKind string    `json:"error_kind,omitempty"`
		Timestamp time.Time `json:"timestamp"`
	}

	// DecodedError is the error rebuilt from an envelope.
	DecodedError struct {
		Message     string
		PublicError string
		Kind        string
	}
)

// Encode builds the envelope of event. Error data is flattened into the
// error fields; any other data must be JSON serializable.
func Encode(event EventType, hc Context, data any) (*Envelope, error) {
	if !event.Valid() {
		return nil, fmt.Errorf("unsupported hook event type %q", event)
	}
	env := &Envelope{
		Type:      event,
		AgentName: hc.AgentName,
		ToolName:  hc.ToolName,
		Metadata:  maps.Clone(hc.Metadata),
		Timestamp: time.Now().UTC(),
	}
	if err, ok := data.(error); ok {
		env.Error = err.Error()
		env.PublicError = PublicMessage(err)
		if pe, ok := model.AsProviderError(err); ok {
			env.ErrorKind = string(pe.Kind())
		}
		return env, nil
	}
	if event == EventError {
		env.Error = fmt.Sprint(data)
		env.PublicError = PublicErrorInternal
		return env, nil
	}
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", event, err)
		}
		env.Data = b
	}
	return env, nil
}

// Context returns the hook context carried by e.
func (e *Envelope) Context() Context {
	return Context{AgentName: e.AgentName, ToolName: e.ToolName, Metadata: maps.Clone(e.Metadata)}
}

// Payload returns the event data carried by e: a *DecodedError for errors,
// the raw JSON data otherwise, or nil when there is none.
func (e *Envelope) Payload() any {
	if e.Error != "" {
		return &DecodedError{Message: e.Error, PublicError: e.PublicError, Kind: e.ErrorKind}
	}
	if len(e.Data) == 0 {
		return nil
	}
	return e.Data
}

// Decode parses the JSON encoding of an envelope.
func Decode(b []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("decode hook envelope: %w", err)
	}
	if !env.Type.Valid() {
		return nil, fmt.Errorf("unsupported hook event type %q", env.Type)
	}
	if env.Type == EventError && env.Error == "" {
		return nil, errors.New("decode hook envelope: error event without error")
	}
	return &env, nil
}

// Error implements error.
func (e *DecodedError) Error() string { return e.Message }
