// Package pulse publishes hook lifecycle events to goa.design/pulse streams
// and replays them into a hooks.Registry in another process.
//
// Attach a Publisher to the registry of the agent process; run a Subscriber
// in the consumer process to dispatch the same events to its own hooks.
package pulse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	clientspulse "goa.design/agentcore/features/stream/pulse/clients/pulse"
	"goa.design/agentcore/runtime/agent/hooks"
)

// MetadataRunID is the hook context metadata key used by the default stream
// naming.
const MetadataRunID = "run_id"

type (
	// Options configures a Publisher.
	Options struct {
		// Client opens the target streams. Required.
		Client clientspulse.Client
		// StreamID names the stream of an event. Defaults to "run/<run_id>"
		// when the context carries a run ID and "agent/<agent>" otherwise.
		StreamID func(hooks.Context) (string, error)
	}

	// Publisher is a hooks.Observer that publishes every event as a JSON
	// hooks.Envelope. Safe for concurrent use.
	Publisher struct {
		client   clientspulse.Client
		streamID func(hooks.Context) (string, error)
	}
)

// NewPublisher returns a publisher configured with opts.
func NewPublisher(opts Options) (*Publisher, error) {
	if opts.Client == nil {
		return nil, errors.New("pulse client is required")
	}
	streamID := opts.StreamID
	if streamID == nil {
		streamID = DefaultStreamID
	}
	return &Publisher{client: opts.Client, streamID: streamID}, nil
}

// Attach registers the publisher on every event of reg.
func (p *Publisher) Attach(reg *hooks.Registry) (*hooks.Registration, error) {
	return reg.Attach(p)
}

// Observe implements hooks.Observer.
func (p *Publisher) Observe(ctx context.Context, event hooks.EventType, hc hooks.Context, data any) error {
	name, err := p.streamID(hc)
	if err != nil {
		return err
	}
	env, err := hooks.Encode(event, hc, data)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	s, err := p.client.Stream(name)
	if err != nil {
		return err
	}
	_, err = s.Add(ctx, string(event), payload)
	return err
}

// DefaultStreamID derives the stream name from the hook context.
func DefaultStreamID(hc hooks.Context) (string, error) {
	if v, ok := hc.Value(MetadataRunID); ok {
		if id, ok := v.(string); ok && id != "" {
			return "run/" + id, nil
		}
	}
	if hc.AgentName == "" {
		return "", errors.New("hook context has neither run ID nor agent name")
	}
	return "agent/" + hc.AgentName, nil
}
