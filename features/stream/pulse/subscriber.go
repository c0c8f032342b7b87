package pulse

import (
	"context"
	"errors"
	"fmt"

	streamopts "goa.design/pulse/streaming/options"

	clientspulse "goa.design/agentcore/features/stream/pulse/clients/pulse"
	"goa.design/agentcore/runtime/agent/hooks"
)

const defaultSinkName = "agentcore_hooks"

type (
	// SubscriberOptions configures a Subscriber.
	SubscriberOptions struct {
		// Client opens the source streams. Required.
		Client clientspulse.Client
		// SinkName is the consumer group name. Defaults to "agentcore_hooks".
		SinkName string
	}

	// Subscriber reads hook envelopes from Pulse and dispatches them to a
	// registry.
	Subscriber struct {
		client clientspulse.Client
		name   string
	}
)

// NewSubscriber returns a subscriber configured with opts.
func NewSubscriber(opts SubscriberOptions) (*Subscriber, error) {
	if opts.Client == nil {
		return nil, errors.New("pulse client is required")
	}
	name := opts.SinkName
	if name == "" {
		name = defaultSinkName
	}
	return &Subscriber{client: opts.Client, name: name}, nil
}

// Replay consumes streamID in the background and emits every decoded event
// on reg. Events are acknowledged once dispatched. The returned channel
// receives at most one error and is closed when consumption stops; cancel
// stops consumption and closes the sink.
func (s *Subscriber) Replay(ctx context.Context, streamID string, reg *hooks.Registry, opts ...streamopts.Sink) (<-chan error, context.CancelFunc, error) {
	if reg == nil {
		return nil, nil, errors.New("registry is required")
	}
	str, err := s.client.Stream(streamID)
	if err != nil {
		return nil, nil, err
	}
	sink, err := str.NewSink(ctx, s.name, opts...)
	if err != nil {
		return nil, nil, err
	}
	errs := make(chan error, 1)
	runCtx, cancel := context.WithCancel(ctx)
	go s.consume(runCtx, sink, reg, errs)
	return errs, func() {
		cancel()
		sink.Close(context.Background())
	}, nil
}

func (s *Subscriber) consume(ctx context.Context, sink clientspulse.Sink, reg *hooks.Registry, errs chan<- error) {
	defer close(errs)
	ch := sink.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			env, err := hooks.Decode(evt.Payload)
			if err != nil {
				errs <- fmt.Errorf("pulse decode payload: %w", err)
				return
			}
			if err := reg.Emit(ctx, env.Type, env.Context(), env.Payload()); err != nil {
				errs <- err
				return
			}
			if err := sink.Ack(ctx, evt); err != nil {
				errs <- fmt.Errorf("pulse ack: %w", err)
				return
			}
		}
	}
}
