// Package runlog records agent lifecycle events into an append-only log.
//
// A Recorder observes a hooks.Registry and appends one Event per dispatched
// lifecycle event to a Store. Events are grouped by run: the run ID is read
// from the hook context metadata and falls back to the recorder default.
package runlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"goa.design/agentcore/runtime/agent/hooks"
)

// MetadataRunID is the hook context metadata key holding the run ID.
const MetadataRunID = "run_id"

type (
	// Event is one recorded lifecycle event.
	Event struct {
		// ID is assigned by the store on append. IDs are opaque and ordered
		// within a run.
		ID string
		// RunID groups the events of one run.
		RunID string
		// AgentName and ToolName are copied from the hook context.
		AgentName string
		ToolName  string
		// Type is the lifecycle event type.
		Type hooks.EventType
		// Payload is the JSON encoded hooks.Envelope of the event.
		Payload json.RawMessage
		// Timestamp is the dispatch time.
		Timestamp time.Time
	}

	// Page is a forward page of events.
	Page struct {
		// Events are ordered oldest first.
		Events []*Event
		// NextCursor fetches the next page. Empty on the last page.
		NextCursor string
	}

	// Store is an append-only event store.
	Store interface {
		// Append persists e and assigns its ID.
		Append(ctx context.Context, e *Event) error
		// List returns up to limit events of runID recorded after cursor.
		// An empty cursor starts from the first event. limit must be > 0.
		List(ctx context.Context, runID, cursor string, limit int) (Page, error)
	}

	// Recorder appends lifecycle events to a Store.
	Recorder struct {
		store Store
		runID string
	}
)

// NewRecorder returns a recorder writing to store. defaultRunID is used for
// events whose context carries no run ID.
func NewRecorder(store Store, defaultRunID string) (*Recorder, error) {
	if store == nil {
		return nil, errors.New("runlog: store is required")
	}
	if defaultRunID == "" {
		return nil, errors.New("runlog: default run ID is required")
	}
	return &Recorder{store: store, runID: defaultRunID}, nil
}

// Attach registers the recorder on every event of reg.
func (r *Recorder) Attach(reg *hooks.Registry) (*hooks.Registration, error) {
	return reg.Attach(r)
}

// Observe implements hooks.Observer. Append failures are returned so the
// registry reports them as hook failures.
func (r *Recorder) Observe(ctx context.Context, event hooks.EventType, hc hooks.Context, data any) error {
	env, err := hooks.Encode(event, hc, data)
	if err != nil {
		return fmt.Errorf("runlog: %w", err)
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("runlog: marshal envelope: %w", err)
	}
	e := &Event{
		RunID:     r.runIDOf(hc),
		AgentName: hc.AgentName,
		ToolName:  hc.ToolName,
		Type:      event,
		Payload:   payload,
		Timestamp: env.Timestamp,
	}
	if err := r.store.Append(ctx, e); err != nil {
		return fmt.Errorf("runlog: append %s: %w", event, err)
	}
	return nil
}

func (r *Recorder) runIDOf(hc hooks.Context) string {
	if v, ok := hc.Value(MetadataRunID); ok {
		if id, ok := v.(string); ok && id != "" {
			return id
		}
	}
	return r.runID
}

// Envelope decodes the payload of e.
func (e *Event) Envelope() (*hooks.Envelope, error) {
	return hooks.Decode(e.Payload)
}
