package mongo

import (
	"context"
	"errors"

	clientsmongo "goa.design/agentcore/features/runlog/mongo/clients/mongo"
	"goa.design/agentcore/runtime/agent/runlog"
)

// Store implements runlog.Store on top of the Mongo client.
type Store struct {
	client clientsmongo.Client
}

// NewStore returns a store backed by client.
func NewStore(client clientsmongo.Client) (*Store, error) {
	if client == nil {
		return nil, errors.New("client is required")
	}
	return &Store{client: client}, nil
}

// Append implements runlog.Store.
func (s *Store) Append(ctx context.Context, e *runlog.Event) error {
	return s.client.Append(ctx, e)
}

// List implements runlog.Store.
func (s *Store) List(ctx context.Context, runID, cursor string, limit int) (runlog.Page, error) {
	return s.client.List(ctx, runID, cursor, limit)
}

// Name returns the health check name of the underlying client.
func (s *Store) Name() string { return s.client.Name() }

// Ping checks connectivity to MongoDB.
func (s *Store) Ping(ctx context.Context) error { return s.client.Ping(ctx) }
