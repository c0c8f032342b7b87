// Package mongo implements the MongoDB client used by the run log store.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"goa.design/clue/health"

	"goa.design/agentcore/runtime/agent/hooks"
	"goa.design/agentcore/runtime/agent/runlog"
)

type (
	// Client persists run log events in MongoDB.
	Client interface {
		health.Pinger

		Append(ctx context.Context, e *runlog.Event) error
		List(ctx context.Context, runID, cursor string, limit int) (runlog.Page, error)
	}

	// Options configures the client.
	Options struct {
		// Client is the connected driver client. Required.
		Client *mongodriver.Client
		// Database is the database name. Required.
		Database string
		// Collection defaults to "agent_lifecycle_events".
		Collection string
		// Timeout bounds each operation. Defaults to 5s.
		Timeout time.Duration
	}

	client struct {
		mongo   *mongodriver.Client
		coll    collection
		timeout time.Duration
	}

	eventDocument struct {
		ID        bson.ObjectID `bson:"_id,omitempty"`
		RunID     string        `bson:"run_id"`
		AgentName string        `bson:"agent_name"`
		ToolName  string        `bson:"tool_name,omitempty"`
		Type      string        `bson:"type"`
		Payload   []byte        `bson:"payload"`
		Timestamp time.Time     `bson:"timestamp"`
	}

	// collection is the subset of the driver collection used by the client.
	collection interface {
		InsertOne(ctx context.Context, doc eventDocument) (any, error)
		Find(ctx context.Context, filter bson.M, limit int64) (cursor, error)
		EnsureIndex(ctx context.Context) error
	}

	cursor interface {
		Next(ctx context.Context) bool
		Decode(val any) error
		Err() error
		Close(ctx context.Context) error
	}

	driverCollection struct {
		coll *mongodriver.Collection
	}
)

const (
	defaultCollection = "agent_lifecycle_events"
	defaultTimeout    = 5 * time.Second
	clientName        = "runlog-mongo"
)

// New returns a Client writing to the configured collection. It creates the
// run index when missing.
func New(opts Options) (Client, error) {
	if opts.Client == nil {
		return nil, errors.New("mongo client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("database name is required")
	}
	name := opts.Collection
	if name == "" {
		name = defaultCollection
	}
	coll := driverCollection{coll: opts.Client.Database(opts.Database).Collection(name)}
	c := newClient(opts.Client, coll, opts.Timeout)
	ctx, cancel := c.withTimeout(context.Background())
	defer cancel()
	if err := coll.EnsureIndex(ctx); err != nil {
		return nil, fmt.Errorf("create run index: %w", err)
	}
	return c, nil
}

func newClient(m *mongodriver.Client, coll collection, timeout time.Duration) *client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &client{mongo: m, coll: coll, timeout: timeout}
}

func (c *client) Name() string { return clientName }

func (c *client) Ping(ctx context.Context) error {
	if c.mongo == nil {
		return errors.New("mongo client is not connected")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.mongo.Ping(ctx, readpref.Primary())
}

func (c *client) Append(ctx context.Context, e *runlog.Event) error {
	if e == nil {
		return errors.New("event is required")
	}
	if e.RunID == "" {
		return errors.New("run ID is required")
	}
	if !e.Type.Valid() {
		return fmt.Errorf("invalid event type %q", e.Type)
	}
	if e.Timestamp.IsZero() {
		return errors.New("timestamp is required")
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	id, err := c.coll.InsertOne(ctx, eventDocument{
		RunID:     e.RunID,
		AgentName: e.AgentName,
		ToolName:  e.ToolName,
		Type:      string(e.Type),
		Payload:   append([]byte(nil), e.Payload...),
		Timestamp: e.Timestamp.UTC(),
	})
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	oid, ok := id.(bson.ObjectID)
	if !ok {
		return fmt.Errorf("unexpected inserted id type %T", id)
	}
	e.ID = oid.Hex()
	return nil
}

func (c *client) List(ctx context.Context, runID, cursor string, limit int) (page runlog.Page, err error) {
	if runID == "" {
		return runlog.Page{}, errors.New("run ID is required")
	}
	if limit <= 0 {
		return runlog.Page{}, errors.New("limit must be > 0")
	}
	filter := bson.M{"run_id": runID}
	if cursor != "" {
		oid, err := bson.ObjectIDFromHex(cursor)
		if err != nil {
			return runlog.Page{}, fmt.Errorf("invalid cursor %q: %w", cursor, err)
		}
		filter["_id"] = bson.M{"$gt": oid}
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	// One extra document tells whether another page exists.
	cur, err := c.coll.Find(ctx, filter, int64(limit+1))
	if err != nil {
		return runlog.Page{}, fmt.Errorf("find events: %w", err)
	}
	defer func() {
		if cerr := cur.Close(ctx); err == nil && cerr != nil {
			err = cerr
		}
	}()

	var events []*runlog.Event
	for cur.Next(ctx) {
		var doc eventDocument
		if err := cur.Decode(&doc); err != nil {
			return runlog.Page{}, fmt.Errorf("decode event: %w", err)
		}
		events = append(events, &runlog.Event{
			ID:        doc.ID.Hex(),
			RunID:     doc.RunID,
			AgentName: doc.AgentName,
			ToolName:  doc.ToolName,
			Type:      hooks.EventType(doc.Type),
			Payload:   append([]byte(nil), doc.Payload...),
			Timestamp: doc.Timestamp,
		})
	}
	if err := cur.Err(); err != nil {
		return runlog.Page{}, err
	}
	if len(events) > limit {
		events = events[:limit]
		page.NextCursor = events[limit-1].ID
	}
	page.Events = events
	return page, nil
}

func (c *client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

func (d driverCollection) InsertOne(ctx context.Context, doc eventDocument) (any, error) {
	res, err := d.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, err
	}
	return res.InsertedID, nil
}

func (d driverCollection) Find(ctx context.Context, filter bson.M, limit int64) (cursor, error) {
	return d.coll.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetLimit(limit),
	)
}

func (d driverCollection) EnsureIndex(ctx context.Context) error {
	_, err := d.coll.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys: bson.D{{Key: "run_id", Value: 1}, {Key: "_id", Value: 1}},
	})
	return err
}
