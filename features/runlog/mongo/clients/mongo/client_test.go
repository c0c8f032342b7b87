package mongo

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"goa.design/agentcore/runtime/agent/hooks"
	"goa.design/agentcore/runtime/agent/runlog"
)

func TestClientAppendAssignsID(t *testing.T) {
	t.Parallel()

	oid := mustOID(t, "000000000000000000000001")
	coll := &fakeCollection{insertedID: oid}
	c := newClient(nil, coll, 0)

	e := &runlog.Event{
		RunID:     "run-1",
		AgentName: "svc.agent",
		ToolName:  "search",
		Type:      hooks.EventToolStart,
		Payload:   []byte(`{"ok":true}`),
		Timestamp: time.Unix(1, 0),
	}
	require.NoError(t, c.Append(context.Background(), e))
	assert.Equal(t, oid.Hex(), e.ID)
	require.Len(t, coll.inserted, 1)
	assert.Equal(t, "search", coll.inserted[0].ToolName)
	assert.Equal(t, time.UTC, coll.inserted[0].Timestamp.Location())
}

func TestClientAppendValidation(t *testing.T) {
	t.Parallel()

	c := newClient(nil, &fakeCollection{insertedID: bson.NewObjectID()}, time.Second)
	ctx := context.Background()
	now := time.Now()
	cases := map[string]*runlog.Event{
		"nil":          nil,
		"no run":       {Type: hooks.EventAgentStart, Timestamp: now},
		"bad type":     {RunID: "r", Type: "nope", Timestamp: now},
		"no timestamp": {RunID: "r", Type: hooks.EventAgentStart},
	}
	for name, e := range cases {
		t.Run(name, func(t *testing.T) {
			require.Error(t, c.Append(ctx, e))
		})
	}

	failing := newClient(nil, &fakeCollection{insertErr: errors.New("down")}, time.Second)
	err := failing.Append(ctx, &runlog.Event{RunID: "r", Type: hooks.EventAgentStart, Timestamp: now})
	require.ErrorContains(t, err, "down")
}

func TestClientListNextCursor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		eventCount int
		limit      int
		wantNext   string
	}{
		{name: "fewer_than_limit", eventCount: 2, limit: 3},
		{name: "exactly_limit", eventCount: 3, limit: 3},
		{name: "more_than_limit", eventCount: 4, limit: 3, wantNext: "000000000000000000000003"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			c := newClient(nil, &fakeCollection{findDocs: fakeEventDocuments("run-1", tc.eventCount)}, 0)
			page, err := c.List(context.Background(), "run-1", "", tc.limit)
			require.NoError(t, err)
			assert.Len(t, page.Events, min(tc.eventCount, tc.limit))
			assert.Equal(t, tc.wantNext, page.NextCursor)
			assert.Equal(t, hooks.EventToolEnd, page.Events[0].Type)
			if tc.wantNext == "" {
				return
			}
			next, err := c.List(context.Background(), "run-1", page.NextCursor, tc.limit)
			require.NoError(t, err)
			assert.Len(t, next.Events, tc.eventCount-tc.limit)
			assert.Empty(t, next.NextCursor)
		})
	}
}

func TestClientListValidation(t *testing.T) {
	t.Parallel()

	c := newClient(nil, &fakeCollection{}, 0)
	ctx := context.Background()
	_, err := c.List(ctx, "", "", 1)
	require.Error(t, err)
	_, err = c.List(ctx, "r", "", 0)
	require.Error(t, err)
	_, err = c.List(ctx, "r", "zz", 1)
	require.Error(t, err)

	broken := newClient(nil, &fakeCollection{cursorErr: errors.New("cursor died")}, 0)
	_, err = broken.List(ctx, "r", "", 1)
	require.ErrorContains(t, err, "cursor died")
}

func TestClientPingWithoutConnection(t *testing.T) {
	t.Parallel()

	c := newClient(nil, &fakeCollection{}, 0)
	assert.Equal(t, "runlog-mongo", c.Name())
	require.Error(t, c.Ping(context.Background()))
}

func fakeEventDocuments(runID string, n int) []eventDocument {
	docs := make([]eventDocument, 0, n)
	for i := 1; i <= n; i++ {
		docs = append(docs, eventDocument{
			ID:        bson.ObjectID{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, byte(i)},
			RunID:     runID,
			AgentName: "svc.agent",
			Type:      string(hooks.EventToolEnd),
			Payload:   []byte(`{}`),
			Timestamp: time.Unix(int64(i), 0).UTC(),
		})
	}
	return docs
}

func mustOID(t *testing.T, hex string) bson.ObjectID {
	t.Helper()
	oid, err := bson.ObjectIDFromHex(hex)
	require.NoError(t, err)
	return oid
}

type fakeCollection struct {
	insertedID any
	insertErr  error
	inserted   []eventDocument
	findDocs   []eventDocument
	cursorErr  error
}

func (c *fakeCollection) InsertOne(_ context.Context, doc eventDocument) (any, error) {
	if c.insertErr != nil {
		return nil, c.insertErr
	}
	c.inserted = append(c.inserted, doc)
	return c.insertedID, nil
}

func (c *fakeCollection) Find(_ context.Context, filter bson.M, limit int64) (cursor, error) {
	runID, _ := filter["run_id"].(string)
	var after bson.ObjectID
	if id, ok := filter["_id"].(bson.M); ok {
		after, _ = id["$gt"].(bson.ObjectID)
	}
	var out []eventDocument
	for _, doc := range c.findDocs {
		if doc.RunID != runID {
			continue
		}
		if !after.IsZero() && bytes.Compare(doc.ID[:], after[:]) <= 0 {
			continue
		}
		out = append(out, doc)
	}
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return &fakeCursor{docs: out, err: c.cursorErr}, nil
}

func (c *fakeCollection) EnsureIndex(context.Context) error { return nil }

type fakeCursor struct {
	docs []eventDocument
	pos  int
	err  error
}

func (c *fakeCursor) Next(context.Context) bool {
	if c.err != nil || c.pos >= len(c.docs) {
		return false
	}
	c.pos++
	return true
}

func (c *fakeCursor) Decode(val any) error {
	p, ok := val.(*eventDocument)
	if !ok {
		return errors.New("unexpected decode target")
	}
	*p = c.docs[c.pos-1]
	return nil
}

func (c *fakeCursor) Err() error { return c.err }

func (c *fakeCursor) Close(context.Context) error { return nil }
