// Package inmem provides an in-memory runlog.Store for tests and local
// development.
package inmem

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"goa.design/agentcore/runtime/agent/runlog"
)

// Store implements runlog.Store in memory. Event IDs are 1-based sequence
// numbers per run.
type Store struct {
	mu   sync.Mutex
	runs map[string][]runlog.Event
}

// New returns an empty store.
func New() *Store {
	return &Store{runs: make(map[string][]runlog.Event)}
}

// Append implements runlog.Store.
func (s *Store) Append(_ context.Context, e *runlog.Event) error {
	if e == nil {
		return errors.New("event is required")
	}
	if e.RunID == "" {
		return errors.New("run ID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = strconv.Itoa(len(s.runs[e.RunID]) + 1)
	s.runs[e.RunID] = append(s.runs[e.RunID], *e)
	return nil
}

// List implements runlog.Store.
func (s *Store) List(_ context.Context, runID, cursor string, limit int) (runlog.Page, error) {
	if runID == "" {
		return runlog.Page{}, errors.New("run ID is required")
	}
	if limit <= 0 {
		return runlog.Page{}, errors.New("limit must be > 0")
	}
	start := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 0 {
			return runlog.Page{}, fmt.Errorf("invalid cursor %q", cursor)
		}
		start = n
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.runs[runID]
	if start >= len(all) {
		return runlog.Page{}, nil
	}
	end := min(start+limit, len(all))
	page := runlog.Page{Events: make([]*runlog.Event, 0, end-start)}
	for i := start; i < end; i++ {
		e := all[i]
		page.Events = append(page.Events, &e)
	}
	if end < len(all) {
		page.NextCursor = page.Events[len(page.Events)-1].ID
	}
	return page, nil
}
