// Package telemetrytest provides in-memory telemetry implementations that
// record what they receive, for use in tests.
package telemetrytest

import (
	"context"
	"sync"
	"time"

	"goa.design/agentcore/runtime/agent/telemetry"
)

type (
	// Entry is one recorded log line.
	Entry struct {
		Level   string
		Message string
		KV      map[string]any
	}

	// Logger records log lines.
	Logger struct {
		mu      sync.Mutex
		entries []Entry
	}

	// Metrics records counter increments by name.
	Metrics struct {
		mu       sync.Mutex
		counters map[string]float64
		timers   map[string]int
	}
)

// NewSet returns a telemetry set backed by a recording logger and metrics and
// a noop tracer.
func NewSet() (telemetry.Set, *Logger, *Metrics) {
	l, m := &Logger{}, &Metrics{}
	return telemetry.Set{Logger: l, Metrics: m, Tracer: telemetry.NoopTracer{}}, l, m
}

func (l *Logger) Debug(_ context.Context, msg string, kv ...any) { l.add("debug", msg, kv) }
func (l *Logger) Info(_ context.Context, msg string, kv ...any)  { l.add("info", msg, kv) }
func (l *Logger) Warn(_ context.Context, msg string, kv ...any)  { l.add("warn", msg, kv) }
func (l *Logger) Error(_ context.Context, msg string, kv ...any) { l.add("error", msg, kv) }

// Entries returns a copy of the recorded lines.
func (l *Logger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

// Level returns the recorded lines at the given level.
func (l *Logger) Level(level string) []Entry {
	var out []Entry
	for _, e := range l.Entries() {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

func (l *Logger) add(level, msg string, kv []any) {
	fields := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			fields[k] = kv[i+1]
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, Entry{Level: level, Message: msg, KV: fields})
}

// IncCounter implements telemetry.Metrics.
func (m *Metrics) IncCounter(name string, value float64, _ ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = make(map[string]float64)
	}
	m.counters[name] += value
}

// RecordTimer implements telemetry.Metrics.
func (m *Metrics) RecordTimer(name string, _ time.Duration, _ ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timers == nil {
		m.timers = make(map[string]int)
	}
	m.timers[name]++
}

// Counter returns the accumulated value of a counter.
func (m *Metrics) Counter(name string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

// Timings returns how many timings were recorded under name.
func (m *Metrics) Timings(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timers[name]
}
