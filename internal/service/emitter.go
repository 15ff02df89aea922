package service

import (
	"context"
	"log/slog"
	"sync"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter: decouples the editor from its front ends
// ─────────────────────────────────────────────────────────────

const (
	EventPageChanged    = "page:changed"
	EventHistoryChanged = "history:changed"
	EventPageLoaded     = "page:loaded"
	EventPageSaved      = "page:saved"
)

// EventEmitter receives editor events. The MCP server and the CLI pass their
// own implementations; tests use MockEmitter.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// NoopEmitter drops every event.
type NoopEmitter struct{}

func (NoopEmitter) Emit(context.Context, string, any) {}

// LogEmitter writes events to a slog logger at debug level.
type LogEmitter struct {
	Logger *slog.Logger
}

func (l LogEmitter) Emit(ctx context.Context, event string, data any) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.DebugContext(ctx, "editor event", "event", event, "data", data)
}

// MockEmitter is a test-friendly EventEmitter that records all calls.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Names returns the recorded event names in order.
func (m *MockEmitter) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Events))
	for i, e := range m.Events {
		out[i] = e.Event
	}
	return out
}

// Reset forgets every recorded event.
func (m *MockEmitter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = nil
}
