// Package audit records structured operational events around shaping and
// gating: who did what to which resource, with what outcome. The audit
// log is operational telemetry and may carry timestamps; rendered
// artifacts never flow through here.
package audit

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType is the category of an audit event.
type EventType string

const (
	EventShaping EventType = "SHAPING"
	EventFreeze  EventType = "FREEZE"
	EventGate    EventType = "GATE"
	EventLease   EventType = "LEASE"
)

// Event is one structured audit record.
type Event struct {
	ID        string         `json:"id"`
	ActorID   string         `json:"actor_id,omitempty"`
	Type      EventType      `json:"type"`
	Action    string         `json:"action"`
	Resource  string         `json:"resource"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Logger records audit events.
type Logger interface {
	Record(ctx context.Context, eventType EventType, action, resource string, metadata map[string]any) error
}

// logger writes one JSON line per event to an injectable writer.
type logger struct {
	mu     sync.Mutex
	writer io.Writer
	actor  string
	clock  func() time.Time
}

// NewLogger creates a Logger writing to os.Stderr.
func NewLogger(actor string) Logger {
	return NewLoggerWithWriter(os.Stderr, actor)
}

// NewLoggerWithWriter creates a Logger with a custom sink, for testing
// and embedding.
func NewLoggerWithWriter(w io.Writer, actor string) Logger {
	if w == nil {
		w = os.Stderr
	}
	return &logger{writer: w, actor: actor, clock: time.Now}
}

func (l *logger) Record(ctx context.Context, eventType EventType, action, resource string, metadata map[string]any) error {
	_ = ctx
	event := Event{
		ID:        uuid.New().String(),
		ActorID:   l.actor,
		Type:      eventType,
		Action:    action,
		Resource:  resource,
		Timestamp: l.clock(),
		Metadata:  metadata,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = l.writer.Write(data)
	return err
}

// Nop is a Logger that discards everything.
type Nop struct{}

func (Nop) Record(context.Context, EventType, string, string, map[string]any) error { return nil }
