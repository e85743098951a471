package natsbus

import (
	"log/slog"
	"time"
)

// Event is a structured observability notice. Delivery is fire-and-forget,
// at-most-once; nothing acknowledges it.
type Event struct {
	Kind      string         `json:"kind"`
	Source    string         `json:"source"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Sink receives events. A failing sink must never block or fail the
// emitting component, so Notify returns nothing.
type Sink interface {
	Notify(topic string, ev Event)
}

// Emitter publishes events over NATS. Publish errors are logged, not
// propagated.
type Emitter struct {
	client *Client
}

func NewEmitter(client *Client) *Emitter {
	return &Emitter{client: client}
}

func (e *Emitter) Notify(topic string, ev Event) {
	if e == nil || e.client == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if err := e.client.PublishJSON(topic, ev); err != nil {
		slog.Warn("event publish failed", "topic", topic, "kind", ev.Kind, "error", err)
	}
}

// NopSink discards events; used when the bus is disabled and in tests.
type NopSink struct{}

func (NopSink) Notify(string, Event) {}
