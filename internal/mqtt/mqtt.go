// Package mqtt publishes relay activation lifecycle events.
// Publishing is informational only: nothing here can switch a relay.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/segmentio/ksuid"
)

// DefaultTopic is the MQTT topic for relay events.
const DefaultTopic = "relay/runner/events"

// EventType identifies a point in an activation's lifecycle.
type EventType string

const (
	EventActivated   EventType = "ACTIVATED"
	EventDeactivated EventType = "DEACTIVATED"
	EventInterrupted EventType = "INTERRUPTED"
	EventFailed      EventType = "FAILED"
)

// Event describes one lifecycle transition of a relay activation.
type Event struct {
	RunID     string
	Timestamp time.Time
	Type      EventType
	Relay     uint8
	Pin       uint8
	Duration  time.Duration
	Reason    string // signal name for INTERRUPTED, error text for FAILED
}

// Publisher publishes relay events.
type Publisher interface {
	// Publish sends a relay event. Failures are reported but must never
	// affect pin handling.
	Publish(event Event) error

	// Close flushes and disconnects.
	Close() error
}

// NewRunID returns a sortable unique identifier for one activation.
func NewRunID() string {
	return ksuid.New().String()
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Relay RelayPayload `json:"relay"`
}

// RelayPayload contains the relay event details.
type RelayPayload struct {
	RunID      string `json:"run_id"`
	Timestamp  string `json:"timestamp"`
	Event      string `json:"event"`
	Relay      uint8  `json:"relay"`
	Pin        uint8  `json:"pin"`
	DurationMs int64  `json:"duration_ms"`
	Reason     string `json:"reason,omitempty"`
}

// FormatPayload creates the JSON payload for a relay event.
func FormatPayload(event Event) ([]byte, error) {
	payload := Payload{
		Relay: RelayPayload{
			RunID:      event.RunID,
			Timestamp:  event.Timestamp.UTC().Format(time.RFC3339),
			Event:      string(event.Type),
			Relay:      event.Relay,
			Pin:        event.Pin,
			DurationMs: event.Duration.Milliseconds(),
			Reason:     event.Reason,
		},
	}
	return json.Marshal(payload)
}

// NopPublisher discards events. Used when no broker is configured.
type NopPublisher struct{}

// Publish does nothing.
func (NopPublisher) Publish(Event) error { return nil }

// Close does nothing.
func (NopPublisher) Close() error { return nil }
