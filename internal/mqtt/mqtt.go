// Package mqtt provides publish-only telemetry with abstraction for testing.
// Nothing is ever subscribed; the button is the only way to command the fan.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/ml8/skate-dryer/internal/logic"
)

// Topic is the MQTT topic for dryer events.
const Topic = "home/dryer/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "home/dryer/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a dryer event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event
// (e.g., startup, shutdown, heartbeat, sleep, wake).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "SLEEP", "WAKE"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Dryer DryerPayload `json:"dryer"`
}

// DryerPayload contains the dryer event details.
type DryerPayload struct {
	Timestamp string   `json:"timestamp"`
	Event     string   `json:"event"`
	Fan       FanState `json:"fan"`
	Level     int      `json:"level,omitempty"`
	Ticks     int      `json:"ticks,omitempty"`
}

// FanState represents the fan's run state.
type FanState struct {
	State string `json:"state"`
}

// FormatPayload creates the JSON payload for a dryer event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Dryer: DryerPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			Fan:       FanState{State: event.Run.String()},
			Level:     event.Level,
			Ticks:     event.Ticks,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (SLEEP, WAKE, LWT) that don't carry a full status
// snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
