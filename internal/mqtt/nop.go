package mqtt

import "github.com/ml8/skate-dryer/internal/logic"

// NopPublisher discards everything. Used when telemetry is disabled.
type NopPublisher struct{}

// NewNopPublisher creates a publisher that discards all events.
func NewNopPublisher() *NopPublisher {
	return &NopPublisher{}
}

// Publish discards the event.
func (*NopPublisher) Publish(logic.Event) error { return nil }

// PublishSystem discards the event.
func (*NopPublisher) PublishSystem(SystemEvent) error { return nil }

// IsConnected always reports false.
func (*NopPublisher) IsConnected() bool { return false }

// Close is a no-op.
func (*NopPublisher) Close() error { return nil }
