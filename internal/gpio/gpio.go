// Package gpio provides button, fan, and LED access with hardware
// abstraction. The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "time"

// Device is the hardware boundary: a debounced button press source and two
// output lines. Press events are enqueued only; all decision logic lives in
// the polled state machines.
type Device interface {
	// Presses delivers debounced button press timestamps. The channel is
	// bounded; presses are dropped when the consumer falls behind.
	Presses() <-chan time.Time

	// SetFan drives the fan transistor line.
	SetFan(on bool) error

	// SetLED drives the status LED line.
	SetLED(on bool) error

	// Levels returns the current logical line levels (button pressed, fan
	// on, led on), used by the print-state mode.
	Levels() (button, fan, led bool, err error)

	// Close releases GPIO resources.
	Close() error
}

// Pin defaults (BCM numbering).
const (
	DefaultPinButton = 17
	DefaultPinFan    = 27
	DefaultPinLED    = 22
)

// pressQueueDepth bounds how many presses can be pending between polls.
const pressQueueDepth = 8
