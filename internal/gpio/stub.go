//go:build !linux

package gpio

import (
	"errors"
	"time"
)

// RealDevice is not available on non-Linux platforms.
type RealDevice struct{}

// NewRealDevice returns an error on non-Linux platforms.
func NewRealDevice(pinButton, pinFan, pinLED int, debounce time.Duration) (*RealDevice, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Presses is not implemented on non-Linux platforms.
func (d *RealDevice) Presses() <-chan time.Time {
	return nil
}

// SetFan is not implemented on non-Linux platforms.
func (d *RealDevice) SetFan(on bool) error {
	return errors.New("gpio: not supported")
}

// SetLED is not implemented on non-Linux platforms.
func (d *RealDevice) SetLED(on bool) error {
	return errors.New("gpio: not supported")
}

// Levels is not implemented on non-Linux platforms.
func (d *RealDevice) Levels() (bool, bool, bool, error) {
	return false, false, false, errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (d *RealDevice) Close() error {
	return nil
}
