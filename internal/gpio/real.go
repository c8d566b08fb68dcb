//go:build linux

package gpio

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// RealDevice drives actual hardware through the Linux GPIO character device.
type RealDevice struct {
	chip    *gpiocdev.Chip
	button  *gpiocdev.Line
	fan     *gpiocdev.Line
	led     *gpiocdev.Line
	presses chan time.Time
}

// NewRealDevice requests the button, fan, and LED lines. The button is an
// input with pull-up, kernel-debounced, raising falling-edge events (the
// button shorts the line to ground when pressed). Fan and LED are
// active-high outputs, initially low.
func NewRealDevice(pinButton, pinFan, pinLED int, debounce time.Duration) (*RealDevice, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	d := &RealDevice{
		chip:    chip,
		presses: make(chan time.Time, pressQueueDepth),
	}

	d.button, err = chip.RequestLine(pinButton,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithDebounce(debounce),
		gpiocdev.WithEventHandler(d.handleEdge))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request button pin %d: %w", pinButton, err)
	}

	d.fan, err = chip.RequestLine(pinFan, gpiocdev.AsOutput(0))
	if err != nil {
		d.button.Close()
		chip.Close()
		return nil, fmt.Errorf("request fan pin %d: %w", pinFan, err)
	}

	d.led, err = chip.RequestLine(pinLED, gpiocdev.AsOutput(0))
	if err != nil {
		d.fan.Close()
		d.button.Close()
		chip.Close()
		return nil, fmt.Errorf("request led pin %d: %w", pinLED, err)
	}

	return d, nil
}

// handleEdge runs on the gpiocdev event goroutine. It only enqueues; a press
// arriving while the queue is full is dropped, which the controller
// tolerates the same way the debounce can swallow presses.
func (d *RealDevice) handleEdge(evt gpiocdev.LineEvent) {
	if evt.Type != gpiocdev.LineEventFallingEdge {
		return
	}
	select {
	case d.presses <- time.Now():
	default:
	}
}

// Presses delivers debounced button press timestamps.
func (d *RealDevice) Presses() <-chan time.Time {
	return d.presses
}

// SetFan drives the fan transistor line.
func (d *RealDevice) SetFan(on bool) error {
	if err := d.fan.SetValue(boolToValue(on)); err != nil {
		return fmt.Errorf("set fan: %w", err)
	}
	return nil
}

// SetLED drives the status LED line.
func (d *RealDevice) SetLED(on bool) error {
	if err := d.led.SetValue(boolToValue(on)); err != nil {
		return fmt.Errorf("set led: %w", err)
	}
	return nil
}

// Levels returns the current logical line levels. The button line is
// inverted: raw low = pressed.
func (d *RealDevice) Levels() (button, fan, led bool, err error) {
	raw, err := d.button.Value()
	if err != nil {
		return false, false, false, fmt.Errorf("read button pin: %w", err)
	}
	fanRaw, err := d.fan.Value()
	if err != nil {
		return false, false, false, fmt.Errorf("read fan pin: %w", err)
	}
	ledRaw, err := d.led.Value()
	if err != nil {
		return false, false, false, fmt.Errorf("read led pin: %w", err)
	}
	return raw == 0, fanRaw != 0, ledRaw != 0, nil
}

// Close drives both outputs low, reconfigures all lines to input with
// pull-up/down matching boot defaults, and releases them. The fan must not
// stay energized past process exit.
func (d *RealDevice) Close() error {
	var errs []error

	if d.fan != nil {
		if err := d.fan.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear fan pin: %w", err))
		}
		if err := d.fan.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure fan pin: %w", err))
		}
		if err := d.fan.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close fan pin: %w", err))
		}
	}
	if d.led != nil {
		if err := d.led.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear led pin: %w", err))
		}
		if err := d.led.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure led pin: %w", err))
		}
		if err := d.led.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close led pin: %w", err))
		}
	}
	if d.button != nil {
		if err := d.button.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close button pin: %w", err))
		}
	}
	if d.chip != nil {
		if err := d.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func boolToValue(on bool) int {
	if on {
		return 1
	}
	return 0
}
