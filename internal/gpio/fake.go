package gpio

import "time"

// FakeDevice is a test double recording output transitions and delivering
// scripted button presses.
type FakeDevice struct {
	// Fan and LED hold the current output levels.
	Fan bool
	LED bool

	// FanWrites and LEDWrites record every Set call in order.
	FanWrites []bool
	LEDWrites []bool

	// Pressed controls the button level returned by Levels.
	Pressed bool

	// SetFanError and SetLEDError, if set, are returned by the setters.
	SetFanError error
	SetLEDError error

	// Closed tracks if Close was called.
	Closed bool

	presses chan time.Time
}

// NewFakeDevice creates a FakeDevice with a buffered press queue matching
// the real device's depth.
func NewFakeDevice() *FakeDevice {
	return &FakeDevice{presses: make(chan time.Time, pressQueueDepth)}
}

// Press enqueues a button press at the given time, dropping it if the queue
// is full (same as the real device).
func (f *FakeDevice) Press(t time.Time) {
	select {
	case f.presses <- t:
	default:
	}
}

// Presses delivers the scripted presses.
func (f *FakeDevice) Presses() <-chan time.Time {
	return f.presses
}

// SetFan records the fan write.
func (f *FakeDevice) SetFan(on bool) error {
	if f.SetFanError != nil {
		return f.SetFanError
	}
	f.Fan = on
	f.FanWrites = append(f.FanWrites, on)
	return nil
}

// SetLED records the LED write.
func (f *FakeDevice) SetLED(on bool) error {
	if f.SetLEDError != nil {
		return f.SetLEDError
	}
	f.LED = on
	f.LEDWrites = append(f.LEDWrites, on)
	return nil
}

// Levels returns the fake line levels.
func (f *FakeDevice) Levels() (bool, bool, bool, error) {
	return f.Pressed, f.Fan, f.LED, nil
}

// Close marks the device as closed.
func (f *FakeDevice) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded writes and pending presses.
func (f *FakeDevice) Reset() {
	f.Fan = false
	f.LED = false
	f.FanWrites = nil
	f.LEDWrites = nil
	f.Closed = false
	for {
		select {
		case <-f.presses:
		default:
			return
		}
	}
}
