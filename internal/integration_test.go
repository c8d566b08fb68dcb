package internal

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ml8/skate-dryer/internal/gpio"
	"github.com/ml8/skate-dryer/internal/logic"
	"github.com/ml8/skate-dryer/internal/mqtt"
)

// rig wires the controller to fake GPIO and MQTT the way the daemon's main
// loop does, but synchronously.
type rig struct {
	ctrl  *logic.Controller
	dev   *gpio.FakeDevice
	pub   *mqtt.FakePublisher
	now   time.Time
	slept bool
}

func newRig(cfg logic.Config) *rig {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &rig{
		ctrl: logic.NewController(cfg, start),
		dev:  gpio.NewFakeDevice(),
		pub:  mqtt.NewFakePublisher(),
		now:  start,
	}
}

// step runs one controller iteration and applies its effects.
func (r *rig) step(t *testing.T) logic.Effects {
	t.Helper()
	r.now = r.now.Add(10 * time.Millisecond)
	eff := r.ctrl.Step(r.now)

	switch eff.Fan {
	case logic.OutputOn:
		r.dev.SetFan(true)
	case logic.OutputOff:
		r.dev.SetFan(false)
	}
	switch eff.LED {
	case logic.OutputOn:
		r.dev.SetLED(true)
	case logic.OutputOff:
		r.dev.SetLED(false)
	}
	for _, ev := range eff.Events {
		if err := r.pub.Publish(ev); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	if eff.Sleep {
		r.slept = true
	}
	return eff
}

// press registers a debounced button press.
func (r *rig) press() {
	r.ctrl.Press(r.now)
}

// window drives a complete input window: opening press, extra presses, and
// the steps through timeout, resolution, and application.
func (r *rig) window(t *testing.T, extraPresses int) {
	t.Helper()
	r.press()
	r.step(t)
	for i := 0; i < extraPresses; i++ {
		r.press()
	}
	r.ctrl.TickInput()
	r.step(t)
	r.step(t)
	r.step(t)
}

func eventNames(events []logic.Event) []string {
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = string(e.Type)
	}
	return names
}

func wantEvents(t *testing.T, got []logic.Event, want ...string) {
	t.Helper()
	names := eventNames(got)
	if len(names) != len(want) {
		t.Fatalf("events = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("events = %v, want %v", names, want)
		}
	}
}

// TestIntegrationShortCycle covers the full happy path: two presses select
// the short run, the fan runs for its full countdown, and the run ends with
// an automatic shutoff.
func TestIntegrationShortCycle(t *testing.T) {
	r := newRig(logic.Config{WindowTicks: 1, BaseTicks: 3, StepTicks: 2, IdleThreshold: 100})

	r.window(t, 1)
	if !r.dev.Fan {
		t.Fatal("fan should be on after the selection")
	}
	if r.dev.LED {
		t.Error("LED should be off once the window resolved")
	}

	// Run out the countdown.
	for i := 0; i < 3; i++ {
		r.ctrl.TickFan()
		r.step(t)
	}
	if r.dev.Fan {
		t.Error("fan should be off after the countdown")
	}
	wantEvents(t, r.pub.Events, "INPUT_OPEN", "FAN_ON", "FAN_OFF")

	// Check the published FAN_ON payload end to end.
	var payload struct {
		Dryer struct {
			Event string `json:"event"`
			Fan   struct {
				State string `json:"state"`
			} `json:"fan"`
			Level int `json:"level"`
			Ticks int `json:"ticks"`
		} `json:"dryer"`
	}
	if err := json.Unmarshal(r.pub.Payloads[1], &payload); err != nil {
		t.Fatalf("FAN_ON payload does not parse: %v", err)
	}
	if payload.Dryer.Event != "FAN_ON" || payload.Dryer.Fan.State != "SHORT" ||
		payload.Dryer.Level != 1 || payload.Dryer.Ticks != 3 {
		t.Errorf("FAN_ON payload = %+v", payload.Dryer)
	}
}

// TestIntegrationReselectionWhileRunning covers changing the run level mid
// run: the new selection replaces the old one and restarts the countdown.
func TestIntegrationReselectionWhileRunning(t *testing.T) {
	r := newRig(logic.Config{WindowTicks: 1, BaseTicks: 4, StepTicks: 4, IdleThreshold: 100})

	r.window(t, 1) // SHORT, 4 ticks
	r.ctrl.TickFan()
	r.ctrl.TickFan()
	r.step(t)
	if r.ctrl.RunTicksRemaining() != 2 {
		t.Fatalf("remaining = %d, want 2", r.ctrl.RunTicksRemaining())
	}

	r.window(t, 3) // LONG while running
	if r.ctrl.CurrentRun() != logic.RunLong || r.ctrl.RunTicksRemaining() != 12 {
		t.Errorf("run = %v/%d, want LONG/12", r.ctrl.CurrentRun(), r.ctrl.RunTicksRemaining())
	}
	if !r.dev.Fan {
		t.Error("fan should still be on")
	}
	wantEvents(t, r.pub.Events, "INPUT_OPEN", "FAN_ON", "INPUT_OPEN", "FAN_ON")
}

// TestIntegrationWindowWithoutSelection covers the quiet path: one press
// opens a window, nothing follows, and everything returns to idle with the
// fan untouched and no acknowledgment blinks.
func TestIntegrationWindowWithoutSelection(t *testing.T) {
	r := newRig(logic.Config{WindowTicks: 1, BaseTicks: 10, StepTicks: 10, IdleThreshold: 5})

	r.press()
	r.step(t)
	if !r.dev.LED {
		t.Fatal("window open should turn the LED on")
	}
	r.ctrl.TickInput()
	r.step(t)
	eff := r.step(t) // window resolves with no selection
	if eff.Blinks != 0 {
		t.Errorf("blinks = %d, want 0", eff.Blinks)
	}
	r.step(t)
	if r.dev.LED {
		t.Error("LED should be off after the window closed")
	}
	if r.dev.Fan {
		t.Error("fan should never have turned on")
	}
	wantEvents(t, r.pub.Events, "INPUT_OPEN")

	// The system drifts back to sleep once nothing is happening.
	slept := false
	for i := 0; i < 10; i++ {
		if r.step(t).Sleep {
			slept = true
			break
		}
	}
	if !slept {
		t.Error("idle system never requested sleep")
	}
}

// TestIntegrationThreePressesMed covers the selection feedback: three
// presses pick the medium run and acknowledge with two blinks.
func TestIntegrationThreePressesMed(t *testing.T) {
	r := newRig(logic.Config{WindowTicks: 1, BaseTicks: 2, StepTicks: 3, IdleThreshold: 100})

	r.press()
	r.step(t)
	r.press()
	r.press()
	r.ctrl.TickInput()
	r.step(t)
	eff := r.step(t)
	if eff.Blinks != 2 {
		t.Errorf("blinks = %d, want 2", eff.Blinks)
	}
	r.step(t)
	if r.ctrl.CurrentRun() != logic.RunMed || r.ctrl.RunTicksRemaining() != 5 {
		t.Errorf("run = %v/%d, want MED/5", r.ctrl.CurrentRun(), r.ctrl.RunTicksRemaining())
	}
}

// TestIntegrationSinglePressStopsRun covers the manual off: one press with
// no follow-up shuts a running fan down before its countdown would have
// expired.
func TestIntegrationSinglePressStopsRun(t *testing.T) {
	r := newRig(logic.Config{WindowTicks: 1, BaseTicks: 10, StepTicks: 10, IdleThreshold: 100})

	r.window(t, 3) // LONG
	if r.ctrl.RunTicksRemaining() != 30 {
		t.Fatalf("remaining = %d, want 30", r.ctrl.RunTicksRemaining())
	}
	r.window(t, 0) // single press: off
	if r.dev.Fan {
		t.Error("fan should be off")
	}
	if r.ctrl.RunTicksRemaining() != 0 {
		t.Errorf("remaining = %d, want 0", r.ctrl.RunTicksRemaining())
	}
	wantEvents(t, r.pub.Events, "INPUT_OPEN", "FAN_ON", "INPUT_OPEN", "FAN_OFF")
}

// TestIntegrationIdleToSleepAndWake covers the power policy: a quiet system
// requests sleep, the waking press is discarded, and the next press starts a
// fresh interaction.
func TestIntegrationIdleToSleepAndWake(t *testing.T) {
	r := newRig(logic.Config{WindowTicks: 1, BaseTicks: 10, StepTicks: 10, IdleThreshold: 5})

	for i := 0; i < 5; i++ {
		if r.step(t).Sleep {
			t.Fatalf("step %d: slept early", i)
		}
	}
	if !r.step(t).Sleep {
		t.Fatal("expected a sleep request")
	}

	// The wake transition discards the press that woke us.
	r.ctrl.SetSleeping(true)
	r.press()
	r.ctrl.SetSleeping(false)
	if eff := r.step(t); eff.ResetUITick {
		t.Error("waking press opened a window")
	}

	// The next press is a real interaction again.
	r.press()
	if eff := r.step(t); !eff.ResetUITick {
		t.Error("press after wake did not open a window")
	}
	wantEvents(t, r.pub.Events, "INPUT_OPEN")
}

// TestIntegrationExpiryDuringSelection covers the countdown expiring in the
// same iteration a new selection resolves: the fresh selection wins.
func TestIntegrationExpiryDuringSelection(t *testing.T) {
	r := newRig(logic.Config{WindowTicks: 1, BaseTicks: 1, StepTicks: 1, IdleThreshold: 100})

	r.window(t, 1) // SHORT, 1 tick
	r.press()
	r.step(t)
	r.press()
	r.ctrl.TickInput()
	r.ctrl.TickFan() // countdown expires while the window resolves
	r.step(t)
	r.step(t)
	r.step(t)

	if r.ctrl.CurrentRun() != logic.RunShort || !r.dev.Fan {
		t.Errorf("run = %v fan = %v, want SHORT on", r.ctrl.CurrentRun(), r.dev.Fan)
	}
	wantEvents(t, r.pub.Events, "INPUT_OPEN", "FAN_ON", "INPUT_OPEN", "FAN_OFF", "FAN_ON")
}
