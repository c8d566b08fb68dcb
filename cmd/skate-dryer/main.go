// Command skate-dryer runs a one-button fan controller: a button press opens
// a timed input window, additional presses pick a run duration (off, short,
// med, long), the fan runs for the selected duration, and the loop parks in
// a low-power idle when nothing is happening.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ml8/skate-dryer/internal/gpio"
	"github.com/ml8/skate-dryer/internal/logic"
	"github.com/ml8/skate-dryer/internal/mqtt"
	"github.com/ml8/skate-dryer/internal/status"
	"github.com/ml8/skate-dryer/internal/web"
)

// options holds the parsed daemon configuration.
type options struct {
	poll       time.Duration
	debounce   time.Duration
	windowTick time.Duration
	fanTick    time.Duration

	windowTicks int
	baseTicks   int
	stepTicks   int
	idleIters   int

	blink     time.Duration
	heartbeat time.Duration

	pinButton int
	pinFan    int
	pinLED    int

	broker     string
	httpAddr   string
	printState bool
}

func main() {
	var opts options
	flag.DurationVar(&opts.poll, "poll", 10*time.Millisecond, "Main loop poll interval")
	flag.DurationVar(&opts.debounce, "debounce", 100*time.Millisecond, "Button debounce period")
	flag.DurationVar(&opts.windowTick, "window-tick", 2*time.Second, "Input window tick period")
	flag.DurationVar(&opts.fanTick, "fan-tick", 3*time.Second, "Fan run tick period")
	flag.IntVar(&opts.windowTicks, "window-ticks", 1, "Input window length, in window ticks")
	flag.IntVar(&opts.baseTicks, "run-base", 20, "Base fan run duration, in fan ticks")
	flag.IntVar(&opts.stepTicks, "run-step", 20, "Additional fan ticks per run level")
	flag.IntVar(&opts.idleIters, "idle-iterations", 255, "Consecutive inactive iterations before parking")
	flag.DurationVar(&opts.blink, "blink", 200*time.Millisecond, "Acknowledgment blink interval")
	flag.DurationVar(&opts.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.IntVar(&opts.pinButton, "pin-button", gpio.DefaultPinButton, "BCM pin number for the button")
	flag.IntVar(&opts.pinFan, "pin-fan", gpio.DefaultPinFan, "BCM pin number for the fan transistor")
	flag.IntVar(&opts.pinLED, "pin-led", gpio.DefaultPinLED, "BCM pin number for the status LED")
	flag.StringVar(&opts.broker, "broker", "", "MQTT broker address (empty to disable telemetry)")
	flag.StringVar(&opts.httpAddr, "http", ":80", "HTTP status address (empty to disable)")
	flag.BoolVar(&opts.printState, "print-state", false, "Print current line states and exit")
	flag.Parse()

	if err := run(opts); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(opts options) error {
	// Initialize GPIO
	dev, err := gpio.NewRealDevice(opts.pinButton, opts.pinFan, opts.pinLED, opts.debounce)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer dev.Close()

	// Print state mode
	if opts.printState {
		button, fan, led, err := dev.Levels()
		if err != nil {
			return fmt.Errorf("read gpio: %w", err)
		}
		fmt.Printf("BUTTON: %s, FAN: %s, LED: %s\n",
			pressedString(button), stateString(fan), stateString(led))
		return nil
	}

	// Initialize MQTT
	var publisher mqtt.Publisher
	var mqttStatus mqtt.ConnectionStatus
	if opts.broker != "" {
		real := mqtt.NewRealPublisher(opts.broker)
		publisher = real
		mqttStatus = real
	} else {
		nop := mqtt.NewNopPublisher()
		publisher = nop
		mqttStatus = nop
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	startTime := time.Now()
	tracker := status.NewTracker(startTime, status.Config{
		PollMs:        opts.poll.Milliseconds(),
		DebounceMs:    opts.debounce.Milliseconds(),
		HeartbeatMs:   opts.heartbeat.Milliseconds(),
		WindowTickMs:  opts.windowTick.Milliseconds(),
		FanTickMs:     opts.fanTick.Milliseconds(),
		BaseTicks:     opts.baseTicks,
		StepTicks:     opts.stepTicks,
		IdleThreshold: opts.idleIters,
		Broker:        opts.broker,
		HTTPAddr:      opts.httpAddr,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	}

	// Start HTTP status server
	if opts.httpAddr != "" {
		srv := web.New(opts.httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", opts.httpAddr)
	}

	log.Printf("started: poll=%v debounce=%v window=%dx%v fan-tick=%v run=%d+%d idle=%d",
		opts.poll, opts.debounce, opts.windowTicks, opts.windowTick, opts.fanTick,
		opts.baseTicks, opts.stepTicks, opts.idleIters)

	// Startup greeting: five blinks, fan and LED known-off after.
	blink(dev, 5, opts.blink, time.Sleep)

	ctrl := logic.NewController(logic.Config{
		WindowTicks:   opts.windowTicks,
		BaseTicks:     opts.baseTicks,
		StepTicks:     opts.stepTicks,
		IdleThreshold: opts.idleIters,
	}, startTime)

	pollTicker := time.NewTicker(opts.poll)
	defer pollTicker.Stop()
	uiTicker := time.NewTicker(opts.windowTick)
	defer uiTicker.Stop()
	fanTicker := time.NewTicker(opts.fanTick)
	defer fanTicker.Stop()

	timers := loopTimers{
		poll:         pollTicker.C,
		uiTick:       uiTicker.C,
		fanTick:      fanTicker.C,
		resetUITick:  func() { uiTicker.Reset(opts.windowTick) },
		resetFanTick: func() { fanTicker.Reset(opts.fanTick) },
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// An invariant violation is unrecoverable: park forever signaling on the
	// LED rather than exit-and-restart into the same broken state.
	defer func() {
		if r := recover(); r != nil {
			log.Printf("invariant violated: %v", r)
			haltBlink(dev, opts.blink, time.Sleep)
		}
	}()

	return runLoop(dev, publisher, mqttStatus, tracker, ctrl, timers,
		opts.blink, opts.heartbeat, time.Now, time.Sleep, sigCh)
}

// loopTimers bundles the injected tick sources and their phase resets so
// tests can drive the loop deterministically.
type loopTimers struct {
	poll    <-chan time.Time
	uiTick  <-chan time.Time
	fanTick <-chan time.Time

	resetUITick  func()
	resetFanTick func()
}

func runLoop(dev gpio.Device, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus,
	tracker *status.Tracker, ctrl *logic.Controller, timers loopTimers,
	blinkInterval, heartbeat time.Duration,
	now func() time.Time, sleep func(time.Duration), sig <-chan os.Signal) error {

	presses := dev.Presses()

	for {
		select {
		case s := <-sig:
			return shutdown(dev, publisher, mqttStatus, tracker, s)

		case t := <-presses:
			ctrl.Press(t)

		case <-timers.uiTick:
			ctrl.TickInput()

		case <-timers.fanTick:
			ctrl.TickFan()

		case <-timers.poll:
			t := now()
			eff := ctrl.Step(t)
			applyEffects(dev, publisher, eff, timers, blinkInterval, sleep)

			if eff.Sleep {
				if err := parkUntilPress(dev, publisher, tracker, ctrl, now, sig); err != nil {
					return err
				}
				// Fresh tick phases for the new interaction.
				timers.resetUITick()
				timers.resetFanTick()
			}

			if hb := ctrl.CheckHeartbeat(t, heartbeat); hb != nil {
				publishHeartbeat(publisher, mqttStatus, tracker, ctrl, hb)
			}

			tracker.Update(ctrl.CurrentRun(), ctrl.UiState(), ctrl.RunTicksRemaining(), ctrl.Counts())
			if mqttStatus != nil {
				tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}
		}
	}
}

// applyEffects actuates one controller step: outputs first, then events,
// then the blocking acknowledgment blinks.
func applyEffects(dev gpio.Device, publisher mqtt.Publisher, eff logic.Effects,
	timers loopTimers, blinkInterval time.Duration, sleep func(time.Duration)) {

	switch eff.Fan {
	case logic.OutputOn:
		if err := dev.SetFan(true); err != nil {
			log.Printf("fan on error: %v", err)
		}
	case logic.OutputOff:
		if err := dev.SetFan(false); err != nil {
			log.Printf("fan off error: %v", err)
		}
	}
	if eff.ResetFanTick {
		timers.resetFanTick()
	}

	switch eff.LED {
	case logic.OutputOn:
		if err := dev.SetLED(true); err != nil {
			log.Printf("led on error: %v", err)
		}
	case logic.OutputOff:
		if err := dev.SetLED(false); err != nil {
			log.Printf("led off error: %v", err)
		}
	}
	if eff.ResetUITick {
		timers.resetUITick()
	}

	for _, event := range eff.Events {
		log.Printf("event: %s (fan=%s)", event.Type, event.Run)
		if err := publisher.Publish(event); err != nil {
			log.Printf("publish error: %v", err)
			// Don't crash on publish failure
		}
	}

	if eff.Blinks > 0 {
		blink(dev, eff.Blinks, blinkInterval, sleep)
	}
}

// parkUntilPress is the sleep entry: the loop blocks on the button channel
// and the waking press is discarded, so the user's first press only wakes
// the system.
func parkUntilPress(dev gpio.Device, publisher mqtt.Publisher, tracker *status.Tracker,
	ctrl *logic.Controller, now func() time.Time, sig <-chan os.Signal) error {

	log.Printf("idle, parking until button press")
	ctrl.SetSleeping(true)
	tracker.SetSleeping(true)
	if err := publisher.PublishSystem(mqtt.SystemEvent{Timestamp: now(), Event: "SLEEP"}); err != nil {
		log.Printf("sleep publish error: %v", err)
	}

	select {
	case <-dev.Presses():
		// Waking press, discarded.
	case s := <-sig:
		return shutdown(dev, publisher, nil, tracker, s)
	}

	ctrl.SetSleeping(false)
	tracker.SetSleeping(false)
	if err := publisher.PublishSystem(mqtt.SystemEvent{Timestamp: now(), Event: "WAKE"}); err != nil {
		log.Printf("wake publish error: %v", err)
	}
	log.Printf("woken by button press")
	return nil
}

func publishHeartbeat(publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus,
	tracker *status.Tracker, ctrl *logic.Controller, hb *logic.HeartbeatData) {

	log.Printf("heartbeat: uptime=%v presses=%d windows=%d fan_on=%d fan_off=%d sleeps=%d",
		hb.Uptime, hb.Counts.Presses, hb.Counts.Windows, hb.Counts.FanOn, hb.Counts.FanOff, hb.Counts.Sleeps)

	if mqttStatus != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}
	// Refresh network info for heartbeat
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	tracker.Update(ctrl.CurrentRun(), ctrl.UiState(), ctrl.RunTicksRemaining(), ctrl.Counts())
	snap := tracker.Snapshot()

	event := mqtt.SystemEvent{
		Timestamp:  hb.Timestamp,
		Event:      "HEARTBEAT",
		RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
	}
	if err := publisher.PublishSystem(event); err != nil {
		log.Printf("heartbeat publish error: %v", err)
	}
}

// shutdown forces the outputs off and publishes the SHUTDOWN event. Leaving
// the fan transistor driven past process exit is not acceptable.
func shutdown(dev gpio.Device, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus,
	tracker *status.Tracker, s os.Signal) error {

	log.Printf("received %v, shutting down", s)
	if err := dev.SetFan(false); err != nil {
		log.Printf("fan off error: %v", err)
	}
	if err := dev.SetLED(false); err != nil {
		log.Printf("led off error: %v", err)
	}

	signalName := "UNKNOWN"
	if s == syscall.SIGINT {
		signalName = "SIGINT"
	} else if s == syscall.SIGTERM {
		signalName = "SIGTERM"
	}
	event := mqtt.SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    signalName,
		Retained:  true,
	}
	if tracker != nil {
		if mqttStatus != nil {
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
		snap := tracker.Snapshot()
		event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
	}
	if err := publisher.PublishSystem(event); err != nil {
		log.Printf("failed to publish shutdown event: %v", err)
	} else {
		log.Printf("published shutdown event")
	}
	return nil
}

// blink runs n acknowledgment blinks, leaving the LED off. The busy-wait is
// deliberate; the loop does nothing else while acknowledging.
func blink(dev gpio.Device, n int, interval time.Duration, sleep func(time.Duration)) {
	for i := 0; i < n; i++ {
		dev.SetLED(false)
		sleep(interval)
		dev.SetLED(true)
		sleep(interval)
		dev.SetLED(false)
	}
}

// haltBlink signals an unrecoverable fault on the LED forever. Never returns.
func haltBlink(dev gpio.Device, interval time.Duration, sleep func(time.Duration)) {
	dev.SetFan(false)
	for {
		blink(dev, 1, interval, sleep)
		sleep(interval)
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

func stateString(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

func pressedString(pressed bool) string {
	if pressed {
		return "PRESSED"
	}
	return "RELEASED"
}
