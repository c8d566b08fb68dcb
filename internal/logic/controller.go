package logic

import "time"

// Config holds the controller's timing constants, expressed in ticks and
// iterations of the injected sources.
type Config struct {
	// WindowTicks is the input window length in input ticks.
	WindowTicks int
	// BaseTicks and StepTicks define run durations in fan ticks:
	// level n runs BaseTicks + StepTicks*(n-1).
	BaseTicks int
	StepTicks int
	// IdleThreshold is how many consecutive fully-inactive iterations are
	// tolerated before requesting sleep.
	IdleThreshold int
}

// Controller wires the input and run machines together with the power
// policy. All methods must be called from a single goroutine (the main
// loop); event sources hand their occurrences to Press/TickInput/TickFan.
type Controller struct {
	input *InputMachine
	run   *RunMachine

	// desired is the pending run-state request cell. Written by the input
	// machine (user selection) and by an expiring run countdown (auto-off,
	// which only ever writes RunOff); consumed and cleared only by the run
	// machine poll inside Step.
	desired RunState

	inactive      int
	idleThreshold int
	sleeping      bool

	startTime     time.Time
	lastHeartbeat time.Time
	counts        EventCounts
}

// NewController creates a controller with the given timing configuration.
func NewController(cfg Config, startTime time.Time) *Controller {
	return &Controller{
		input:         NewInputMachine(cfg.WindowTicks),
		run:           NewRunMachine(cfg.BaseTicks, cfg.StepTicks),
		desired:       RunNoState,
		idleThreshold: cfg.IdleThreshold,
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Press registers one debounced button press. Presses arriving while the
// controller is sleeping (the wake transition) are ignored.
func (c *Controller) Press(now time.Time) {
	if c.sleeping {
		return
	}
	c.input.Press()
	c.counts.Presses++
}

// TickInput advances the input window countdown by one input tick.
func (c *Controller) TickInput() {
	c.input.Tick()
}

// TickFan advances the run countdown by one fan tick. When the countdown
// expires this requests shutdown; it is the only writer of the desired cell
// besides the input machine, and it only ever writes RunOff.
func (c *Controller) TickFan() {
	if c.run.Tick() {
		c.desired = RunOff
	}
}

// SetSleeping marks the sleep/wake transition window during which presses
// are discarded.
func (c *Controller) SetSleeping(sleeping bool) {
	c.sleeping = sleeping
}

// Sleeping reports whether the controller is in the sleep transition.
func (c *Controller) Sleeping() bool {
	return c.sleeping
}

// Step runs one main-loop iteration: run machine first, then input machine,
// then the power policy over their combined activity. The run machine goes
// first so a just-expired countdown's off request is applied before the
// input machine can issue a new request in the same iteration.
func (c *Controller) Step(now time.Time) Effects {
	var eff Effects

	prev := c.run.Current()
	rr := c.run.Poll(c.desired)
	c.desired = RunNoState
	eff.Fan = rr.Fan
	eff.ResetFanTick = rr.ResetFanTick
	if rr.Changed {
		cur := c.run.Current()
		if cur.On() {
			c.counts.FanOn++
			eff.Events = append(eff.Events, Event{
				Timestamp: now,
				Type:      EventFanOn,
				Run:       cur,
				Level:     cur.Level(),
				Ticks:     rr.Ticks,
			})
		} else if prev.On() {
			c.counts.FanOff++
			eff.Events = append(eff.Events, Event{
				Timestamp: now,
				Type:      EventFanOff,
				Run:       cur,
			})
		}
	}

	ir := c.input.Poll()
	eff.LED = ir.LED
	eff.Blinks = ir.Blinks
	eff.ResetUITick = ir.WindowOpened
	if ir.Request != RunNoState {
		c.desired = ir.Request
	}
	if ir.WindowOpened {
		c.counts.Windows++
		eff.Events = append(eff.Events, Event{
			Timestamp: now,
			Type:      EventInputOpen,
			Run:       c.run.Current(),
		})
	}

	if rr.Active || ir.Active {
		c.inactive = 0
		return eff
	}
	c.inactive++
	if c.inactive > c.idleThreshold {
		c.inactive = 0
		c.counts.Sleeps++
		eff.Sleep = true
	}
	return eff
}

// CurrentRun returns the active fan state.
func (c *Controller) CurrentRun() RunState {
	return c.run.Current()
}

// UiState returns the input window state.
func (c *Controller) UiState() UiState {
	return c.input.State()
}

// RunTicksRemaining returns the remaining fan run duration in fan ticks.
func (c *Controller) RunTicksRemaining() int {
	return c.run.TicksRemaining()
}

// Counts returns a snapshot of the event counters.
func (c *Controller) Counts() EventCounts {
	return c.counts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since
// the last heartbeat (or startup). Returns nil if the interval has not
// elapsed or if interval is <= 0 (disabled).
func (c *Controller) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}
	if now.Sub(c.lastHeartbeat) < interval {
		return nil
	}
	c.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(c.startTime),
		Counts:    c.counts,
	}
}
