package logic

// RunMachine holds the active fan state and its countdown. It is the sole
// consumer of desired-state requests; the countdown is advanced by the fan
// tick source.
type RunMachine struct {
	current   RunState
	runTimer  int // remaining fan ticks; 0 when the fan is off
	baseTicks int
	stepTicks int
}

// NewRunMachine creates a run machine. A level-n run lasts
// baseTicks + stepTicks*(n-1) fan ticks.
func NewRunMachine(baseTicks, stepTicks int) *RunMachine {
	return &RunMachine{
		current:   RunOff,
		baseTicks: baseTicks,
		stepTicks: stepTicks,
	}
}

// Current returns the active run state.
func (m *RunMachine) Current() RunState {
	return m.current
}

// TicksRemaining returns the remaining run duration in fan ticks.
func (m *RunMachine) TicksRemaining() int {
	return m.runTimer
}

// Tick advances the run countdown by one fan tick. It reports true exactly
// when the countdown reaches zero as a result, which is the caller's cue to
// request shutdown.
func (m *RunMachine) Tick() bool {
	if m.runTimer > 0 {
		m.runTimer--
		if m.runTimer == 0 {
			return true
		}
	}
	return false
}

// RunResult is the outcome of one run machine poll.
type RunResult struct {
	Active       bool
	Changed      bool // a desired-state request was consumed
	Fan          OutputAction
	ResetFanTick bool
	Ticks        int // planned run duration when entering an on-state
}

// Poll applies a pending desired-state request, if any. A RunNoState request
// is a no-op with respect to state, countdown, and outputs.
func (m *RunMachine) Poll(desired RunState) RunResult {
	if desired == RunNoState {
		return RunResult{Active: m.current.On()}
	}

	m.current = desired
	if m.current == RunOff {
		m.runTimer = 0
		return RunResult{Changed: true, Fan: OutputOff}
	}

	if !m.current.On() {
		panic("logic: invalid run state request")
	}
	m.runTimer = m.baseTicks + m.stepTicks*(m.current.Level()-1)
	return RunResult{
		Active:       true,
		Changed:      true,
		Fan:          OutputOn,
		ResetFanTick: true,
		Ticks:        m.runTimer,
	}
}
