package logic

// InputMachine implements the input window: a press opens a timed window,
// further presses within the window select the run level, and the window
// timeout resolves the selection.
type InputMachine struct {
	state       UiState
	presses     int // presses buffered since the window opened
	uiTimer     int // remaining window ticks; uiTimerDisabled when not armed
	windowTicks int
}

// NewInputMachine creates an input machine whose window lasts windowTicks
// ticks of the input tick source.
func NewInputMachine(windowTicks int) *InputMachine {
	return &InputMachine{
		state:       UiOff,
		uiTimer:     uiTimerDisabled,
		windowTicks: windowTicks,
	}
}

// Press buffers one button press. Safe to call in any state; presses
// arriving between the window timeout and the next poll count toward the
// next window rather than being lost.
func (m *InputMachine) Press() {
	m.presses++
}

// Tick advances the window countdown by one input tick. A disabled timer is
// never decremented.
func (m *InputMachine) Tick() {
	if m.uiTimer > 0 {
		m.uiTimer--
	}
}

// State returns the current window state.
func (m *InputMachine) State() UiState {
	return m.state
}

// InputResult is the outcome of one input machine poll.
type InputResult struct {
	Active       bool
	Request      RunState // requested run state; RunNoState if none
	LED          OutputAction
	Blinks       int  // acknowledgment blinks for the selected level
	WindowOpened bool // a new input window opened this poll
}

// Poll advances the machine by one main-loop iteration.
func (m *InputMachine) Poll() InputResult {
	switch m.state {
	case UiOff:
		if m.presses > 0 {
			m.state = UiInput
			m.uiTimer = m.windowTicks
			return InputResult{Active: true, LED: OutputOn, WindowOpened: true}
		}
		return InputResult{}

	case UiInput:
		if m.uiTimer == 0 {
			m.uiTimer = uiTimerDisabled
			m.state = UiTimeout
			// Speculatively active; the decision lands next poll.
			return InputResult{Active: true}
		}
		return InputResult{}

	case UiTimeout:
		res := InputResult{LED: OutputOff}
		if m.presses > 1 {
			level := LevelForPresses(m.presses)
			if level > 0 {
				res.Request = RunStateForLevel(level)
			}
			res.Blinks = level
			res.Active = true
		} else {
			// No selection beyond the opening press: request off.
			res.Request = RunOff
		}
		m.presses = 0
		m.state = UiOff
		return res
	}
	panic("logic: invalid ui state")
}
