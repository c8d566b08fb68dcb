// Package logic contains pure business logic for the one-button dryer
// controller. This package has NO external dependencies (no GPIO, MQTT, OS,
// or time.Sleep). Ticks and time are always injected by the caller.
package logic

import "time"

// RunState is the fan run state. RunNoState is the sentinel used in the
// desired-state cell to mean "no pending request"; the current state is never
// RunNoState after init.
type RunState int

const (
	RunNoState RunState = iota
	RunOff
	RunShort
	RunMed
	RunLong
)

// RunLevels is the number of selectable run levels (short, med, long).
const RunLevels = 3

// String returns the wire/display name of the state.
func (s RunState) String() string {
	switch s {
	case RunNoState:
		return "NO_STATE"
	case RunOff:
		return "OFF"
	case RunShort:
		return "SHORT"
	case RunMed:
		return "MED"
	case RunLong:
		return "LONG"
	}
	return "INVALID"
}

// On reports whether the state is a running (fan on) state.
func (s RunState) On() bool {
	return s >= RunShort && s <= RunLong
}

// Level returns the run level (1..RunLevels) for an on-state, 0 otherwise.
func (s RunState) Level() int {
	if !s.On() {
		return 0
	}
	return int(s-RunShort) + 1
}

// RunStateForLevel maps a run level 1..RunLevels to RunShort..RunLong.
// Level 0 maps to RunOff.
func RunStateForLevel(level int) RunState {
	if level <= 0 {
		return RunOff
	}
	if level > RunLevels {
		level = RunLevels
	}
	return RunShort + RunState(level-1)
}

// LevelForPresses resolves the number of presses registered in one input
// window to a run level. The first press only opened the window; it does not
// count toward the level. The level is capped at RunLevels.
func LevelForPresses(presses int) int {
	if presses <= 1 {
		return 0
	}
	level := presses - 1
	if level > RunLevels {
		level = RunLevels
	}
	return level
}

// UiState is the input window state.
type UiState int

const (
	UiOff UiState = iota
	UiInput
	UiTimeout
)

// String returns the display name of the state.
func (s UiState) String() string {
	switch s {
	case UiOff:
		return "OFF"
	case UiInput:
		return "INPUT"
	case UiTimeout:
		return "TIMEOUT"
	}
	return "INVALID"
}

// uiTimerDisabled is the sentinel for "input window timer not armed".
const uiTimerDisabled = -1

// EventType identifies a controller event to be published.
type EventType string

const (
	EventInputOpen EventType = "INPUT_OPEN"
	EventFanOn     EventType = "FAN_ON"
	EventFanOff    EventType = "FAN_OFF"
)

// Event is a controller event to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Run       RunState // run state after the event
	Level     int      // FAN_ON only: selected run level 1..RunLevels
	Ticks     int      // FAN_ON only: planned run duration in fan ticks
}

// OutputAction is a requested change to an output line. OutputNone means
// leave the line alone.
type OutputAction int

const (
	OutputNone OutputAction = iota
	OutputOn
	OutputOff
)

// Effects is what one controller step asks the caller to do. Outputs are
// only ever written through Effects, never from event sources.
type Effects struct {
	Fan          OutputAction
	LED          OutputAction
	Blinks       int  // acknowledgment blinks to run after the LED change
	ResetUITick  bool // restart the input-window tick phase
	ResetFanTick bool // restart the fan tick phase
	Sleep        bool // park until the next button press
	Events       []Event
}

// EventCounts tracks controller activity since startup.
type EventCounts struct {
	Presses int
	Windows int
	FanOn   int
	FanOff  int
	Sleeps  int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
