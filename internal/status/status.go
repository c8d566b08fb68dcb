// Package status provides a thread-safe status tracker for the skate-dryer
// daemon. It is read by HTTP handlers and system event payloads.
package status

import (
	"sync"
	"time"

	"github.com/ml8/skate-dryer/internal/logic"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs        int64
	DebounceMs    int64
	HeartbeatMs   int64
	WindowTickMs  int64
	FanTickMs     int64
	BaseTicks     int
	StepTicks     int
	IdleThreshold int
	Broker        string
	HTTPAddr      string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	Run           logic.RunState
	Ui            logic.UiState
	RunTicks      int
	Sleeping      bool
	Counts        logic.EventCounts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Run:       logic.RunOff,
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets run state, window state, remaining run ticks, and counters.
// Called from runLoop on every poll.
func (t *Tracker) Update(run logic.RunState, ui logic.UiState, runTicks int, counts logic.EventCounts) {
	t.mu.Lock()
	t.snap.Run = run
	t.snap.Ui = ui
	t.snap.RunTicks = runTicks
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetSleeping sets whether the loop is parked waiting for a button press.
func (t *Tracker) SetSleeping(sleeping bool) {
	t.mu.Lock()
	t.snap.Sleeping = sleeping
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
