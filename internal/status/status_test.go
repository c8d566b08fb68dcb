package status

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ml8/skate-dryer/internal/logic"
)

var startTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testConfig() Config {
	return Config{
		PollMs:        10,
		DebounceMs:    100,
		HeartbeatMs:   900000,
		WindowTickMs:  2000,
		FanTickMs:     3000,
		BaseTicks:     20,
		StepTicks:     20,
		IdleThreshold: 255,
		Broker:        "tcp://broker:1883",
		HTTPAddr:      ":80",
	}
}

func TestTrackerInitialSnapshot(t *testing.T) {
	tr := NewTracker(startTime, testConfig())
	snap := tr.Snapshot()
	if snap.Run != logic.RunOff {
		t.Errorf("run = %v, want OFF", snap.Run)
	}
	if snap.Sleeping || snap.MQTTConnected {
		t.Error("fresh tracker should not be sleeping or connected")
	}
	if !snap.StartTime.Equal(startTime) {
		t.Errorf("start time = %v, want %v", snap.StartTime, startTime)
	}
	if snap.Config.Broker != "tcp://broker:1883" {
		t.Errorf("config broker = %q", snap.Config.Broker)
	}
}

func TestTrackerUpdate(t *testing.T) {
	tr := NewTracker(startTime, testConfig())
	counts := logic.EventCounts{Presses: 4, Windows: 2, FanOn: 1}
	tr.Update(logic.RunMed, logic.UiOff, 35, counts)
	tr.SetSleeping(true)
	tr.SetMQTTConnected(true)
	tr.SetNetwork(&NetworkInfo{Type: "wifi", IP: "192.168.1.50", Status: "connected"})

	snap := tr.Snapshot()
	if snap.Run != logic.RunMed || snap.RunTicks != 35 {
		t.Errorf("run = %v/%d, want MED/35", snap.Run, snap.RunTicks)
	}
	if snap.Counts != counts {
		t.Errorf("counts = %+v, want %+v", snap.Counts, counts)
	}
	if !snap.Sleeping || !snap.MQTTConnected {
		t.Error("sleeping/connected flags not set")
	}
	if snap.Network == nil || snap.Network.IP != "192.168.1.50" {
		t.Errorf("network = %+v", snap.Network)
	}
}

func TestSnapshotUptime(t *testing.T) {
	snap := Snapshot{StartTime: startTime, Now: startTime.Add(90 * time.Second)}
	if got := snap.Uptime(); got != 90*time.Second {
		t.Errorf("uptime = %v, want 90s", got)
	}
}

func TestFormatJSON(t *testing.T) {
	snap := Snapshot{
		Run:       logic.RunShort,
		Ui:        logic.UiInput,
		RunTicks:  12,
		Counts:    logic.EventCounts{Presses: 2, Windows: 1, FanOn: 1},
		StartTime: startTime,
		Now:       startTime.Add(time.Hour),
		Config:    testConfig(),
	}
	data := FormatJSON(snap)

	var parsed struct {
		Status struct {
			Event         string `json:"event"`
			Fan           string `json:"fan"`
			Input         string `json:"input"`
			RunTicks      int    `json:"run_ticks"`
			UptimeSeconds int64  `json:"uptime_seconds"`
			Timestamp     string `json:"timestamp"`
			MQTT          struct {
				Connected bool   `json:"connected"`
				Broker    string `json:"broker"`
			} `json:"mqtt"`
			Counts struct {
				Presses int `json:"presses"`
			} `json:"event_counts"`
			Network *struct{} `json:"network"`
			Config  struct {
				FanTickMs int64 `json:"fan_tick_ms"`
			} `json:"config"`
		} `json:"status"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("output does not parse: %v\n%s", err, data)
	}
	s := parsed.Status
	if s.Event != "" {
		t.Errorf("web JSON should carry no event field, got %q", s.Event)
	}
	if s.Fan != "SHORT" || s.Input != "INPUT" || s.RunTicks != 12 {
		t.Errorf("fan=%q input=%q run_ticks=%d", s.Fan, s.Input, s.RunTicks)
	}
	if s.UptimeSeconds != 3600 {
		t.Errorf("uptime_seconds = %d, want 3600", s.UptimeSeconds)
	}
	if s.Timestamp != "2025-06-01T13:00:00Z" {
		t.Errorf("timestamp = %q", s.Timestamp)
	}
	if s.MQTT.Broker != "tcp://broker:1883" {
		t.Errorf("broker = %q", s.MQTT.Broker)
	}
	if s.Counts.Presses != 2 {
		t.Errorf("presses = %d, want 2", s.Counts.Presses)
	}
	if s.Network != nil {
		t.Error("network should be omitted when absent")
	}
	if s.Config.FanTickMs != 3000 {
		t.Errorf("fan_tick_ms = %d, want 3000", s.Config.FanTickMs)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	snap := Snapshot{
		Run:       logic.RunOff,
		StartTime: startTime,
		Now:       startTime.Add(time.Minute),
		Network:   &NetworkInfo{Type: "wifi", Status: "connected", SSID: "rink"},
		Config:    testConfig(),
	}
	data := FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM")

	var parsed struct {
		Status struct {
			Event   string `json:"event"`
			Reason  string `json:"reason"`
			Network *struct {
				SSID string `json:"ssid"`
			} `json:"network"`
		} `json:"status"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("output does not parse: %v\n%s", err, data)
	}
	if parsed.Status.Event != "SHUTDOWN" || parsed.Status.Reason != "SIGTERM" {
		t.Errorf("event/reason = %q/%q", parsed.Status.Event, parsed.Status.Reason)
	}
	if parsed.Status.Network == nil || parsed.Status.Network.SSID != "rink" {
		t.Errorf("network = %+v", parsed.Status.Network)
	}
}
