// Package status provides a thread-safe snapshot of the hydration monitor
// for HTTP handlers and heartbeat messages.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/hydration-cup/internal/logic"
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
	ThresholdG  float64
	MonitoringS int64
	AlertS      int64
	PollMs      int64
	SettleMs    int64
	HeartbeatS  int64
	Broker      string
	HTTPAddr    string
	LogPath     string
}

// Counts tallies what the loop has seen since startup.
type Counts struct {
	CupsPlaced         int
	Intakes            int
	Alerts             int
	AlertsAcknowledged int
	AlertsAborted      int
	SensorFaults       int
	ActuatorFaults     int
	LogFaults          int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	State       logic.StateName
	Session     *logic.MonitoringSession // nil unless monitoring
	LastWeightG float64
	HasWeight   bool
	LastIntake  time.Time
	LastIntakeG float64
	Counts      Counts

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

// Remaining returns how long until the current monitoring period times out,
// or 0 when not monitoring.
func (s Snapshot) Remaining() time.Duration {
	if s.Session == nil {
		return 0
	}
	elapsed := max(s.Now.Sub(s.Session.StartedAt), 0)
	return max(s.Session.Duration-elapsed, 0)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
// now stamps snapshots; nil means time.Now.
func NewTracker(startTime time.Time, cfg Config, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		snap: Snapshot{
			State:     logic.StateIdle,
			StartTime: startTime,
			Config:    cfg,
		},
		now: now,
	}
}

// SetState records the current hydration state and its session, if any.
func (t *Tracker) SetState(s logic.HydrationState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.State = s.Name()
	t.snap.Session = nil
	if m, ok := s.(logic.Monitoring); ok {
		session := m.Session
		t.snap.Session = &session
	}
}

// SetWeight records the latest weight reading.
func (t *Tracker) SetWeight(grams float64) {
	t.mu.Lock()
	t.snap.LastWeightG = grams
	t.snap.HasWeight = true
	t.mu.Unlock()
}

// RecordIntake records a detected drink of grams at the given time.
func (t *Tracker) RecordIntake(at time.Time, grams float64) {
	t.mu.Lock()
	t.snap.LastIntake = at
	t.snap.LastIntakeG = grams
	t.snap.Counts.Intakes++
	t.mu.Unlock()
}

// Count applies fn to the counters under the lock.
func (t *Tracker) Count(fn func(*Counts)) {
	t.mu.Lock()
	fn(&t.snap.Counts)
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
// The Now field is set at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	if s.Session != nil {
		session := *s.Session
		s.Session = &session
	}
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
