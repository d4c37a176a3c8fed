package logic

import "time"

// Machine tracks the hydration state and the monitoring timer.
type Machine struct {
	duration time.Duration
	state    HydrationState
}

// NewMachine creates a machine in Idle with the given monitoring duration.
func NewMachine(duration time.Duration) *Machine {
	return &Machine{
		duration: duration,
		state:    Idle{},
	}
}

// State returns the current state value.
func (m *Machine) State() HydrationState {
	return m.state
}

// Name returns the current state name.
func (m *Machine) Name() StateName {
	return m.state.Name()
}

// EnterMonitoring starts a fresh monitoring session at now.
// It always restarts the timer, so it must not be used to check state.
func (m *Machine) EnterMonitoring(referenceWeight float64, now time.Time) {
	m.state = Monitoring{Session: MonitoringSession{
		ReferenceWeight: referenceWeight,
		StartedAt:       now,
		Duration:        m.duration,
	}}
}

// EnterAlerting switches to Alerting and drops the monitoring session.
func (m *Machine) EnterAlerting() {
	m.state = Alerting{}
}

// EnterIdle switches to Idle and drops the monitoring session.
func (m *Machine) EnterIdle() {
	m.state = Idle{}
}

// ResetTimer returns to Monitoring with a new reference weight and a timer
// restarted at now, whatever the prior state.
func (m *Machine) ResetTimer(newReferenceWeight float64, now time.Time) {
	m.EnterMonitoring(newReferenceWeight, now)
}

// Session returns the active monitoring session, if any.
func (m *Machine) Session() (MonitoringSession, bool) {
	mon, ok := m.state.(Monitoring)
	if !ok {
		return MonitoringSession{}, false
	}
	return mon.Session, true
}

// ReferenceWeight returns the session reference weight while Monitoring.
func (m *Machine) ReferenceWeight() (float64, bool) {
	s, ok := m.Session()
	return s.ReferenceWeight, ok
}

// Elapsed returns time since the session started, or 0 outside Monitoring.
// A clock stepping backwards yields 0 rather than a negative duration.
func (m *Machine) Elapsed(now time.Time) time.Duration {
	s, ok := m.Session()
	if !ok {
		return 0
	}
	elapsed := now.Sub(s.StartedAt)
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// Remaining returns max(0, duration - elapsed), or 0 outside Monitoring.
func (m *Machine) Remaining(now time.Time) time.Duration {
	s, ok := m.Session()
	if !ok {
		return 0
	}
	remaining := s.Duration - m.Elapsed(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsTimedOut reports whether a monitoring session has run its full duration.
// This is the only trigger for escalating to Alerting.
func (m *Machine) IsTimedOut(now time.Time) bool {
	s, ok := m.Session()
	if !ok {
		return false
	}
	return m.Elapsed(now) >= s.Duration
}
