// Package logic contains pure business logic for cup weight monitoring.
// This package has NO external dependencies (no GPIO, servo, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// StateName identifies a hydration state for logging and payloads.
type StateName string

const (
	StateIdle       StateName = "IDLE"
	StateMonitoring StateName = "MONITORING"
	StateAlerting   StateName = "ALERTING"
)

// HydrationState is one of Idle, Monitoring or Alerting.
// Only Monitoring carries a session, so a timer cannot outlive its state.
type HydrationState interface {
	Name() StateName
	isHydrationState()
}

// Idle waits for a cup to be placed.
type Idle struct{}

// Monitoring watches for a drink against the session's reference weight.
type Monitoring struct {
	Session MonitoringSession
}

// Alerting is tilting the cup to nudge the user.
type Alerting struct{}

func (Idle) Name() StateName       { return StateIdle }
func (Monitoring) Name() StateName { return StateMonitoring }
func (Alerting) Name() StateName   { return StateAlerting }

func (Idle) isHydrationState()       {}
func (Monitoring) isHydrationState() {}
func (Alerting) isHydrationState()   {}

// MonitoringSession is the timer and reference for one monitoring period.
type MonitoringSession struct {
	// Last stable weight observed when entering Monitoring
	ReferenceWeight float64
	StartedAt       time.Time
	Duration        time.Duration
}

// WeightReading is a single filtered sample from the weight sensor.
type WeightReading struct {
	Timestamp time.Time
	Grams     float64
}

// LogRecord is one line of the weight log.
type LogRecord struct {
	Timestamp time.Time
	WeightG   float64
}

// IntakeEvent is an inferred drink (or refill) with its estimated volume.
type IntakeEvent struct {
	Time     time.Time
	AmountML int
}

// ClassifyParams controls the conversion of weight deltas to volumes.
type ClassifyParams struct {
	CupWeightG float64
	GramToML   float64
}

// DefaultClassifyParams matches the stock 205 g cup filled with water.
func DefaultClassifyParams() ClassifyParams {
	return ClassifyParams{CupWeightG: 205, GramToML: 1.0}
}

// EventType names a transition or observation published by the monitoring loop.
type EventType string

const (
	EventCupPlaced         EventType = "CUP_PLACED"
	EventIntakeDetected    EventType = "INTAKE_DETECTED"
	EventMonitoringStarted EventType = "MONITORING_STARTED"
	EventMonitoringReset   EventType = "MONITORING_RESET"
	EventTimeout           EventType = "TIMEOUT"
	EventAlertStarted      EventType = "ALERT_STARTED"
	EventAlertAcknowledged EventType = "ALERT_ACKNOWLEDGED"
	EventAlertCompleted    EventType = "ALERT_COMPLETED"
	EventAlertAborted      EventType = "ALERT_ABORTED"
)

// Event is something the loop observed, with the weights that caused it.
type Event struct {
	Timestamp  time.Time
	Type       EventType
	State      StateName
	WeightG    float64
	ReferenceG float64
	DiffG      float64
}
