// Package metrics exposes control loop counters and gauges to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sweeney/hydration-cup/internal/logic"
)

// Metrics holds the collectors updated by the monitoring loop.
type Metrics struct {
	readings           prometheus.Counter
	sensorFaults       prometheus.Counter
	actuatorFaults     prometheus.Counter
	logFaults          prometheus.Counter
	intakes            prometheus.Counter
	alerts             prometheus.Counter
	alertsAcknowledged prometheus.Counter
	weight             prometheus.Gauge
	state              prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		readings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hydration_weight_readings_total",
			Help: "Weight readings taken from the load cell.",
		}),
		sensorFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hydration_sensor_faults_total",
			Help: "Weight reads that failed and fell back to the last good weight.",
		}),
		actuatorFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hydration_actuator_faults_total",
			Help: "Servo commands that failed.",
		}),
		logFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hydration_log_faults_total",
			Help: "Weight log appends that failed.",
		}),
		intakes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hydration_intakes_detected_total",
			Help: "Drinks detected while monitoring.",
		}),
		alerts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hydration_alerts_total",
			Help: "Alerts started after a monitoring timeout.",
		}),
		alertsAcknowledged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hydration_alerts_acknowledged_total",
			Help: "Alerts interrupted by a drink.",
		}),
		weight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hydration_weight_grams",
			Help: "Most recent weight on the load cell.",
		}),
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hydration_state",
			Help: "Current state: 0 idle, 1 monitoring, 2 alerting.",
		}),
	}

	reg.MustRegister(
		m.readings, m.sensorFaults, m.actuatorFaults, m.logFaults,
		m.intakes, m.alerts, m.alertsAcknowledged, m.weight, m.state,
	)
	return m
}

// ObserveWeight records a successful reading.
func (m *Metrics) ObserveWeight(grams float64) {
	m.readings.Inc()
	m.weight.Set(grams)
}

// SensorFault counts a failed weight read.
func (m *Metrics) SensorFault() { m.sensorFaults.Inc() }

// ActuatorFault counts a failed servo command.
func (m *Metrics) ActuatorFault() { m.actuatorFaults.Inc() }

// LogFault counts a failed weight log append.
func (m *Metrics) LogFault() { m.logFaults.Inc() }

// IntakeDetected counts a drink seen while monitoring.
func (m *Metrics) IntakeDetected() { m.intakes.Inc() }

// AlertStarted counts an alert sweep.
func (m *Metrics) AlertStarted() { m.alerts.Inc() }

// AlertAcknowledged counts an alert ended by a drink.
func (m *Metrics) AlertAcknowledged() { m.alertsAcknowledged.Inc() }

// SetState publishes the current state as a number.
func (m *Metrics) SetState(s logic.StateName) {
	switch s {
	case logic.StateMonitoring:
		m.state.Set(1)
	case logic.StateAlerting:
		m.state.Set(2)
	default:
		m.state.Set(0)
	}
}
