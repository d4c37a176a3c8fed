package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string          `json:"event,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	State         string          `json:"state"`
	WeightG       *float64        `json:"weight_g"`
	Monitoring    *MonitoringJSON `json:"monitoring,omitempty"`
	LastIntake    *IntakeJSON     `json:"last_intake,omitempty"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	StartTime     string          `json:"start_time"`
	Timestamp     string          `json:"timestamp"`
	MQTT          MQTTStatus      `json:"mqtt"`
	Counts        CountsJSON      `json:"event_counts"`
	Network       *NetworkJSON    `json:"network,omitempty"`
	Config        ConfigJSON      `json:"config"`
}

// MonitoringJSON describes the active monitoring session.
type MonitoringJSON struct {
	ReferenceG       float64 `json:"reference_g"`
	StartedAt        string  `json:"started_at"`
	RemainingSeconds int64   `json:"remaining_seconds"`
}

// IntakeJSON describes the most recent detected drink.
type IntakeJSON struct {
	Timestamp string  `json:"timestamp"`
	Grams     float64 `json:"grams"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	CupsPlaced         int `json:"cups_placed"`
	Intakes            int `json:"intakes"`
	Alerts             int `json:"alerts"`
	AlertsAcknowledged int `json:"alerts_acknowledged"`
	AlertsAborted      int `json:"alerts_aborted"`
	SensorFaults       int `json:"sensor_faults"`
	ActuatorFaults     int `json:"actuator_faults"`
	LogFaults          int `json:"log_faults"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	ThresholdG  float64 `json:"weight_threshold_g"`
	MonitoringS int64   `json:"monitoring_duration_s"`
	AlertS      int64   `json:"alert_duration_s"`
	PollMs      int64   `json:"poll_interval_ms"`
	SettleMs    int64   `json:"settle_delay_ms"`
	HeartbeatS  int64   `json:"heartbeat_s"`
	Broker      string  `json:"broker"`
	HTTPAddr    string  `json:"http_addr"`
	LogPath     string  `json:"log_path"`
}

func buildInner(snap Snapshot) StatusInner {
	c := snap.Counts
	inner := StatusInner{
		State:         string(snap.State),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			CupsPlaced:         c.CupsPlaced,
			Intakes:            c.Intakes,
			Alerts:             c.Alerts,
			AlertsAcknowledged: c.AlertsAcknowledged,
			AlertsAborted:      c.AlertsAborted,
			SensorFaults:       c.SensorFaults,
			ActuatorFaults:     c.ActuatorFaults,
			LogFaults:          c.LogFaults,
		},
		Config: ConfigJSON(snap.Config),
	}
	if inner.State == "" {
		inner.State = "UNKNOWN"
	}
	if snap.HasWeight {
		w := snap.LastWeightG
		inner.WeightG = &w
	}
	if s := snap.Session; s != nil {
		inner.Monitoring = &MonitoringJSON{
			ReferenceG:       s.ReferenceWeight,
			StartedAt:        s.StartedAt.UTC().Format(time.RFC3339),
			RemainingSeconds: int64(snap.Remaining().Seconds()),
		}
	}
	if !snap.LastIntake.IsZero() {
		inner.LastIntake = &IntakeJSON{
			Timestamp: snap.LastIntake.UTC().Format(time.RFC3339),
			Grams:     snap.LastIntakeG,
		}
	}
	if n := snap.Network; n != nil {
		inner.Network = &NetworkJSON{
			Type:       n.Type,
			IP:         n.IP,
			Status:     n.Status,
			Gateway:    n.Gateway,
			WifiStatus: n.WifiStatus,
			SSID:       n.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
