// Package mqtt publishes hydration events and system lifecycle messages.
package mqtt

import (
	"encoding/json"
	"math"
	"time"

	"github.com/sweeney/hydration-cup/internal/logic"
)

// Topic is the MQTT topic for hydration events.
const Topic = "home/hydration/cup/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "home/hydration/cup/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a hydration event to the broker.
	// Failures are returned to the caller, which logs and carries on.
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g. "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g. "SIGTERM" (shutdown only)
	RawPayload []byte // pre-formatted JSON; returned as-is by FormatSystemPayload
	Retained   bool
}

// Payload is the MQTT message for a hydration event.
type Payload struct {
	Hydration HydrationPayload `json:"hydration"`
}

// HydrationPayload contains the event details.
type HydrationPayload struct {
	Timestamp  string  `json:"timestamp"`
	Event      string  `json:"event"`
	State      string  `json:"state"`
	WeightG    float64 `json:"weight_g"`
	ReferenceG float64 `json:"reference_g"`
	DiffG      float64 `json:"diff_g"`
}

// FormatPayload creates the JSON payload for a hydration event.
// Weights are rounded to two decimals, matching the weight log.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Hydration: HydrationPayload{
			Timestamp:  event.Timestamp.UTC().Format(time.RFC3339),
			Event:      string(event.Type),
			State:      string(event.State),
			WeightG:    round2(event.WeightG),
			ReferenceG: round2(event.ReferenceG),
			DiffG:      round2(event.DiffG),
		},
	}
	return json.Marshal(payload)
}

// SystemPayload is the message for simple system events (LWT, RECONNECTED)
// that don't carry a status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// NopPublisher discards everything. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(logic.Event) error       { return nil }
func (NopPublisher) PublishSystem(SystemEvent) error { return nil }
func (NopPublisher) Close() error                    { return nil }
func (NopPublisher) IsConnected() bool               { return false }

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
