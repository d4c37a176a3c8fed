package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/hydration-cup/internal/sensor"
	"github.com/sweeney/hydration-cup/internal/servo"
)

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if cfg.Monitoring.WeightThresholdG != 150 {
		t.Fatalf("expected threshold 150, got %v", cfg.Monitoring.WeightThresholdG)
	}
	if cfg.Monitoring.MonitoringDuration() != 25*time.Minute {
		t.Fatalf("expected 25m monitoring, got %s", cfg.Monitoring.MonitoringDuration())
	}
	if cfg.Monitoring.AlertDuration() != 5*time.Minute {
		t.Fatalf("expected 5m alert, got %s", cfg.Monitoring.AlertDuration())
	}
	if cfg.Servo.MinAngle != -90 || cfg.Servo.MaxAngle != 90 {
		t.Fatalf("unexpected servo range %v..%v", cfg.Servo.MinAngle, cfg.Servo.MaxAngle)
	}
	if cfg.MQTT.Heartbeat() != 15*time.Minute {
		t.Fatalf("expected 15m heartbeat, got %s", cfg.MQTT.Heartbeat())
	}
}

func TestDefaultsMatchHardwarePackages(t *testing.T) {
	cfg := Default()
	if cfg.GPIO.ServoPin != servo.DefaultPin {
		t.Errorf("servo pin: got %d, want %d", cfg.GPIO.ServoPin, servo.DefaultPin)
	}
	if cfg.GPIO.SensorDataPin != sensor.DefaultDataPin || cfg.GPIO.SensorClockPin != sensor.DefaultClockPin {
		t.Errorf("sensor pins: got %d/%d", cfg.GPIO.SensorDataPin, cfg.GPIO.SensorClockPin)
	}
	if cfg.Servo.MinPulseUS != 500 || cfg.Servo.MaxPulseUS != 2400 {
		t.Errorf("pulse range: got %d-%dus", cfg.Servo.MinPulseUS, cfg.Servo.MaxPulseUS)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
monitoring:
  weight_threshold_g: 120
  monitoring_duration_s: 60
mqtt:
  broker: tcp://localhost:1883
  heartbeat_s: 0
servo:
  min_angle: 0
  max_angle: 180
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Monitoring.WeightThresholdG != 120 {
		t.Fatalf("expected threshold 120, got %v", cfg.Monitoring.WeightThresholdG)
	}
	if cfg.Monitoring.MonitoringDuration() != time.Minute {
		t.Fatalf("expected 1m monitoring, got %s", cfg.Monitoring.MonitoringDuration())
	}
	// Untouched keys keep their defaults.
	if cfg.Monitoring.AlertDurationS != 300 || cfg.Monitoring.CupWeightG != 205 {
		t.Fatalf("defaults lost: %+v", cfg.Monitoring)
	}
	if cfg.MQTT.Broker != "tcp://localhost:1883" || cfg.MQTT.HeartbeatS != 0 {
		t.Fatalf("unexpected mqtt config: %+v", cfg.MQTT)
	}
	if cfg.Servo.MinAngle != 0 || cfg.Servo.MaxAngle != 180 {
		t.Fatalf("explicit zero angle should be kept, got %v..%v", cfg.Servo.MinAngle, cfg.Servo.MaxAngle)
	}
	if cfg.Log.Path != "./waiting_log/weight_log.csv" {
		t.Fatalf("expected default log path, got %s", cfg.Log.Path)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("load empty config: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("expected default http addr, got %s", cfg.HTTP.Addr)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(writeConfig(t, "monitoring:\n  wieght_threshold_g: 10\n"))
	if err == nil {
		t.Fatal("expected error for misspelt key")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"inverted angles", func(c *Config) { c.Servo.MinAngle = 90; c.Servo.MaxAngle = -90 }, "servo.min_angle"},
		{"bad pulses", func(c *Config) { c.Servo.MaxPulseUS = 100 }, "pulse range"},
		{"zero reference unit", func(c *Config) { c.Sensor.ReferenceUnit = 0 }, "reference_unit"},
		{"no samples", func(c *Config) { c.Sensor.ReadTimes = 0 }, "read_times"},
		{"zero threshold", func(c *Config) { c.Monitoring.WeightThresholdG = 0 }, "weight_threshold_g"},
		{"zero monitoring", func(c *Config) { c.Monitoring.MonitoringDurationS = 0 }, "monitoring_duration_s"},
		{"zero alert", func(c *Config) { c.Monitoring.AlertDurationS = 0 }, "alert_duration_s"},
		{"zero gram_to_ml", func(c *Config) { c.Monitoring.GramToML = 0 }, "gram_to_ml"},
		{"zero poll", func(c *Config) { c.Monitoring.PollIntervalMS = 0 }, "poll_interval_ms"},
		{"no log path", func(c *Config) { c.Log.Path = "" }, "log.path"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"negative heartbeat", func(c *Config) { c.MQTT.HeartbeatS = -1 }, "heartbeat_s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}
