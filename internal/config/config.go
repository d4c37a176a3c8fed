// Package config loads the daemon configuration from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/hydration-cup/internal/logger"
	"github.com/sweeney/hydration-cup/internal/sensor"
	"github.com/sweeney/hydration-cup/internal/servo"
)

// Config is the complete daemon configuration.
type Config struct {
	GPIO       GPIOConfig       `yaml:"gpio"`
	Servo      ServoConfig      `yaml:"servo"`
	Sensor     SensorConfig     `yaml:"sensor"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Log        LogConfig        `yaml:"log"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	HTTP       HTTPConfig       `yaml:"http"`
}

// GPIOConfig names the GPIO chip and BCM pins.
type GPIOConfig struct {
	Chip           string `yaml:"chip"`
	ServoPin       int    `yaml:"servo_pin"`
	SensorDataPin  int    `yaml:"sensor_data_pin"`
	SensorClockPin int    `yaml:"sensor_clock_pin"`
}

// ServoConfig describes the servo travel and its PWM channel.
type ServoConfig struct {
	MinAngle   int `yaml:"min_angle"`
	MaxAngle   int `yaml:"max_angle"`
	MinPulseUS int `yaml:"min_pulse_us"`
	MaxPulseUS int `yaml:"max_pulse_us"`
	PWMChip    int `yaml:"pwm_chip"`
	PWMChannel int `yaml:"pwm_channel"`
}

// SensorConfig calibrates the load cell.
type SensorConfig struct {
	ReferenceUnit float64 `yaml:"reference_unit"`
	ReadTimes     int     `yaml:"read_times"`
}

// MonitoringConfig holds the loop thresholds and timings.
type MonitoringConfig struct {
	WeightThresholdG    float64 `yaml:"weight_threshold_g"`
	MonitoringDurationS int     `yaml:"monitoring_duration_s"`
	AlertDurationS      int     `yaml:"alert_duration_s"`
	CupWeightG          float64 `yaml:"cup_weight_g"`
	GramToML            float64 `yaml:"gram_to_ml"`
	PollIntervalMS      int     `yaml:"poll_interval_ms"`
	SettleDelayMS       int     `yaml:"settle_delay_ms"`
}

// LogConfig locates the weight log and sets the log level.
type LogConfig struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// MQTTConfig selects the broker. An empty broker disables MQTT.
type MQTTConfig struct {
	Broker     string `yaml:"broker"`
	HeartbeatS int    `yaml:"heartbeat_s"`
}

// HTTPConfig sets the status server address. Empty disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the stock configuration for the Raspberry Pi build.
func Default() Config {
	return Config{
		GPIO: GPIOConfig{
			Chip:           "gpiochip0",
			ServoPin:       servo.DefaultPin,
			SensorDataPin:  sensor.DefaultDataPin,
			SensorClockPin: sensor.DefaultClockPin,
		},
		Servo: ServoConfig{
			MinAngle:   servo.DefaultMinAngle,
			MaxAngle:   servo.DefaultMaxAngle,
			MinPulseUS: int(servo.DefaultMinPulse / time.Microsecond),
			MaxPulseUS: int(servo.DefaultMaxPulse / time.Microsecond),
		},
		Sensor: SensorConfig{
			ReferenceUnit: 717,
			ReadTimes:     5,
		},
		Monitoring: MonitoringConfig{
			WeightThresholdG:    150,
			MonitoringDurationS: 1500,
			AlertDurationS:      300,
			CupWeightG:          205,
			GramToML:            1.0,
			PollIntervalMS:      1000,
			SettleDelayMS:       2000,
		},
		Log: LogConfig{
			Path:  "./waiting_log/weight_log.csv",
			Level: logger.InfoLevel,
		},
		MQTT: MQTTConfig{HeartbeatS: 900},
		HTTP: HTTPConfig{Addr: ":8080"},
	}
}

// Load reads path and overlays it on Default. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return &cfg, cfg.Validate()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := decode(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decode(raw []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	m := c.Monitoring
	switch {
	case c.GPIO.Chip == "":
		return errors.New("gpio.chip is required")
	case c.Servo.MinAngle >= c.Servo.MaxAngle:
		return fmt.Errorf("servo.min_angle (%v) must be below servo.max_angle (%v)", c.Servo.MinAngle, c.Servo.MaxAngle)
	case c.Servo.MinPulseUS <= 0 || c.Servo.MinPulseUS >= c.Servo.MaxPulseUS:
		return fmt.Errorf("servo pulse range %d-%dus is invalid", c.Servo.MinPulseUS, c.Servo.MaxPulseUS)
	case c.Sensor.ReferenceUnit == 0:
		return errors.New("sensor.reference_unit must be non-zero")
	case c.Sensor.ReadTimes < 1:
		return errors.New("sensor.read_times must be at least 1")
	case m.WeightThresholdG <= 0:
		return errors.New("monitoring.weight_threshold_g must be positive")
	case m.MonitoringDurationS <= 0:
		return errors.New("monitoring.monitoring_duration_s must be positive")
	case m.AlertDurationS <= 0:
		return errors.New("monitoring.alert_duration_s must be positive")
	case m.CupWeightG < 0:
		return errors.New("monitoring.cup_weight_g must not be negative")
	case m.GramToML <= 0:
		return errors.New("monitoring.gram_to_ml must be positive")
	case m.PollIntervalMS <= 0:
		return errors.New("monitoring.poll_interval_ms must be positive")
	case m.SettleDelayMS < 0:
		return errors.New("monitoring.settle_delay_ms must not be negative")
	case c.Log.Path == "":
		return errors.New("log.path is required")
	case !logger.ValidLevel(c.Log.Level):
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	case c.MQTT.HeartbeatS < 0:
		return errors.New("mqtt.heartbeat_s must not be negative")
	}
	return nil
}

// MonitoringDuration is how long without a drink before alerting.
func (m MonitoringConfig) MonitoringDuration() time.Duration {
	return time.Duration(m.MonitoringDurationS) * time.Second
}

// AlertDuration is the length of the alert sweep.
func (m MonitoringConfig) AlertDuration() time.Duration {
	return time.Duration(m.AlertDurationS) * time.Second
}

// PollInterval is the wait between weight samples.
func (m MonitoringConfig) PollInterval() time.Duration {
	return time.Duration(m.PollIntervalMS) * time.Millisecond
}

// SettleDelay is the wait before taking a stabilized weight.
func (m MonitoringConfig) SettleDelay() time.Duration {
	return time.Duration(m.SettleDelayMS) * time.Millisecond
}

// Heartbeat is the system heartbeat period; 0 disables it.
func (m MQTTConfig) Heartbeat() time.Duration {
	return time.Duration(m.HeartbeatS) * time.Second
}
