// Package sensor provides cup weight reading with hardware abstraction.
// The real implementation drives an HX711 load cell amplifier through the
// Linux GPIO character device. The fake implementation allows testing without hardware.
package sensor

import "errors"

// WeightSensor reads the filtered weight on the load cell.
type WeightSensor interface {
	// Weight averages the given number of samples and returns grams.
	Weight(samples int) (float64, error)

	// Ready reports whether the sensor has a conversion available.
	Ready() bool

	// Close powers the sensor down and releases GPIO resources.
	Close() error
}

// Device is a raw load cell amplifier.
type Device interface {
	// ReadRaw returns one signed 24-bit conversion.
	ReadRaw() (int32, error)
	Ready() bool
	Reset() error
	PowerDown() error
	Close() error
}

var (
	// ErrSensorFault marks a failed weight read.
	ErrSensorFault = errors.New("sensor fault")

	// ErrNotReady marks a sensor that never signalled a conversion.
	ErrNotReady = errors.New("sensor not ready")
)

// Pin definitions (BCM numbering)
const (
	DefaultDataPin  = 5
	DefaultClockPin = 6
)
