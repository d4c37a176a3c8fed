package sensor

import (
	"errors"
	"fmt"
)

// DefaultTareSamples is how many conversions are averaged for the zero point.
const DefaultTareSamples = 15

// Scale converts raw conversions from a Device into grams.
type Scale struct {
	dev           Device
	referenceUnit float64
	offset        float64
}

// NewScale resets the device and tares it with nothing on the load cell.
// Any failure here is a startup fault: the device is closed and the error
// wraps ErrSensorFault or ErrNotReady.
func NewScale(dev Device, referenceUnit float64) (*Scale, error) {
	if referenceUnit == 0 {
		dev.Close()
		return nil, fmt.Errorf("%w: reference unit must be non-zero", ErrSensorFault)
	}

	s := &Scale{dev: dev, referenceUnit: referenceUnit}
	if err := dev.Reset(); err != nil {
		dev.Close()
		return nil, fmt.Errorf("%w: reset: %w", ErrSensorFault, err)
	}
	if err := s.Tare(DefaultTareSamples); err != nil {
		dev.Close()
		return nil, err
	}
	return s, nil
}

// Tare records the current raw average as the zero point.
func (s *Scale) Tare(samples int) error {
	avg, err := s.averageRaw(samples)
	if err != nil {
		return fmt.Errorf("tare: %w", err)
	}
	s.offset = avg
	return nil
}

// Weight returns the mean of the successful samples in grams.
// It fails only when every sample fails.
func (s *Scale) Weight(samples int) (float64, error) {
	avg, err := s.averageRaw(samples)
	if err != nil {
		return 0, err
	}
	return (avg - s.offset) / s.referenceUnit, nil
}

// Ready reports whether the device has a conversion available.
func (s *Scale) Ready() bool {
	return s.dev.Ready()
}

// Close powers the device down and releases it.
func (s *Scale) Close() error {
	var errs []error
	if err := s.dev.PowerDown(); err != nil {
		errs = append(errs, fmt.Errorf("power down: %w", err))
	}
	if err := s.dev.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Scale) averageRaw(samples int) (float64, error) {
	if samples < 1 {
		samples = 1
	}

	var (
		sum     float64
		n       int
		lastErr error
	)
	for i := 0; i < samples; i++ {
		raw, err := s.dev.ReadRaw()
		if err != nil {
			lastErr = err
			continue
		}
		sum += float64(raw)
		n++
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: %w", ErrSensorFault, lastErr)
	}
	return sum / float64(n), nil
}
