// Package servo drives the cup-tilting servo.
// The Controller holds the motion logic; a Driver turns angles into pulses.
// The real driver uses the Linux PWM sysfs interface, the fake records commands.
package servo

import (
	"context"
	"errors"
	"time"
)

// Actuator moves the cup.
type Actuator interface {
	// MoveTo commands an angle and waits settle for the horn to get there.
	MoveTo(ctx context.Context, angle float64, settle time.Duration) error

	// Rotate prepares an interruptible sweep from max to min angle over duration.
	// Nothing moves until the first call to Next.
	Rotate(duration time.Duration) Rotation

	// Park returns the cup upright (max angle) and removes drive power.
	Park(ctx context.Context, gradual bool) error

	// Close releases the PWM channel.
	Close() error
}

// Rotation is a sweep consumed one angle step at a time.
type Rotation interface {
	// Next moves to the next angle and returns it. ok is false once the sweep
	// has finished or was cancelled.
	Next(ctx context.Context) (angle int, ok bool, err error)

	// Cancel stops the sweep; later Next calls issue no further steps.
	Cancel()
}

// Driver converts angles into servo drive signals.
type Driver interface {
	SetAngle(angle float64) error
	// Detach stops the drive signal so the servo neither heats nor hums.
	Detach() error
	Close() error
}

// ErrActuatorFault marks a failed servo command.
var ErrActuatorFault = errors.New("actuator fault")

// Defaults for an SG90-class servo on BCM 12 (PWM0).
const (
	DefaultPin      = 12
	DefaultMinAngle = -90
	DefaultMaxAngle = 90
	DefaultMinPulse = 500 * time.Microsecond
	DefaultMaxPulse = 2400 * time.Microsecond
)
