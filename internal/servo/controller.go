package servo

import (
	"context"
	"fmt"
	"time"

	"github.com/sweeney/hydration-cup/internal/clock"
)

const (
	// stepMoveTime is how long each rotation step keeps drive power on.
	stepMoveTime = 100 * time.Millisecond

	parkSettle        = time.Second
	gradualStepSettle = 500 * time.Millisecond
)

// Controller implements Actuator on top of a Driver.
type Controller struct {
	driver   Driver
	clock    clock.Clock
	minAngle int
	maxAngle int
}

// NewController creates a controller sweeping between minAngle and maxAngle.
func NewController(driver Driver, clk clock.Clock, minAngle, maxAngle int) (*Controller, error) {
	if minAngle >= maxAngle {
		return nil, fmt.Errorf("servo: min angle %d must be below max angle %d", minAngle, maxAngle)
	}
	return &Controller{
		driver:   driver,
		clock:    clk,
		minAngle: minAngle,
		maxAngle: maxAngle,
	}, nil
}

// MoveTo commands angle and waits settle.
func (c *Controller) MoveTo(ctx context.Context, angle float64, settle time.Duration) error {
	if err := c.driver.SetAngle(angle); err != nil {
		return fmt.Errorf("%w: set angle %.0f: %w", ErrActuatorFault, angle, err)
	}
	return c.clock.Sleep(ctx, settle)
}

// Park moves to the upright position and detaches.
// Gradual parking passes through a quarter and half of max angle first to
// lower the load when the cup may still be full.
func (c *Controller) Park(ctx context.Context, gradual bool) error {
	if gradual {
		for _, a := range []float64{float64(c.maxAngle / 4), float64(c.maxAngle / 2)} {
			if err := c.MoveTo(ctx, a, gradualStepSettle); err != nil {
				return err
			}
		}
	}
	if err := c.MoveTo(ctx, float64(c.maxAngle), parkSettle); err != nil {
		return err
	}
	if err := c.driver.Detach(); err != nil {
		return fmt.Errorf("%w: detach: %w", ErrActuatorFault, err)
	}
	return nil
}

// Rotate returns a step-per-degree sweep from max to min angle.
func (c *Controller) Rotate(duration time.Duration) Rotation {
	totalSteps := c.maxAngle - c.minAngle
	interval := duration/time.Duration(totalSteps) - stepMoveTime
	if interval < 0 {
		interval = 0
	}
	return &stepRotation{
		c:        c,
		next:     c.maxAngle,
		interval: interval,
	}
}

// Close detaches and releases the driver.
func (c *Controller) Close() error {
	return c.driver.Close()
}
