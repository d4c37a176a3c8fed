package servo

import (
	"context"
	"fmt"
	"time"
)

// stepRotation walks one degree per Next call.
// After each yielded step the following Next first lets the servo move,
// detaches it and waits the remaining step interval.
type stepRotation struct {
	c        *Controller
	next     int
	interval time.Duration
	stepped  bool
	done     bool
}

func (r *stepRotation) Next(ctx context.Context) (int, bool, error) {
	if r.done {
		return 0, false, nil
	}

	if r.stepped {
		if err := r.finishStep(ctx); err != nil {
			r.done = true
			return 0, false, err
		}
	}

	if r.next < r.c.minAngle {
		r.done = true
		return 0, false, nil
	}

	angle := r.next
	if err := r.c.driver.SetAngle(float64(angle)); err != nil {
		r.done = true
		return 0, false, fmt.Errorf("%w: rotate to %d: %w", ErrActuatorFault, angle, err)
	}
	r.next--
	r.stepped = true
	return angle, true, nil
}

func (r *stepRotation) finishStep(ctx context.Context) error {
	if err := r.c.clock.Sleep(ctx, stepMoveTime); err != nil {
		return err
	}
	if err := r.c.driver.Detach(); err != nil {
		return fmt.Errorf("%w: detach: %w", ErrActuatorFault, err)
	}
	if r.interval > 0 {
		return r.c.clock.Sleep(ctx, r.interval)
	}
	return nil
}

func (r *stepRotation) Cancel() {
	r.done = true
}
