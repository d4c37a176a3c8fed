// Package monitor runs the cup monitoring loop: wait for a cup, watch it for
// drinks, and tilt it when nothing has been drunk for too long.
package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/sweeney/hydration-cup/internal/clock"
	"github.com/sweeney/hydration-cup/internal/eventlog"
	"github.com/sweeney/hydration-cup/internal/logic"
	"github.com/sweeney/hydration-cup/internal/metrics"
	"github.com/sweeney/hydration-cup/internal/mqtt"
	"github.com/sweeney/hydration-cup/internal/sensor"
	"github.com/sweeney/hydration-cup/internal/servo"
	"github.com/sweeney/hydration-cup/internal/status"
)

// shutdownParkTimeout bounds the final park after the loop is cancelled.
const shutdownParkTimeout = 5 * time.Second

// Config holds the loop's thresholds and timings.
type Config struct {
	// WeightThresholdG is both the minimum weight of a present cup and the
	// drop that counts as a drink.
	WeightThresholdG   float64
	ReadTimes          int
	PollInterval       time.Duration
	SettleDelay        time.Duration
	MonitoringDuration time.Duration
	AlertDuration      time.Duration
}

// DefaultConfig returns the stock thresholds and timings.
func DefaultConfig() Config {
	return Config{
		WeightThresholdG:   150,
		ReadTimes:          5,
		PollInterval:       time.Second,
		SettleDelay:        2 * time.Second,
		MonitoringDuration: 25 * time.Minute,
		AlertDuration:      5 * time.Minute,
	}
}

func (c Config) validate() error {
	switch {
	case c.WeightThresholdG <= 0:
		return errors.New("monitor: weight threshold must be positive")
	case c.ReadTimes < 1:
		return errors.New("monitor: read times must be at least 1")
	case c.PollInterval <= 0:
		return errors.New("monitor: poll interval must be positive")
	case c.MonitoringDuration <= 0 || c.AlertDuration <= 0:
		return errors.New("monitor: durations must be positive")
	}
	return nil
}

// Deps are the loop's collaborators. Sensor, Actuator and Log are required.
type Deps struct {
	Sensor    sensor.WeightSensor
	Actuator  servo.Actuator
	Log       eventlog.Appender
	Publisher mqtt.Publisher
	Tracker   *status.Tracker
	Metrics   *metrics.Metrics
	Clock     clock.Clock
	Logger    *zap.SugaredLogger
}

// Loop owns the sensor and actuator. Run must be called from a single goroutine.
type Loop struct {
	cfg      Config
	sensor   sensor.WeightSensor
	actuator servo.Actuator
	log      eventlog.Appender
	pub      mqtt.Publisher
	tracker  *status.Tracker
	metrics  *metrics.Metrics
	clock    clock.Clock
	logger   *zap.SugaredLogger
	machine  *logic.Machine

	lastGood logic.WeightReading
	faulting bool
}

// New validates cfg and fills optional dependencies with no-op defaults.
func New(cfg Config, d Deps) (*Loop, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if d.Sensor == nil || d.Actuator == nil || d.Log == nil {
		return nil, errors.New("monitor: sensor, actuator and log are required")
	}
	if d.Clock == nil {
		d.Clock = clock.Real{}
	}
	if d.Publisher == nil {
		d.Publisher = mqtt.NopPublisher{}
	}
	if d.Tracker == nil {
		d.Tracker = status.NewTracker(d.Clock.Now(), status.Config{}, d.Clock.Now)
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New(prometheus.NewRegistry())
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop().Sugar()
	}
	return &Loop{
		cfg:      cfg,
		sensor:   d.Sensor,
		actuator: d.Actuator,
		log:      d.Log,
		pub:      d.Publisher,
		tracker:  d.Tracker,
		metrics:  d.Metrics,
		clock:    d.Clock,
		logger:   d.Logger,
		machine:  logic.NewMachine(cfg.MonitoringDuration),
	}, nil
}

// Machine exposes the state machine for inspection.
func (l *Loop) Machine() *logic.Machine {
	return l.machine
}

// Run parks the cup and cycles through waiting, monitoring and alerting
// until ctx is cancelled. Cancellation parks the cup once more and returns nil.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Infow("monitoring loop started",
		"threshold_g", l.cfg.WeightThresholdG,
		"monitoring", l.cfg.MonitoringDuration,
		"alert", l.cfg.AlertDuration)

	if err := l.actuator.Park(ctx, false); err != nil {
		if ctx.Err() != nil {
			return l.shutdown(ctx.Err())
		}
		l.actuatorFault("initial park", err)
	}

	for {
		ref, err := l.waitForCup(ctx)
		if err != nil {
			return l.shutdown(err)
		}
		l.machine.EnterMonitoring(ref, l.clock.Now())
		l.syncState()
		l.publish(logic.EventMonitoringStarted, ref, ref)

		if err := l.monitor(ctx); err != nil {
			return l.shutdown(err)
		}
		if err := l.alert(ctx); err != nil {
			return l.shutdown(err)
		}
	}
}

// waitForCup blocks in Idle until the weight reaches the threshold, lets it
// settle and returns the stabilized weight after logging it.
func (l *Loop) waitForCup(ctx context.Context) (float64, error) {
	l.machine.EnterIdle()
	l.syncState()

	for {
		w := l.read(l.cfg.ReadTimes)
		if w >= l.cfg.WeightThresholdG {
			l.logger.Debugw("cup detected, waiting to settle", "weight_g", w)
			break
		}
		if err := l.clock.Sleep(ctx, l.cfg.PollInterval); err != nil {
			return 0, err
		}
	}

	if err := l.clock.Sleep(ctx, l.cfg.SettleDelay); err != nil {
		return 0, err
	}
	stable := l.read(l.cfg.ReadTimes)

	if err := l.log.Append(l.clock.Now(), stable); err != nil {
		l.logger.Errorw("weight log append failed", "error", err)
		l.metrics.LogFault()
		l.tracker.Count(func(c *status.Counts) { c.LogFaults++ })
	}
	l.tracker.Count(func(c *status.Counts) { c.CupsPlaced++ })
	l.logger.Infow("cup placed", "weight_g", stable)
	l.publish(logic.EventCupPlaced, stable, 0)
	return stable, nil
}

// monitor polls until the session times out. A drop of at least the
// threshold is a drink: the cup is parked, the loop waits for it to come
// back and restarts the timer from the new weight.
func (l *Loop) monitor(ctx context.Context) error {
	for !l.machine.IsTimedOut(l.clock.Now()) {
		current := l.read(l.cfg.ReadTimes)
		ref, _ := l.machine.ReferenceWeight()

		if diff := ref - current; diff >= l.cfg.WeightThresholdG {
			now := l.clock.Now()
			l.logger.Infow("drink detected", "weight_g", current, "reference_g", ref, "diff_g", diff)
			l.metrics.IntakeDetected()
			l.tracker.RecordIntake(now, diff)
			l.publish(logic.EventIntakeDetected, current, ref)

			if err := l.actuator.Park(ctx, true); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				l.actuatorFault("park after drink", err)
			}

			next, err := l.waitForCup(ctx)
			if err != nil {
				return err
			}
			l.machine.ResetTimer(next, l.clock.Now())
			l.syncState()
			l.publish(logic.EventMonitoringReset, next, next)
		}

		if err := l.clock.Sleep(ctx, l.cfg.PollInterval); err != nil {
			return err
		}
	}

	ref, _ := l.machine.ReferenceWeight()
	l.logger.Infow("no drink within monitoring period", "duration", l.cfg.MonitoringDuration)
	l.publish(logic.EventTimeout, l.lastGood.Grams, ref)
	return nil
}

// alert sweeps the cup and stops early if the weight drops by the threshold
// relative to the weight at the start of the alert. The cup is parked exactly
// once however the sweep ends.
func (l *Loop) alert(ctx context.Context) error {
	l.machine.EnterAlerting()
	l.syncState()
	l.metrics.AlertStarted()
	l.tracker.Count(func(c *status.Counts) { c.Alerts++ })

	start := l.read(l.cfg.ReadTimes)
	l.logger.Infow("alert started", "weight_g", start, "duration", l.cfg.AlertDuration)
	l.publish(logic.EventAlertStarted, start, start)

	outcome := logic.EventAlertCompleted
	current := start
	rotation := l.actuator.Rotate(l.cfg.AlertDuration)
	for {
		angle, ok, err := rotation.Next(ctx)
		if err != nil {
			rotation.Cancel()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.actuatorFault("alert step", err)
			outcome = logic.EventAlertAborted
			break
		}
		if !ok {
			break
		}

		current = l.read(1)
		if start-current >= l.cfg.WeightThresholdG {
			rotation.Cancel()
			l.logger.Infow("drink detected during alert", "angle", angle, "weight_g", current)
			outcome = logic.EventAlertAcknowledged
			break
		}
	}

	if err := l.actuator.Park(ctx, false); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.actuatorFault("park after alert", err)
	}

	switch outcome {
	case logic.EventAlertAcknowledged:
		l.metrics.AlertAcknowledged()
		l.tracker.Count(func(c *status.Counts) { c.AlertsAcknowledged++ })
	case logic.EventAlertAborted:
		l.tracker.Count(func(c *status.Counts) { c.AlertsAborted++ })
	default:
		l.logger.Infow("alert completed")
	}
	l.publish(outcome, current, start)
	return nil
}

// read returns an averaged weight. A failed read yields the last good weight
// (0 before the first success) so a fault never looks like a drink.
func (l *Loop) read(samples int) float64 {
	w, err := l.sensor.Weight(samples)
	if err != nil {
		if !l.faulting {
			l.logger.Warnw("weight read failed, using last good weight",
				"error", err, "last_good_g", l.lastGood.Grams, "last_good_at", l.lastGood.Timestamp)
		} else {
			l.logger.Debugw("weight read failed", "error", err)
		}
		l.faulting = true
		l.metrics.SensorFault()
		l.tracker.Count(func(c *status.Counts) { c.SensorFaults++ })
		return l.lastGood.Grams
	}
	if l.faulting {
		l.logger.Infow("weight readings recovered", "weight_g", w)
		l.faulting = false
	}
	l.lastGood = logic.WeightReading{Timestamp: l.clock.Now(), Grams: w}
	l.metrics.ObserveWeight(w)
	l.tracker.SetWeight(w)
	return w
}

func (l *Loop) actuatorFault(op string, err error) {
	l.logger.Errorw("servo command failed", "op", op, "error", err)
	l.metrics.ActuatorFault()
	l.tracker.Count(func(c *status.Counts) { c.ActuatorFaults++ })
}

func (l *Loop) syncState() {
	s := l.machine.State()
	l.tracker.SetState(s)
	l.metrics.SetState(s.Name())
}

func (l *Loop) publish(typ logic.EventType, weight, ref float64) {
	e := logic.Event{
		Timestamp:  l.clock.Now(),
		Type:       typ,
		State:      l.machine.Name(),
		WeightG:    weight,
		ReferenceG: ref,
	}
	if ref != 0 {
		e.DiffG = ref - weight
	}
	if err := l.pub.Publish(e); err != nil {
		l.logger.Warnw("publish failed", "event", typ, "error", err)
	}
}

// shutdown turns cancellation into a clean exit after a best-effort park.
func (l *Loop) shutdown(err error) error {
	if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownParkTimeout)
	defer cancel()
	if err := l.actuator.Park(ctx, false); err != nil {
		l.logger.Warnw("final park failed", "error", err)
	}
	l.logger.Infow("monitoring loop stopped", "state", l.machine.Name())
	return nil
}
