package servo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	// DefaultSysfsRoot is where the kernel exposes PWM chips.
	DefaultSysfsRoot = "/sys/class/pwm"

	// 50 Hz frame for hobby servos.
	servoPeriod = 20 * time.Millisecond

	exportRetries = 20
	exportBackoff = 50 * time.Millisecond
)

// PWMConfig describes a hardware PWM channel and the servo attached to it.
type PWMConfig struct {
	Root     string // sysfs root, DefaultSysfsRoot when empty
	Chip     int
	Channel  int
	MinAngle int
	MaxAngle int
	MinPulse time.Duration
	MaxPulse time.Duration
}

// PWMDriver drives a servo through /sys/class/pwm.
type PWMDriver struct {
	cfg     PWMConfig
	chipDir string
	dir     string
	enabled bool
}

// NewPWMDriver exports the channel and sets a 50 Hz period.
func NewPWMDriver(cfg PWMConfig) (*PWMDriver, error) {
	if cfg.Root == "" {
		cfg.Root = DefaultSysfsRoot
	}
	if cfg.MinAngle >= cfg.MaxAngle {
		return nil, fmt.Errorf("servo: min angle %d must be below max angle %d", cfg.MinAngle, cfg.MaxAngle)
	}
	if cfg.MinPulse <= 0 || cfg.MaxPulse <= cfg.MinPulse || cfg.MaxPulse >= servoPeriod {
		return nil, fmt.Errorf("servo: invalid pulse range %v-%v", cfg.MinPulse, cfg.MaxPulse)
	}

	chipDir := filepath.Join(cfg.Root, fmt.Sprintf("pwmchip%d", cfg.Chip))
	d := &PWMDriver{
		cfg:     cfg,
		chipDir: chipDir,
		dir:     filepath.Join(chipDir, fmt.Sprintf("pwm%d", cfg.Channel)),
	}

	if _, err := os.Stat(d.dir); errors.Is(err, os.ErrNotExist) {
		if err := writeSysfs(filepath.Join(chipDir, "export"), strconv.Itoa(cfg.Channel)); err != nil {
			return nil, fmt.Errorf("export pwm channel %d: %w", cfg.Channel, err)
		}
	}

	// udev may take a moment to make the new channel writable.
	var err error
	for i := 0; i < exportRetries; i++ {
		if err = d.write("period", servoPeriod.Nanoseconds()); err == nil {
			break
		}
		time.Sleep(exportBackoff)
	}
	if err != nil {
		return nil, fmt.Errorf("set pwm period: %w", err)
	}
	return d, nil
}

// PulseFor maps an angle linearly onto the pulse range, clamping at the bounds.
func (d *PWMDriver) PulseFor(angle float64) time.Duration {
	lo, hi := float64(d.cfg.MinAngle), float64(d.cfg.MaxAngle)
	if angle < lo {
		angle = lo
	}
	if angle > hi {
		angle = hi
	}
	frac := (angle - lo) / (hi - lo)
	return d.cfg.MinPulse + time.Duration(frac*float64(d.cfg.MaxPulse-d.cfg.MinPulse))
}

// SetAngle writes the duty cycle and enables output.
func (d *PWMDriver) SetAngle(angle float64) error {
	if err := d.write("duty_cycle", d.PulseFor(angle).Nanoseconds()); err != nil {
		return err
	}
	if !d.enabled {
		if err := d.write("enable", 1); err != nil {
			return err
		}
		d.enabled = true
	}
	return nil
}

// Detach disables output.
func (d *PWMDriver) Detach() error {
	if err := d.write("enable", 0); err != nil {
		return err
	}
	d.enabled = false
	return nil
}

// Close disables output and unexports the channel.
func (d *PWMDriver) Close() error {
	var errs []error
	if err := d.Detach(); err != nil {
		errs = append(errs, fmt.Errorf("disable pwm: %w", err))
	}
	if err := writeSysfs(filepath.Join(d.chipDir, "unexport"), strconv.Itoa(d.cfg.Channel)); err != nil {
		errs = append(errs, fmt.Errorf("unexport pwm: %w", err))
	}
	return errors.Join(errs...)
}

func (d *PWMDriver) write(name string, v int64) error {
	return writeSysfs(filepath.Join(d.dir, name), strconv.FormatInt(v, 10))
}

func writeSysfs(path, value string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(value); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
