//go:build linux

package sensor

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

const (
	// Conversions arrive at 10 Hz; allow a few periods before giving up.
	readyTimeout = 500 * time.Millisecond
	readyPoll    = time.Millisecond

	// Holding the clock high this long powers the HX711 down.
	powerDownHold = 100 * time.Microsecond

	// One pulse after the 24 data bits selects channel A, gain 128.
	gainPulses = 1
)

// HX711 bit-bangs the HX711 serial protocol on two GPIO lines.
type HX711 struct {
	chip  *gpiocdev.Chip
	data  *gpiocdev.Line
	clock *gpiocdev.Line
}

// NewHX711 requests the data line as input and the clock line as output low.
func NewHX711(chipName string, dataPin, clockPin int) (*HX711, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	data, err := chip.RequestLine(dataPin, gpiocdev.AsInput)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request data pin %d: %w", dataPin, err)
	}

	clock, err := chip.RequestLine(clockPin, gpiocdev.AsOutput(0))
	if err != nil {
		data.Close()
		chip.Close()
		return nil, fmt.Errorf("request clock pin %d: %w", clockPin, err)
	}

	return &HX711{
		chip:  chip,
		data:  data,
		clock: clock,
	}, nil
}

// Ready reports whether DOUT is low, meaning a conversion is waiting.
func (h *HX711) Ready() bool {
	v, err := h.data.Value()
	return err == nil && v == 0
}

// ReadRaw waits for a conversion and shifts it out MSB first.
func (h *HX711) ReadRaw() (int32, error) {
	deadline := time.Now().Add(readyTimeout)
	for !h.Ready() {
		if time.Now().After(deadline) {
			return 0, ErrNotReady
		}
		time.Sleep(readyPoll)
	}

	var value uint32
	for i := 0; i < 24; i++ {
		if err := h.clock.SetValue(1); err != nil {
			return 0, fmt.Errorf("clock high: %w", err)
		}
		bit, err := h.data.Value()
		if err != nil {
			return 0, fmt.Errorf("read data: %w", err)
		}
		if err := h.clock.SetValue(0); err != nil {
			return 0, fmt.Errorf("clock low: %w", err)
		}
		value = value<<1 | uint32(bit&1)
	}

	for i := 0; i < gainPulses; i++ {
		if err := h.pulse(); err != nil {
			return 0, err
		}
	}

	// Sign-extend the 24-bit two's complement value.
	if value&0x800000 != 0 {
		value |= 0xFF000000
	}
	return int32(value), nil
}

// Reset power cycles the amplifier.
func (h *HX711) Reset() error {
	if err := h.PowerDown(); err != nil {
		return err
	}
	return h.powerUp()
}

// PowerDown holds the clock high until the HX711 sleeps.
func (h *HX711) PowerDown() error {
	if err := h.clock.SetValue(0); err != nil {
		return fmt.Errorf("clock low: %w", err)
	}
	if err := h.clock.SetValue(1); err != nil {
		return fmt.Errorf("clock high: %w", err)
	}
	time.Sleep(powerDownHold)
	return nil
}

func (h *HX711) powerUp() error {
	if err := h.clock.SetValue(0); err != nil {
		return fmt.Errorf("clock low: %w", err)
	}
	return nil
}

func (h *HX711) pulse() error {
	if err := h.clock.SetValue(1); err != nil {
		return fmt.Errorf("clock high: %w", err)
	}
	if err := h.clock.SetValue(0); err != nil {
		return fmt.Errorf("clock low: %w", err)
	}
	return nil
}

// Close releases GPIO resources.
// The clock line is returned to an input (the Pi boot default) before closing
// so the pin is not left driven across reboots.
func (h *HX711) Close() error {
	var errs []error

	if h.clock != nil {
		if err := h.clock.Reconfigure(gpiocdev.AsInput); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure clock pin: %w", err))
		}
		if err := h.clock.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close clock pin: %w", err))
		}
	}
	if h.data != nil {
		if err := h.data.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close data pin: %w", err))
		}
	}
	if h.chip != nil {
		if err := h.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
