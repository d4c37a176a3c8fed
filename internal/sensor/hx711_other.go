//go:build !linux

package sensor

import "errors"

var errUnsupported = errors.New("sensor: not supported on this platform (requires Linux)")

// HX711 is not available on non-Linux platforms.
type HX711 struct{}

// NewHX711 returns an error on non-Linux platforms.
func NewHX711(chipName string, dataPin, clockPin int) (*HX711, error) {
	return nil, errUnsupported
}

func (h *HX711) ReadRaw() (int32, error) { return 0, errUnsupported }
func (h *HX711) Ready() bool             { return false }
func (h *HX711) Reset() error            { return errUnsupported }
func (h *HX711) PowerDown() error        { return nil }
func (h *HX711) Close() error            { return nil }
