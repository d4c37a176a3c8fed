package sensor

import "errors"

// FakeSensor is a test double that returns scripted weights in grams.
type FakeSensor struct {
	// Samples contains scripted weights to return.
	// Each call to Weight() consumes the next sample.
	Samples []float64

	// WeightFunc, if set, replaces Samples. Tests use it to derive the
	// weight from a fake clock.
	WeightFunc func() (float64, error)

	// index tracks current position in Samples
	index int

	// Requested records the sample count of every Weight call.
	Requested []int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Weight()
	ReadError error

	// NotReady makes Ready() report false.
	NotReady bool
}

// NewFakeSensor creates a FakeSensor with the given weights.
func NewFakeSensor(samples ...float64) *FakeSensor {
	return &FakeSensor{Samples: samples}
}

// Weight returns the next scripted weight.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeSensor) Weight(samples int) (float64, error) {
	f.Requested = append(f.Requested, samples)

	if f.ReadError != nil {
		return 0, f.ReadError
	}
	if f.WeightFunc != nil {
		return f.WeightFunc()
	}
	if len(f.Samples) == 0 {
		return 0, errors.New("no samples configured")
	}

	w := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return w, nil
}

// Ready reports !NotReady.
func (f *FakeSensor) Ready() bool {
	return !f.NotReady
}

// Close marks the sensor as closed.
func (f *FakeSensor) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds the script.
func (f *FakeSensor) Reset() {
	f.index = 0
	f.Closed = false
	f.Requested = nil
}

// FakeDevice is a raw Device returning scripted conversions.
type FakeDevice struct {
	Raw []int32
	// Errors, when non-nil at an index, fails that read instead.
	Errors []error

	index     int
	ResetErr  error
	Resets    int
	PoweredDn bool
	Closed    bool
}

// ReadRaw returns the next scripted conversion, repeating the last one.
func (d *FakeDevice) ReadRaw() (int32, error) {
	if len(d.Raw) == 0 {
		return 0, ErrNotReady
	}
	i := d.index
	if d.index < len(d.Raw)-1 {
		d.index++
	}
	if i < len(d.Errors) && d.Errors[i] != nil {
		return 0, d.Errors[i]
	}
	return d.Raw[i], nil
}

// Ready reports whether any raw values are scripted.
func (d *FakeDevice) Ready() bool { return len(d.Raw) > 0 }

// Reset counts the call and returns ResetErr.
func (d *FakeDevice) Reset() error {
	d.Resets++
	return d.ResetErr
}

// PowerDown records that the device was powered down.
func (d *FakeDevice) PowerDown() error {
	d.PoweredDn = true
	return nil
}

// Close marks the device as closed.
func (d *FakeDevice) Close() error {
	d.Closed = true
	return nil
}
