package servo

// FakeDriver records servo commands for test assertions.
type FakeDriver struct {
	// Angles contains every commanded angle in order.
	Angles []float64

	// Detaches counts Detach calls.
	Detaches int

	// SetAngleError, if set, will be returned by SetAngle.
	SetAngleError error

	// FailAfter, when > 0, makes SetAngle fail once that many angles were accepted.
	FailAfter int

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeDriver creates a FakeDriver for testing.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{}
}

// SetAngle records the angle.
func (f *FakeDriver) SetAngle(angle float64) error {
	if f.SetAngleError != nil && (f.FailAfter == 0 || len(f.Angles) >= f.FailAfter) {
		return f.SetAngleError
	}
	f.Angles = append(f.Angles, angle)
	return nil
}

// Detach counts the call.
func (f *FakeDriver) Detach() error {
	f.Detaches++
	return nil
}

// Close marks the driver as closed.
func (f *FakeDriver) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded commands.
func (f *FakeDriver) Reset() {
	f.Angles = nil
	f.Detaches = 0
	f.SetAngleError = nil
	f.FailAfter = 0
	f.Closed = false
}
