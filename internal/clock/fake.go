package clock

import (
	"context"
	"sync"
	"time"
)

// Fake is a test clock that only advances when Sleep or Advance is called.
type Fake struct {
	mu  sync.Mutex
	now time.Time

	// Sleeps records every requested sleep duration.
	Sleeps []time.Duration

	// OnSleep, if set, is called after each sleep with the new time.
	// Tests use it to script sensor changes or cancel the context.
	OnSleep func(now time.Time)
}

// NewFake creates a Fake clock starting at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the fake current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Sleep advances the clock by d without blocking.
func (f *Fake) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	if d > 0 {
		f.now = f.now.Add(d)
	}
	f.Sleeps = append(f.Sleeps, d)
	now := f.now
	hook := f.OnSleep
	f.mu.Unlock()

	if hook != nil {
		hook(now)
	}
	return ctx.Err()
}
