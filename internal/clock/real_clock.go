package clock

import "time"

// RealClock implements Clock using the real wall clock.
type RealClock struct{}

// Now returns the current local time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// After notifies on the returned channel once the duration has elapsed.
func (RealClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}
