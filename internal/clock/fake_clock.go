package clock

import (
	"sync"
	"time"
)

// afterRequest holds the information for a pending After call.
type afterRequest struct {
	targetTime time.Time
	ch         chan time.Time
}

// FakeClock is a clock whose time only advances when AdvanceTime is called.
// Useful for deterministic tests of the Change Watcher's sleep interval. The
// zero value starts at the zero time.
type FakeClock struct {
	mu      sync.Mutex
	t       time.Time
	pending []*afterRequest
}

// NewFakeClock returns a FakeClock initialized to startTime.
func NewFakeClock(startTime time.Time) *FakeClock {
	return &FakeClock{t: startTime}
}

// Now returns the clock's current simulated time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// After returns a channel that fires once the simulated time reaches
// c.Now()+d, as driven by AdvanceTime.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	req := &afterRequest{
		targetTime: c.t.Add(d),
		ch:         make(chan time.Time, 1),
	}
	c.pending = append(c.pending, req)
	return req.ch
}

// AdvanceTime moves the simulated clock forward by d, firing any After
// channels whose target time has now been reached.
func (c *FakeClock) AdvanceTime(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.t = c.t.Add(d)

	remaining := c.pending[:0]
	for _, req := range c.pending {
		if !req.targetTime.After(c.t) {
			req.ch <- c.t
		} else {
			remaining = append(remaining, req)
		}
	}
	c.pending = remaining
}
