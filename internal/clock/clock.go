// Package clock provides a testable abstraction over wall-clock time, used
// for the Change Watcher's poll interval.
package clock

import "time"

// Clock is the interface the Change Watcher sleeps through instead of
// calling time.After directly, so that tests can control the passage of
// time.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After waits for the duration to elapse and then sends the current time
	// on the returned channel, like time.After.
	After(d time.Duration) <-chan time.Time
}
