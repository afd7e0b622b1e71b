// Package changewatcher runs the background poll loop that keeps the
// metadata store in sync with the remote change feed: it never touches a
// concrete transport, only the remote.Transport and metadata.Store
// interfaces, so the loop itself is tested with fakes.
package changewatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/plexdrive/plexdrive/internal/clock"
	"github.com/plexdrive/plexdrive/internal/logger"
	"github.com/plexdrive/plexdrive/internal/metadata"
	"github.com/plexdrive/plexdrive/internal/remote"
)

// pageSize is the number of change-feed entries requested per poll, fixed
// per the design: large enough that a bootstrap sweep of a typical account
// finishes in a handful of pages, small enough to keep each page's memory
// footprint bounded.
const pageSize = 999

// pollInterval is how long the watcher sleeps between polls once the
// initial bootstrap sweep has reached the present.
const pollInterval = 60 * time.Second

// Watcher drives the poll loop described in the design: read cursor, fetch
// a page of changes, apply it, advance the cursor, repeat.
type Watcher struct {
	store     metadata.Store
	transport remote.Transport
	clock     clock.Clock
}

// New constructs a Watcher. clk defaults to a real clock if nil.
func New(store metadata.Store, transport remote.Transport, clk clock.Clock) *Watcher {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Watcher{store: store, transport: transport, clock: clk}
}

// Run executes the poll loop until ctx is canceled. A transport failure is
// logged and retried immediately; a metadata store failure is treated as
// fatal, since it means local state has diverged from what the cursor
// claims has been applied.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		bootstrapped, err := w.poll(ctx)
		if err != nil {
			if isTransportErr(err) {
				logger.Errorf("changewatcher: poll failed, retrying: %v", err)
				continue
			}
			return fmt.Errorf("changewatcher: %w", err)
		}

		if bootstrapped {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-w.clock.After(pollInterval):
			}
		}
	}
}

// poll performs one iteration of the loop, returning whether the sweep that
// this iteration belonged to has just reached the present (new_start_page_token
// was returned).
func (w *Watcher) poll(ctx context.Context) (bootstrapped bool, err error) {
	cursor, err := w.store.GetCursor(ctx)
	if err != nil {
		return false, fmt.Errorf("reading cursor: %w", err)
	}

	changes, next, newStart, err := w.transport.ListChanges(ctx, cursor, pageSize)
	if err != nil {
		return false, transportErr{err}
	}

	deltas := make([]metadata.Delta, len(changes))
	for i, c := range changes {
		deltas[i] = toDelta(c)
	}

	if err := w.store.ProcessChanges(ctx, deltas); err != nil {
		return false, fmt.Errorf("applying %d changes: %w", len(deltas), err)
	}

	switch {
	case next != "":
		if err := w.store.StoreCursor(ctx, next); err != nil {
			return false, fmt.Errorf("advancing cursor: %w", err)
		}
		return false, nil
	case newStart != "":
		if err := w.store.StoreCursor(ctx, newStart); err != nil {
			return false, fmt.Errorf("advancing cursor: %w", err)
		}
		return true, nil
	default:
		logger.Warnf("changewatcher: response had neither next_page_token nor new_start_page_token, cursor unchanged")
		return false, nil
	}
}

func toDelta(c remote.Change) metadata.Delta {
	d := metadata.Delta{Removed: c.Removed, RemoteID: c.RemoteID}
	if c.Removed {
		return d
	}
	obj := remote.ToMetadataObject(*c.Object)
	d.Object = &obj
	d.Parents = c.Parents
	return d
}

// transportErr distinguishes a transport-layer failure (retry, no sleep)
// from a metadata-layer one (fatal), without leaking that distinction past
// this package.
type transportErr struct{ err error }

func (e transportErr) Error() string { return e.err.Error() }
func (e transportErr) Unwrap() error { return e.err }

func isTransportErr(err error) bool {
	_, ok := err.(transportErr)
	return ok
}
