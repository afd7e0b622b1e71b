package chunk

import "github.com/plexdrive/plexdrive/internal/remote"

// NewPipeline assembles the full chunk pipeline in the fixed order
// Prefetch -> RAM -> Request -> Worker Pool -> transport, returning the
// single Fetcher the FUSE Adapter reads through.
func NewPipeline(transport remote.Transport, workers int, preloadCount uint64) Fetcher {
	pool := NewWorkerPool(workers, &TransportFetcher{Transport: transport})
	req := NewRequest(pool)
	ram := NewRAM(req)
	return NewPrefetch(ram, preloadCount)
}
