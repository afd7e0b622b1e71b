package chunk

import "context"

// Prefetch sits at the top of the pipeline. Every call serves its primary
// request synchronously, then kicks off up to PreloadCount background
// fetches for the chunks immediately following it, so a sequential reader
// finds them already warm in the RAM layer by the time it asks.
type Prefetch struct {
	inner        Fetcher
	PreloadCount uint64
}

// NewPrefetch wraps inner with read-ahead of preloadCount subsequent
// chunks.
func NewPrefetch(inner Fetcher, preloadCount uint64) *Prefetch {
	return &Prefetch{inner: inner, PreloadCount: preloadCount}
}

func (p *Prefetch) GetChunk(ctx context.Context, cfg Config) ([]byte, error) {
	result, err := p.inner.GetChunk(ctx, cfg)

	for i := uint64(1); i <= p.PreloadCount; i++ {
		next, ok := cfg.Derive(i)
		if !ok {
			break
		}
		// Prefetches must not block the primary result and must survive the
		// primary request's context being torn down (e.g. FUSE read done).
		go func(next Config) {
			_, _ = p.inner.GetChunk(context.Background(), next)
		}(next)
	}

	return result, err
}
