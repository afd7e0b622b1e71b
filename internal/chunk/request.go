package chunk

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Request guarantees at most one in-flight fetch per chunk id: concurrent
// callers for the same chunk share a single inner fetch and each receives
// the same result. golang.org/x/sync/singleflight already gives every
// caller its own receive (a subscriber) while deduplicating the owner's
// work, which is the idiomatic Go shape of the broadcast-endpoint design
// described for this layer.
type Request struct {
	inner Fetcher
	group singleflight.Group
}

// NewRequest wraps inner with in-flight fetch coalescing.
func NewRequest(inner Fetcher) *Request {
	return &Request{inner: inner}
}

func (r *Request) GetChunk(ctx context.Context, cfg Config) ([]byte, error) {
	v, err, _ := r.group.Do(cfg.ChunkID(), func() (any, error) {
		return r.inner.GetChunk(ctx, cfg)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}
