package chunk

import (
	"context"
	"sync"
)

// RAM caches whole chunk buffers in memory, keyed by chunk id. A hit never
// calls the inner layer; a miss delegates, then stores the full buffer
// before returning the caller's requested sub-range.
type RAM struct {
	inner Fetcher

	mu      sync.RWMutex
	buffers map[string][]byte
}

// NewRAM wraps inner with an in-memory chunk cache.
func NewRAM(inner Fetcher) *RAM {
	return &RAM{inner: inner, buffers: make(map[string][]byte)}
}

func (r *RAM) GetChunk(ctx context.Context, cfg Config) ([]byte, error) {
	id := cfg.ChunkID()

	r.mu.RLock()
	buf, ok := r.buffers[id]
	r.mu.RUnlock()
	if ok {
		return clip(buf, cfg), nil
	}

	// The inner call happens without holding any lock, so a miss on one
	// chunk never blocks readers of unrelated, already-cached chunks.
	full, err := r.inner.GetChunk(ctx, cfg)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.buffers[id] = full
	r.mu.Unlock()

	return clip(full, cfg), nil
}

// clip returns buf[cfg.InChunk : cfg.InChunk+cfg.Size], clamped to buf's
// length so an end-of-file read never indexes past what was actually
// fetched.
func clip(buf []byte, cfg Config) []byte {
	start := cfg.InChunk
	if start >= uint64(len(buf)) {
		return nil
	}
	end := start + cfg.Size
	if end > uint64(len(buf)) {
		end = uint64(len(buf))
	}
	return buf[start:end]
}
