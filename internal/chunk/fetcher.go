package chunk

import (
	"context"
	"fmt"

	"github.com/plexdrive/plexdrive/internal/remote"
)

// Fetcher is the common interface every pipeline layer implements: given a
// chunk Config, produce chunk bytes. The layers below RAM (Request, Worker
// Pool, TransportFetcher) return the full chunk buffer; RAM, and Prefetch
// above it, return only the caller's requested sub-range of it.
type Fetcher interface {
	GetChunk(ctx context.Context, cfg Config) ([]byte, error)
}

// TransportFetcher is the bottom of the pipeline: it performs the actual
// authorized ranged GET against the remote transport.
type TransportFetcher struct {
	Transport remote.Transport
}

func (f *TransportFetcher) GetChunk(ctx context.Context, cfg Config) ([]byte, error) {
	first, last, ok := cfg.Range()
	if !ok {
		return nil, fmt.Errorf("chunk: %s is past end of file (size %d)", cfg.ChunkID(), cfg.FileSize)
	}

	data, err := f.Transport.RangedGet(ctx, cfg.DownloadURL, first, last)
	if err != nil {
		return nil, fmt.Errorf("chunk: fetching %s: %w", cfg.ChunkID(), err)
	}
	return data, nil
}
