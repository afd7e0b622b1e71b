// Package chunk implements the layered read pipeline the FUSE Adapter
// drives: Prefetch, RAM, Request, and a Worker Pool, each wrapping the next
// behind the same Fetcher interface, in the order fixed by the design:
// Prefetch -> RAM -> Request -> Worker Pool -> remote transport.
package chunk

import "strconv"

// Config describes one chunk-aligned read against a single remote object.
// It is built once per FUSE read and threaded unchanged through every
// layer; only the layer-specific behavior differs.
type Config struct {
	// RemoteID identifies the object the chunk belongs to.
	RemoteID string
	// DownloadURL is the authorized-GET target for this object's bytes.
	DownloadURL string
	// FileSize is the object's total size, used to clip the fetch range and
	// the RAM clip the kernel wants at the end of the file.
	FileSize uint64
	// ChunkSize is the pipeline's fixed chunk granularity.
	ChunkSize uint64

	// AlignedOffset is floor(offset/ChunkSize)*ChunkSize.
	AlignedOffset uint64
	// InChunk is the requested offset's position within the chunk.
	InChunk uint64
	// Size is the user-visible byte count requested, not the fetch length.
	Size uint64
}

// NewConfig builds the Config for a read of size bytes at offset against an
// object of the given total size.
func NewConfig(remoteID, downloadURL string, offset, size, fileSize, chunkSize uint64) Config {
	aligned := (offset / chunkSize) * chunkSize
	return Config{
		RemoteID:      remoteID,
		DownloadURL:   downloadURL,
		FileSize:      fileSize,
		ChunkSize:     chunkSize,
		AlignedOffset: aligned,
		InChunk:       offset - aligned,
		Size:          size,
	}
}

// ChunkID is the stable, canonical identity of the chunk this config
// addresses: remote id and aligned offset.
func (c Config) ChunkID() string {
	return c.RemoteID + ":" + strconv.FormatUint(c.AlignedOffset, 10)
}

// Range returns the inclusive byte range to fetch for this chunk, already
// clipped to the object's size. ok is false for a config addressing past
// end of file.
func (c Config) Range() (first, last int64, ok bool) {
	if c.AlignedOffset >= c.FileSize {
		return 0, 0, false
	}
	end := c.AlignedOffset + c.ChunkSize
	if end > c.FileSize {
		end = c.FileSize
	}
	return int64(c.AlignedOffset), int64(end) - 1, true
}

// Derive builds the Config for the i-th chunk after this one (i >= 1), as
// used by the Prefetch Layer. ok is false once the derived chunk would
// start at or past end of file.
func (c Config) Derive(i uint64) (Config, bool) {
	aligned := c.AlignedOffset + i*c.ChunkSize
	if aligned >= c.FileSize {
		return Config{}, false
	}
	d := c
	d.AlignedOffset = aligned
	d.InChunk = 0
	d.Size = c.ChunkSize
	return d, true
}
