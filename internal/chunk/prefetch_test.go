package chunk

import (
	"context"
	"sync"
	"testing"
	"time"
)

type recordingFetcher struct {
	mu   sync.Mutex
	seen []uint64
	data []byte
}

func (f *recordingFetcher) GetChunk(_ context.Context, cfg Config) ([]byte, error) {
	f.mu.Lock()
	f.seen = append(f.seen, cfg.AlignedOffset)
	f.mu.Unlock()
	return f.data, nil
}

func (f *recordingFetcher) offsets() []uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]uint64, len(f.seen))
	copy(out, f.seen)
	return out
}

// Scenario 6: preload=3 against a 10MB object (1MB chunks) triggers one
// synchronous fetch plus three background ones.
func TestPrefetchDispatchesConfiguredReadAhead(t *testing.T) {
	const chunkSize = 1 * 1024 * 1024
	const fileSize = 10 * chunkSize

	inner := &recordingFetcher{data: make([]byte, chunkSize)}
	p := NewPrefetch(inner, 3)

	cfg := NewConfig("A", "", 0, 1024, fileSize, chunkSize)
	if _, err := p.GetChunk(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(time.Second)
	for len(inner.offsets()) < 4 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	offsets := inner.offsets()
	if len(offsets) != 4 {
		t.Fatalf("inner saw %d fetches, want 4 (primary + 3 preload): %v", len(offsets), offsets)
	}

	want := map[uint64]bool{0: true, chunkSize: true, 2 * chunkSize: true, 3 * chunkSize: true}
	for _, o := range offsets {
		if !want[o] {
			t.Fatalf("unexpected fetch at offset %d", o)
		}
		delete(want, o)
	}
	if len(want) != 0 {
		t.Fatalf("missing expected fetches: %v", want)
	}
}

func TestPrefetchStopsAtEndOfFile(t *testing.T) {
	const chunkSize = 50
	const fileSize = 120 // chunks at 0, 50, 100 -> only two chunks after offset 0

	inner := &recordingFetcher{data: make([]byte, chunkSize)}
	p := NewPrefetch(inner, 5)

	cfg := NewConfig("A", "", 0, 10, fileSize, chunkSize)
	if _, err := p.GetChunk(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(time.Second)
	for len(inner.offsets()) < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if got := len(inner.offsets()); got != 3 {
		t.Fatalf("inner saw %d fetches, want 3 (primary + chunks at 50 and 100)", got)
	}
}
