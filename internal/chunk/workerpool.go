package chunk

import "context"

// WorkerPool bounds how many chunk fetches run concurrently: every fetch
// that reaches this layer is executed on one of a fixed number of
// goroutines, capping outbound bandwidth regardless of how many FUSE reads
// are in flight above it.
type WorkerPool struct {
	inner Fetcher
	jobs  chan job
}

type job struct {
	ctx    context.Context
	cfg    Config
	result chan<- fetchResult
}

type fetchResult struct {
	data []byte
	err  error
}

// NewWorkerPool starts size worker goroutines pulling from a shared job
// queue, each delegating to inner to perform the actual fetch.
func NewWorkerPool(size int, inner Fetcher) *WorkerPool {
	if size < 1 {
		size = 1
	}
	p := &WorkerPool{inner: inner, jobs: make(chan job)}
	for i := 0; i < size; i++ {
		go p.worker()
	}
	return p
}

func (p *WorkerPool) worker() {
	for j := range p.jobs {
		data, err := p.inner.GetChunk(j.ctx, j.cfg)
		j.result <- fetchResult{data: data, err: err}
	}
}

// GetChunk queues cfg behind the pool and blocks until a worker has
// produced a result or ctx is canceled.
func (p *WorkerPool) GetChunk(ctx context.Context, cfg Config) ([]byte, error) {
	result := make(chan fetchResult, 1)
	select {
	case p.jobs <- job{ctx: ctx, cfg: cfg, result: result}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case r := <-result:
		return r.data, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
