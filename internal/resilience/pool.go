package resilience

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Pool bounds concurrent work with a weighted semaphore. Threshold
// sweeps run one probe gate per threshold; the pool keeps a wide sweep
// from spawning an unbounded number of evaluation goroutines.
type Pool struct {
	sem *semaphore.Weighted
}

// NewPool creates a Pool allowing at most limit concurrent calls.
func NewPool(limit int) *Pool {
	if limit < 1 {
		limit = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(limit))}
}

// Run acquires a slot, runs fn, and releases the slot. Blocks while
// all slots are busy and returns ctx.Err() if the context is cancelled
// before a slot frees up. A nil pool runs fn directly.
func (p *Pool) Run(ctx context.Context, fn func() error) error {
	if p == nil || p.sem == nil {
		return fn()
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return fn()
}
