package executor

import (
	"sync"

	"github.com/sourcegraph/conc"
	"golang.org/x/sync/semaphore"
)

// BoundedPool runs submitted tasks on at most N goroutines and never queues.
// Submit fails with ErrRejected while N tasks are running.
type BoundedPool struct {
	sem *semaphore.Weighted
	wg  conc.WaitGroup
	counters

	mu     sync.RWMutex
	closed bool
}

// NewBoundedPool creates a BoundedPool with the given number of workers.
// The number of workers must be a natural number.
func NewBoundedPool(workers int) *BoundedPool {
	if workers <= 0 {
		panic("workers must be natural number")
	}
	return &BoundedPool{
		sem: semaphore.NewWeighted(int64(workers)),
	}
}

// Submit starts the task if a worker is free.
func (p *BoundedPool) Submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	if !p.sem.TryAcquire(1) {
		p.rejected.Add(1)
		return ErrRejected
	}
	p.submitted.Add(1)
	p.wg.Go(func() {
		defer p.sem.Release(1)
		p.run(task)
	})
	return nil
}

// Close stops accepting tasks and waits for running ones.
// Close is safe to call multiple times.
func (p *BoundedPool) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}

// Stats returns a snapshot of the pool counters. Pending is always zero.
func (p *BoundedPool) Stats() Stats {
	return p.counters.snapshot()
}
