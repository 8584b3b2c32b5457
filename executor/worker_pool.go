package executor

import (
	"sync"

	"github.com/sourcegraph/conc/pool"
)

// WorkerPool runs submitted tasks on at most N goroutines.
// Tasks that arrive while every worker is busy wait in an unbounded FIFO queue,
// so Submit only fails after Close.
type WorkerPool struct {
	pool *pool.Pool
	counters

	mu     sync.Mutex
	queue  []func()
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

// NewWorkerPool creates a WorkerPool with the given number of workers.
// The number of workers must be a natural number.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		panic("workers must be natural number")
	}
	p := &WorkerPool{
		pool: pool.New().WithMaxGoroutines(workers),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go p.dispatch()
	return p
}

// Submit enqueues the task. It never blocks on busy workers.
func (p *WorkerPool) Submit(task func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}

	p.queue = append(p.queue, task)
	p.submitted.Add(1)
	p.notify()
	return nil
}

// Close stops accepting tasks, runs everything already queued and waits for it to finish.
// Close is safe to call multiple times.
func (p *WorkerPool) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		p.notify()
	}
	p.mu.Unlock()

	<-p.done
	return nil
}

// Stats returns a snapshot of the pool counters.
func (p *WorkerPool) Stats() Stats {
	s := p.counters.snapshot()

	p.mu.Lock()
	s.Pending = int64(len(p.queue))
	p.mu.Unlock()
	return s
}

// notify wakes the dispatcher. p.mu must be held.
func (p *WorkerPool) notify() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// dispatch hands queued tasks to the goroutine pool in submission order.
// pool.Go blocks while all workers are busy, which keeps the rest of the queue waiting here.
func (p *WorkerPool) dispatch() {
	defer close(p.done)
	for {
		p.mu.Lock()
		batch := p.queue
		p.queue = nil
		closed := p.closed
		p.mu.Unlock()

		for _, task := range batch {
			p.pool.Go(func() {
				p.run(task)
			})
		}

		if len(batch) != 0 {
			continue
		}
		if closed {
			p.pool.Wait()
			return
		}
		<-p.wake
	}
}
