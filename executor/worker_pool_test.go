package executor_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	computecache "github.com/karupanerura/compute-cache"
	"github.com/karupanerura/compute-cache/executor"
	"golang.org/x/sync/errgroup"
)

var (
	_ computecache.Executor = (*executor.WorkerPool)(nil)
	_ computecache.Executor = (*executor.BoundedPool)(nil)
)

func TestWorkerPool_RunsEveryTask(t *testing.T) {
	t.Parallel()

	p := executor.NewWorkerPool(4)

	var ran atomic.Int64
	var eg errgroup.Group
	for i := 0; i < 100; i++ {
		eg.Go(func() error {
			return p.Submit(func() {
				ran.Add(1)
			})
		})
	}
	if err := eg.Wait(); err != nil {
		t.Fatal(err)
	}

	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if got := ran.Load(); got != 100 {
		t.Errorf("unexpected number of executed tasks: got %d, want 100", got)
	}
	if got := p.Stats().Submitted; got != 100 {
		t.Errorf("unexpected submitted count: got %d, want 100", got)
	}
}

func TestWorkerPool_QueuesBeyondWorkers(t *testing.T) {
	t.Parallel()

	const workers = 2
	p := executor.NewWorkerPool(workers)

	release := make(chan struct{})
	var (
		mu      sync.Mutex
		current int
		peak    int
	)
	for i := 0; i < 10; i++ {
		if err := p.Submit(func() {
			mu.Lock()
			current++
			if current > peak {
				peak = current
			}
			mu.Unlock()

			<-release

			mu.Lock()
			current--
			mu.Unlock()
		}); err != nil {
			t.Fatalf("Submit must not fail while busy: %v", err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for p.Stats().Running != workers {
		if time.Now().After(deadline) {
			t.Fatalf("workers did not start: %+v", p.Stats())
		}
		time.Sleep(5 * time.Millisecond)
	}

	close(release)
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}

	if peak > workers {
		t.Errorf("too many tasks ran at once: got %d, want <= %d", peak, workers)
	}
}

func TestWorkerPool_Close(t *testing.T) {
	t.Parallel()

	p := executor.NewWorkerPool(1)
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if err := p.Submit(func() {}); !errors.Is(err, executor.ErrClosed) {
		t.Errorf("unexpected error: got %v, want %v", err, executor.ErrClosed)
	}
}

func TestWorkerPool_Panic(t *testing.T) {
	t.Parallel()

	p := executor.NewWorkerPool(1)
	if err := p.Submit(func() { panic("boom") }); err != nil {
		t.Fatal(err)
	}

	var ran atomic.Bool
	if err := p.Submit(func() { ran.Store(true) }); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}

	if got := p.Stats().Panicked; got != 1 {
		t.Errorf("unexpected panicked count: got %d, want 1", got)
	}
	if !ran.Load() {
		t.Error("a panicking task must not stop the pool")
	}
}

func TestNewWorkerPool_InvalidWorkers(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("expected panic for zero workers")
		}
	}()
	executor.NewWorkerPool(0)
}
