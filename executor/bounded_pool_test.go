package executor_test

import (
	"errors"
	"testing"
	"time"

	"github.com/karupanerura/compute-cache/executor"
)

func TestBoundedPool_RejectsWhenSaturated(t *testing.T) {
	t.Parallel()

	p := executor.NewBoundedPool(1)

	started := make(chan struct{})
	release := make(chan struct{})
	if err := p.Submit(func() {
		close(started)
		<-release
	}); err != nil {
		t.Fatal(err)
	}
	<-started

	if err := p.Submit(func() {}); !errors.Is(err, executor.ErrRejected) {
		t.Errorf("unexpected error: got %v, want %v", err, executor.ErrRejected)
	}

	close(release)
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}

	stats := p.Stats()
	if stats.Submitted != 1 || stats.Rejected != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestBoundedPool_AcceptsAfterRelease(t *testing.T) {
	t.Parallel()

	p := executor.NewBoundedPool(1)
	defer p.Close()

	for i := 0; i < 3; i++ {
		done := make(chan struct{})
		deadline := time.Now().Add(2 * time.Second)
		for {
			err := p.Submit(func() { close(done) })
			if err == nil {
				break
			}
			// the previous task may still be giving its worker slot back
			if !errors.Is(err, executor.ErrRejected) || time.Now().After(deadline) {
				t.Fatalf("submission #%d failed: %v", i, err)
			}
			time.Sleep(time.Millisecond)
		}
		<-done
	}
}

func TestBoundedPool_Close(t *testing.T) {
	t.Parallel()

	p := executor.NewBoundedPool(2)
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if err := p.Submit(func() {}); !errors.Is(err, executor.ErrClosed) {
		t.Errorf("unexpected error: got %v, want %v", err, executor.ErrClosed)
	}
}
