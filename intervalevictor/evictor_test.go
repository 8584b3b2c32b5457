package intervalevictor_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	computecache "github.com/karupanerura/compute-cache"
	"github.com/karupanerura/compute-cache/intervalevictor"
)

type mockEvictable func(context.Context) (int, error)

func (f mockEvictable) Evict(ctx context.Context) (int, error) {
	return f(ctx)
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()

	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out")
	}
}

func TestLaunchBackgroundEvictor(t *testing.T) {
	t.Parallel()

	passes := make(chan struct{})
	target := mockEvictable(func(ctx context.Context) (int, error) {
		select {
		case passes <- struct{}{}:
		case <-ctx.Done():
		}
		return 0, nil
	})

	var bgErrs []error
	var mu sync.Mutex
	evictor := intervalevictor.NewIntervalEvictor(target, 10*time.Millisecond, func(err error) {
		mu.Lock()
		defer mu.Unlock()
		bgErrs = append(bgErrs, err)
	})

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	evictor.LaunchBackgroundEvictor(ctx)

	waitFor(t, passes)
	waitFor(t, passes)

	mu.Lock()
	defer mu.Unlock()
	if len(bgErrs) != 0 {
		t.Errorf("should no background errors, but got: %+v", bgErrs)
	}
}

func TestLaunchBackgroundEvictor_Error(t *testing.T) {
	t.Parallel()

	evictErr := errors.New("evict error")
	target := mockEvictable(func(context.Context) (int, error) {
		return 0, evictErr
	})

	reported := make(chan error, 2)
	evictor := intervalevictor.NewIntervalEvictor(target, 10*time.Millisecond, func(err error) {
		select {
		case reported <- err:
		default:
		}
	})

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	evictor.LaunchBackgroundEvictor(ctx)

	var bgErrs []error
	for range 2 {
		select {
		case err := <-reported:
			bgErrs = append(bgErrs, err)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out")
		}
	}
	if df := cmp.Diff([]error{evictErr, evictErr}, bgErrs, cmp.Comparer(func(x, y error) bool {
		return errors.Is(x, y) || errors.Is(y, x)
	})); df != "" {
		t.Errorf("unexpected background errors: %+v", bgErrs)
	}
}

func TestLaunchBackgroundEvictor_Stop(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	entered := make(chan struct{})
	var once sync.Once
	target := mockEvictable(func(ctx context.Context) (int, error) {
		once.Do(func() { close(entered) })
		<-ctx.Done()
		return 0, ctx.Err()
	})

	evictor := intervalevictor.NewIntervalEvictor(target, 10*time.Millisecond, func(err error) {
		t.Errorf("stopping must not be reported: %v", err)
	})
	evictor.LaunchBackgroundEvictor(ctx)

	waitFor(t, entered)
	cancel()
	// give the evictor a chance to report
	time.Sleep(20 * time.Millisecond)
}

func TestLaunchBackgroundEvictor_Cache(t *testing.T) {
	t.Parallel()

	var (
		mu  sync.Mutex
		now = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	)
	clock := computecache.ClockFunc(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	})
	cache := computecache.NewWithLimits[int, int](1, 100, 10, time.Minute, computecache.WithClock[int, int](clock))
	defer cache.Close()

	for i := range 3 {
		h, err := cache.Get(i, func(context.Context) (int, error) { return i, nil })
		if err != nil {
			t.Fatal(err)
		}
		if _, err := h.Wait(t.Context()); err != nil {
			t.Fatal(err)
		}
	}

	mu.Lock()
	now = now.Add(time.Hour)
	mu.Unlock()

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	intervalevictor.NewIntervalEvictor(cache, 10*time.Millisecond, func(err error) {
		t.Errorf("unexpected background error: %v", err)
	}).LaunchBackgroundEvictor(ctx)

	deadline := time.Now().Add(5 * time.Second)
	for cache.Size() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("stale entries are left: size=%d", cache.Size())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
