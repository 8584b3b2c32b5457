package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	computecache "github.com/karupanerura/compute-cache"
)

type runStats struct {
	gets     atomic.Int64
	rejected atomic.Int64
}

// run performs n Gets on keys drawn from a skewed distribution, so that a hot set stays cached
// while the cold tail keeps the cache above its capacity.
func run(ctx context.Context, cache *computecache.ComputeCache[int, string], n int, stats *runStats) error {
	zipf := rand.NewZipf(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), 1.1, 1, uint64(keySpace-1))
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		key := int(zipf.Uint64())
		h, err := cache.Get(key, compute(key))
		stats.gets.Add(1)
		if errors.Is(err, computecache.ErrSubmissionFailed) {
			stats.rejected.Add(1)
			continue
		}
		if err != nil {
			return err
		}

		v, err := h.Wait(ctx)
		if err != nil {
			return err
		}
		if want := render(key); v != want {
			return fmt.Errorf("key %d: got %q, want %q", key, v, want)
		}
	}
	return nil
}

func compute(key int) computecache.Computation[string] {
	return func(ctx context.Context) (string, error) {
		if computeTime > 0 {
			t := time.NewTimer(computeTime)
			defer t.Stop()
			select {
			case <-t.C:
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		return render(key), nil
	}
}

func render(key int) string {
	return fmt.Sprintf("value-%d", key)
}
