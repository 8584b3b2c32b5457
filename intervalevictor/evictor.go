// Package intervalevictor runs eviction passes of a cache at a fixed interval.
package intervalevictor

import (
	"context"
	"time"

	computecache "github.com/karupanerura/compute-cache"
)

// IntervalEvictor is a background evictor that runs an eviction pass on the target at a fixed interval.
// A cache only evicts while inserting, so a cache that stopped receiving new keys keeps its stale entries
// until something like IntervalEvictor asks for a pass.
type IntervalEvictor struct {
	target            computecache.Evictable
	interval          time.Duration
	onBackgroundError func(error)
}

// NewIntervalEvictor creates a new IntervalEvictor.
// onBackgroundError is called with every error returned by an eviction pass,
// except the one caused by stopping the evictor itself.
func NewIntervalEvictor(target computecache.Evictable, interval time.Duration, onBackgroundError func(error)) *IntervalEvictor {
	if interval <= 0 {
		panic("interval must be positive")
	}
	return &IntervalEvictor{
		target:            target,
		interval:          interval,
		onBackgroundError: onBackgroundError,
	}
}

// LaunchBackgroundEvictor starts the background evictor.
// The background evictor can be stopped by canceling the context passed to LaunchBackgroundEvictor.
func (e *IntervalEvictor) LaunchBackgroundEvictor(ctx context.Context) {
	go e.poll(ctx)
}

func (e *IntervalEvictor) poll(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if _, err := e.target.Evict(ctx); err != nil && ctx.Err() == nil {
				e.onBackgroundError(err)
			}
		}
	}
}
