package computecache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/karupanerura/compute-cache/executor"
	"github.com/karupanerura/compute-cache/internal/panicutil"
)

const (
	// DefaultCleanupPercentage is the default percentage of the capacity examined by an eviction pass.
	DefaultCleanupPercentage = 10.0

	// DefaultCapacity is the default number of entries above which insertions trigger eviction.
	DefaultCapacity = 10000

	// DefaultMinEntryAge is the default time an entry must stay untouched before it can be evicted.
	DefaultMinEntryAge = time.Hour
)

// ComputeCache is a memoizing cache that runs the computation of a key at most once while the key is cached.
//
// Concurrent Get calls for the same key share a single Handle. Every insertion may start an eviction pass
// that removes the least recently used entries among those untouched for at least the minimum entry age,
// so the number of entries can stay above the capacity while they are all in use.
type ComputeCache[K KeyConstraint, V ValueConstraint] struct {
	table   *resultTable[K, V]
	evictor evictor

	cleanupPercentage float64
	capacity          int
	minEntryAge       time.Duration

	executor  Executor
	ownedPool *executor.WorkerPool
	clock     Clock
	cloner    ValueCloner[V]
	context   func() context.Context
	metrics   Metrics
	logger    *slog.Logger
}

var _ Evictable = (*ComputeCache[uint8, struct{}])(nil)

// New creates a new ComputeCache running computations on the given number of workers,
// with DefaultCleanupPercentage, DefaultCapacity and DefaultMinEntryAge.
func New[K KeyConstraint, V ValueConstraint](workers int, opts ...Option[K, V]) *ComputeCache[K, V] {
	return NewWithLimits(workers, DefaultCleanupPercentage, DefaultCapacity, DefaultMinEntryAge, opts...)
}

// NewWithLimits creates a new ComputeCache.
//
//   - workers is the number of goroutines of the default executor. It is ignored when WithExecutor is given.
//   - cleanupPercentage is the percentage of capacity examined by one eviction pass, in (0, 100].
//   - capacity is the number of entries above which insertions trigger eviction.
//   - minEntryAge is how long an entry must stay untouched before it can be evicted,
//     and also the minimum interval between two eviction passes.
func NewWithLimits[K KeyConstraint, V ValueConstraint](workers int, cleanupPercentage float64, capacity int, minEntryAge time.Duration, opts ...Option[K, V]) *ComputeCache[K, V] {
	if cleanupPercentage <= 0 || cleanupPercentage > 100 {
		panic("cleanupPercentage must be in (0, 100]")
	}
	if capacity <= 0 {
		panic("capacity must be natural number")
	}
	if minEntryAge < 0 {
		panic("minEntryAge must not be negative")
	}

	options := defaultOptions[K, V]()
	for _, opt := range opts {
		opt.apply(&options)
	}

	c := &ComputeCache[K, V]{
		table:             newResultTable[K, V](options.shards),
		cleanupPercentage: cleanupPercentage,
		capacity:          capacity,
		minEntryAge:       minEntryAge,
		executor:          options.executor,
		clock:             options.clock,
		cloner:            options.cloner,
		context:           options.context,
		metrics:           options.metrics,
		logger:            options.logger,
	}
	if c.executor == nil {
		c.ownedPool = executor.NewWorkerPool(workers)
		c.executor = c.ownedPool
	}
	c.evictor.lastCleanup.Store(c.clock.Now().UnixNano())
	return c
}

// Get returns the handle of the computation for key.
// If key is not cached, computation is submitted to the executor and Get returns without waiting for it;
// otherwise the cached handle is returned as-is, even if it failed, and computation is never called.
//
// An error is returned only if the executor refused the computation. In that case the key is left uncached,
// so a later Get submits again.
func (c *ComputeCache[K, V]) Get(key K, computation Computation[V]) (*Handle[V], error) {
	var ctx context.Context
	e, inserted := c.table.lookupOrInsert(key, func() *entry[K, V] {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(c.context())

		e := &entry[K, V]{key: key, handle: newHandle(cancel, c.cloner)}
		e.touch(c.clock.Now().UnixNano())
		return e
	})

	if inserted {
		c.metrics.Miss()
		if err := c.executor.Submit(c.task(ctx, e, computation)); err != nil {
			err = fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
			c.table.remove(key, e)
			var zero V
			e.handle.settle(zero, err)

			c.metrics.SubmissionFailed()
			c.metrics.Entries(c.table.len())
			c.logger.Warn("computation submission failed", slog.Any("key", key), slog.Any("error", err))
			return nil, err
		}
		c.metrics.Entries(c.table.len())
		c.maybeEvict()
	} else {
		c.metrics.Hit()
	}

	e.touch(c.clock.Now().UnixNano())
	return e.handle, nil
}

// Size returns the number of cached keys, including the ones whose computation is still pending.
func (c *ComputeCache[K, V]) Size() int {
	return c.table.len()
}

// Close stops the executor created by the cache and waits for the computations it is running.
// An executor given by WithExecutor is left untouched.
// Get keeps returning cached handles after Close, but fails to compute new keys.
func (c *ComputeCache[K, V]) Close() error {
	if c.ownedPool == nil {
		return nil
	}
	return c.ownedPool.Close()
}

// task wraps the computation of e for the executor.
func (c *ComputeCache[K, V]) task(ctx context.Context, e *entry[K, V], computation Computation[V]) func() {
	return func() {
		var v V
		err := panicutil.Capture(func() (err error) {
			if err := ctx.Err(); err != nil {
				// canceled while queued
				return err
			}
			v, err = computation(ctx)
			return err
		}, func() {
			c.complete(ctx, e, v, ErrGoexit)
		})
		c.complete(ctx, e, v, err)
	}
}

// complete settles the handle of e. A failure caused by canceling the computation's context drops the entry first,
// so that a waiter retrying after the failure never gets the canceled handle back.
func (c *ComputeCache[K, V]) complete(ctx context.Context, e *entry[K, V], v V, err error) {
	if err != nil && ctx.Err() != nil {
		if c.table.remove(e.key, e) {
			c.metrics.Entries(c.table.len())
			c.logger.Debug("canceled computation dropped", slog.Any("key", e.key), slog.Any("error", err))
		}
	}
	e.handle.settle(v, err)
}
