package computecache

import (
	"context"
	"time"
)

// KeyConstraint is an interface for key constraints.
type KeyConstraint interface {
	comparable
}

// ValueConstraint is an interface for value constraints.
type ValueConstraint interface {
	any
}

// Computation produces the value for a key.
// The context is canceled when a holder of the handle calls Handle.Cancel.
type Computation[V ValueConstraint] func(ctx context.Context) (V, error)

// Executor is an interface for the execution substrate that runs computations.
// Implementations must be thread-safe.
type Executor interface {
	// Submit schedules the task for asynchronous execution.
	// It must not wait for the task to finish.
	// If the task cannot be accepted (e.g. the executor is saturated or closed), it returns an error
	// and the task is never run.
	Submit(task func()) error
}

// ExecutorFunc is a function type that implements the Executor interface.
type ExecutorFunc func(task func()) error

// Submit calls the function.
func (f ExecutorFunc) Submit(task func()) error {
	return f(task)
}

// Evictable is an interface for caches that can run an eviction pass on demand.
// Implementations must be thread-safe.
type Evictable interface {
	// Evict removes stale entries and returns how many entries were removed.
	Evict(context.Context) (int, error)
}

// Metrics receives instrumentation events from the cache.
// Implementations must be thread-safe.
type Metrics interface {
	// Hit is called when Get finds an existing entry.
	Hit()

	// Miss is called when Get installs a new entry.
	Miss()

	// SubmissionFailed is called when the executor rejects a computation.
	SubmissionFailed()

	// EvictionPass is called after every eviction pass that passed the gates.
	EvictionPass(removed int, elapsed time.Duration)

	// Entries reports the current number of entries.
	Entries(n int)
}

// NopMetrics is a Metrics implementation that does nothing.
type NopMetrics struct{}

var _ Metrics = NopMetrics{}

func (NopMetrics) Hit()                            {}
func (NopMetrics) Miss()                           {}
func (NopMetrics) SubmissionFailed()               {}
func (NopMetrics) EvictionPass(int, time.Duration) {}
func (NopMetrics) Entries(int)                     {}
