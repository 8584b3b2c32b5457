package computecache

import (
	"context"
	"sync/atomic"
)

// Handle is the shared result of a single computation.
// Every caller that asked for the same key while it was cached holds the same Handle.
// It is settled exactly once, with either a value or an error.
type Handle[V ValueConstraint] struct {
	done    chan struct{}
	settled atomic.Bool
	value   V
	err     error

	cancel context.CancelFunc
	cloner ValueCloner[V]
}

func newHandle[V ValueConstraint](cancel context.CancelFunc, cloner ValueCloner[V]) *Handle[V] {
	return &Handle[V]{
		done:   make(chan struct{}),
		cancel: cancel,
		cloner: cloner,
	}
}

// Done returns a channel that is closed when the handle is settled.
func (h *Handle[V]) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the handle is settled or ctx is done.
// Giving up on ctx does not cancel the computation; use Cancel for that.
func (h *Handle[V]) Wait(ctx context.Context) (V, error) {
	select {
	case <-h.done:
		return h.read()
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// Poll returns the settled result without blocking.
// The second return value is false while the computation is still pending.
func (h *Handle[V]) Poll() (V, bool, error) {
	select {
	case <-h.done:
		v, err := h.read()
		return v, true, err
	default:
		var zero V
		return zero, false, nil
	}
}

// Cancel cancels the context passed to the computation.
// A computation that fails because of it is dropped from the cache, so the next Get for the key starts over.
// Cancel does nothing once the handle is settled.
func (h *Handle[V]) Cancel() {
	if h.cancel != nil {
		h.cancel()
	}
}

func (h *Handle[V]) read() (V, error) {
	if h.err != nil {
		var zero V
		return zero, h.err
	}
	return h.cloner.CloneValue(h.value), nil
}

// settle stores the result and wakes every waiter. Only the first call has any effect.
func (h *Handle[V]) settle(v V, err error) bool {
	if !h.settled.CompareAndSwap(false, true) {
		return false
	}
	h.value, h.err = v, err
	close(h.done)
	if h.cancel != nil {
		h.cancel()
	}
	return true
}
