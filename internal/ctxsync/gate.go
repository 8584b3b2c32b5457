package ctxsync

import (
	"context"
	"sync"
)

// Gate is a mutual exclusion gate whose holders either give up immediately or wait with a context.
// The zero value is an open gate.
type Gate struct {
	mu sync.Mutex
}

// TryEnter enters the gate without blocking. It reports whether the gate was entered.
func (g *Gate) TryEnter() bool {
	return g.mu.TryLock()
}

// EnterCtx enters the gate, waiting until it is free or ctx is done.
// If the context is done before the gate is entered, it returns the context error and the gate is not held.
func (g *Gate) EnterCtx(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if g.mu.TryLock() {
		return nil
	}

	entered := make(chan struct{})
	go func() {
		defer close(entered)
		g.mu.Lock()
	}()

	select {
	case <-entered:
		return nil
	case <-ctx.Done():
		go func() {
			<-entered
			g.mu.Unlock()
		}()
		return ctx.Err()
	}
}

// Leave leaves the gate.
func (g *Gate) Leave() {
	g.mu.Unlock()
}
