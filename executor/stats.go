package executor

import (
	"sync/atomic"

	"github.com/sourcegraph/conc/panics"
)

// Stats is a snapshot of pool counters.
type Stats struct {
	Submitted int64
	Rejected  int64
	Running   int64
	Pending   int64
	Panicked  int64
}

type counters struct {
	submitted atomic.Int64
	rejected  atomic.Int64
	running   atomic.Int64
	panicked  atomic.Int64
}

// run executes the task and keeps a task panic from taking the worker down with it.
func (c *counters) run(task func()) {
	c.running.Add(1)
	defer c.running.Add(-1)

	var catcher panics.Catcher
	catcher.Try(task)
	if catcher.Recovered() != nil {
		c.panicked.Add(1)
	}
}

func (c *counters) snapshot() Stats {
	return Stats{
		Submitted: c.submitted.Load(),
		Rejected:  c.rejected.Load(),
		Running:   c.running.Load(),
		Panicked:  c.panicked.Load(),
	}
}
