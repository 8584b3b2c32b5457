// Package executor provides goroutine pools that satisfy the computecache.Executor interface.
//
// Two saturation policies are available:
//   - WorkerPool queues tasks without bound and runs at most N of them at a time.
//   - BoundedPool never queues: once N tasks are running, Submit fails with ErrRejected.
//
// Both pools recover panics raised by tasks and count them in Stats.
package executor
