package computecache

import "errors"

var (
	// ErrSubmissionFailed is returned from Get when the executor refuses a computation.
	// The executor's own error is wrapped alongside it.
	ErrSubmissionFailed = errors.New("unable to submit computation to executor")

	// ErrGoexit is the error of a handle whose computation called runtime.Goexit.
	ErrGoexit = errors.New("runtime.Goexit is called")
)
