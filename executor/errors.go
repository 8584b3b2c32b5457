package executor

import "errors"

var (
	ErrClosed   = errors.New("executor is closed")
	ErrRejected = errors.New("executor rejected the task: all workers are busy")
)
