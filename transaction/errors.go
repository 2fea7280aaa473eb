package transaction

import "github.com/pkg/errors"

var (
	// ErrDeadlock is returned to a lock requester whose wait would close a
	// cycle in the waits-for graph. The transaction must abort and may be
	// retried from the start.
	ErrDeadlock = errors.New("transaction aborted: deadlock")

	// ErrAborted wakes a blocked requester whose transaction was released
	// from another goroutine.
	ErrAborted = errors.New("transaction aborted while waiting for a lock")
)
