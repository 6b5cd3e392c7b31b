package task

import "errors"

var (
	// ErrNoFreeSlot means the table has no FREE or STOP slot left.
	ErrNoFreeSlot = errors.New("task: table full")
	// ErrNoCurrent means an operation that needs a running task was
	// invoked without one.
	ErrNoCurrent = errors.New("task: no current task")
	// ErrStackCopy means fork found a stack page unmapped in the
	// parent or the child.
	ErrStackCopy = errors.New("task: stack page missing during fork")
)
