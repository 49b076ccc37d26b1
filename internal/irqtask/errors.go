package irqtask

import "errors"

var (
	// ErrNoCore means the context does not identify an executing core.
	ErrNoCore = errors.New("irqtask: no executing core in context")
	// ErrNotAllocated means the core's queues are not allocated (or were freed).
	ErrNotAllocated = errors.New("irqtask: queues not allocated")
	// ErrAllocated means allocation ran twice on the same core.
	ErrAllocated = errors.New("irqtask: queues already allocated")
	// ErrAlreadyLinked is only reported with debug checks enabled.
	ErrAlreadyLinked = errors.New("irqtask: task already linked into a queue")
	// ErrTaskFault wraps a panic raised by a task callback.
	ErrTaskFault = errors.New("irqtask: task callback faulted")
)
