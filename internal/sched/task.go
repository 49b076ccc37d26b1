package sched

import (
	"context"
	"sync/atomic"
)

// TaskID uniquely identifies a task in the scheduler.
type TaskID uint64

// Task priorities, 0 is the most urgent.
const (
	PriorityHigh = 0
	PriorityMed  = 4
	PriorityLow  = 9
)

// TaskState is the lifecycle state of a task.
type TaskState int32

const (
	StateInit TaskState = iota
	StateQueued
	StateRunning
	StateCancelled
	StateCompleted
)

func (s TaskState) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateQueued:
		return "Queued"
	case StateRunning:
		return "Running"
	case StateCancelled:
		return "Cancelled"
	case StateCompleted:
		return "Completed"
	default:
		return "Unknown"
	}
}

// TaskFunc is the work of a task. ctx identifies the executing core.
type TaskFunc func(ctx context.Context, data any) error

// Task represents one deferred unit of work.
type Task struct {
	ID       TaskID
	Priority int      // PriorityHigh - PriorityLow, where 0 is the highest priority
	Func     TaskFunc // callback run in interrupt context
	Data     any      // opaque argument for Func

	// Link belongs to the interrupt task layer, which threads the task
	// through exactly one of its queues.
	Link Link

	state atomic.Int32
}

// NewTask creates a task in StateInit.
// NOTE: the priority is not clamped here, out of range values are clamped when mapped to a level.
func NewTask(id TaskID, priority int, fn TaskFunc, data any) *Task {
	return &Task{
		ID:       id,
		Priority: priority,
		Func:     fn,
		Data:     data,
	}
}

// State returns the current state.
func (t *Task) State() TaskState { return TaskState(t.state.Load()) }

// SetState stores a new state.
func (t *Task) SetState(s TaskState) { t.state.Store(int32(s)) }

// Transition moves the task to state to if it is still in state from.
func (t *Task) Transition(from, to TaskState) bool {
	return t.state.CompareAndSwap(int32(from), int32(to))
}

// Link records the queue a task is currently threaded into.
// It is only touched while holding that queue's lock.
type Link struct {
	owner any
}

// Attach links the task to owner. Attaching a linked task is a caller bug
// and is not checked here.
func (l *Link) Attach(owner any) { l.owner = owner }

// Detach unlinks the task.
func (l *Link) Detach() { l.owner = nil }

// Linked reports whether the task is threaded into a queue.
func (l *Link) Linked() bool { return l.owner != nil }

// Owner returns the queue the task is threaded into, or nil.
func (l *Link) Owner() any { return l.owner }
