// internal/sched/schedulerEvent.go

package sched

import (
	"time"
)

// StatusKind represents the type of scheduler event
type StatusKind int

const (
	StatusIdle StatusKind = iota
	StatusEnqueue
	StatusCancel
	StatusFinish
	StatusSkip
	StatusTick
)

// StatusEvent is emitted on every tick and on key task transitions
type StatusEvent struct {
	Time     time.Time
	Kind     StatusKind
	TaskID   TaskID
	Priority int
	Core     int
}

func (sk StatusKind) String() string {
	switch sk {
	case StatusIdle:
		return "Idle"
	case StatusEnqueue:
		return "Enqueued"
	case StatusCancel:
		return "Cancel"
	case StatusFinish:
		return "Finish"
	case StatusSkip:
		return "Skip"
	case StatusTick:
		return "Tick"
	default:
		return "Unknown"
	}
}
