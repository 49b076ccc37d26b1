// internal/irqtask/level.go

package irqtask

import (
	"dspirq/internal/irq"
	"dspirq/internal/platform"
	"dspirq/internal/sched"
)

// Level is an urgency band, each bound to its own interrupt line.
// The numbering is the allocation order: a platform with two task lines
// allocates LevelLow and LevelHigh only.
type Level int

const (
	LevelLow Level = iota
	LevelHigh
	LevelMed
)

// NumLevels is the number of urgency bands.
const NumLevels = 3

func (l Level) String() string {
	switch l {
	case LevelLow:
		return "low"
	case LevelHigh:
		return "high"
	case LevelMed:
		return "med"
	default:
		return "unknown"
	}
}

// Urgency ranks levels from least (0) to most (2) urgent.
func (l Level) Urgency() int {
	switch l {
	case LevelHigh:
		return 2
	case LevelMed:
		return 1
	default:
		return 0
	}
}

// Lines maps each level to its fixed interrupt line.
type Lines [NumLevels]irq.ID

// LinesFromConfig reads the task lines of a platform config.
func LinesFromConfig(c platform.IRQLines) Lines {
	var l Lines
	l[LevelLow] = irq.ID(c.Low.ID)
	l[LevelHigh] = irq.ID(c.High.ID)
	l[LevelMed] = irq.ID(c.Med.ID)
	return l
}

// MapLevel picks the urgency level and interrupt line for a task priority.
// Priorities outside [sched.PriorityHigh, sched.PriorityLow] are clamped to
// the nearest band and reported as clamped. With fewer than three task
// levels the MED pivot collapses into LOW.
func MapLevel(priority, levels int, lines Lines) (lvl Level, id irq.ID, clamped bool) {
	switch {
	case priority < sched.PriorityHigh:
		lvl, clamped = LevelHigh, true
	case priority > sched.PriorityLow:
		lvl, clamped = LevelLow, true
	case priority < sched.PriorityMed:
		lvl = LevelHigh
	case priority > sched.PriorityMed:
		lvl = LevelLow
	case levels > 2:
		lvl = LevelMed
	default:
		lvl = LevelLow
	}
	return lvl, lines[lvl], clamped
}
