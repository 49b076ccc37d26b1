// internal/irqtask/submit.go

package irqtask

import (
	"context"
	"fmt"

	"dspirq/internal/sched"
)

// Submit queues a running task on the calling core and raises the interrupt
// of its level. The task must not already be linked into a queue.
func (b *Binder) Submit(ctx context.Context, t *sched.Task) error {
	lvl, id, clamped := MapLevel(t.Priority, b.levels, b.lines)
	if clamped {
		b.log.Warn().
			Uint64("task", uint64(t.ID)).
			Int("priority", t.Priority).
			Str("level", lvl.String()).
			Msg("task priority out of range, clamped")
	}

	q, err := b.reg.QueueFor(ctx, lvl)
	if err != nil {
		return fmt.Errorf("submit task %d: %w", t.ID, err)
	}

	core := q.core
	flags := q.lock.LockIRQ(core)
	if b.debug && t.Link.Linked() {
		q.lock.UnlockIRQ(core, flags)
		return fmt.Errorf("submit task %d: %w", t.ID, ErrAlreadyLinked)
	}
	q.push(t)
	q.lock.UnlockIRQ(core, flags)

	b.log.Debug().
		Uint64("task", uint64(t.ID)).
		Int("core", core.ID()).
		Str("level", lvl.String()).
		Uint32("irq", uint32(id)).
		Msg("task submitted")

	core.Controller().Set(q.irq)
	return nil
}
