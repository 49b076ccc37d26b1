// internal/irqtask/drain.go

package irqtask

import (
	"context"
	"fmt"

	"dspirq/internal/sched"
)

// drain is the interrupt handler bound to every task line. It runs on the
// core owning the queue, detaches one task at a time and invokes it with
// the lock released, so a callback may submit to this same queue.
func (b *Binder) drain(ctx context.Context, arg any) {
	q := arg.(*CoreQueue)
	core := q.core

	flags := q.lock.LockIRQ(core)

	// clear under the lock: a submit either lands before the clear and is
	// drained below, or lands after it and re-raises the line
	core.Controller().Clear(q.irq)

	for {
		t := q.pop()
		if t == nil {
			break
		}
		q.lock.UnlockIRQ(core, flags)

		// cancellation may have happened any time since submit
		if t.State() == sched.StateRunning {
			if err := invoke(ctx, t); err != nil {
				b.log.Error().
					Err(err).
					Uint64("task", uint64(t.ID)).
					Int("core", core.ID()).
					Str("level", q.level.String()).
					Msg("task callback failed")
			}
		} else {
			b.log.Debug().
				Uint64("task", uint64(t.ID)).
				Str("state", t.State().String()).
				Msg("task skipped")
		}
		if b.completer != nil {
			b.completer.NotifyComplete(ctx, t)
		}

		flags = q.lock.LockIRQ(core)
	}

	q.lock.UnlockIRQ(core, flags)
}

// invoke runs the callback and turns a panic into ErrTaskFault so the
// queue keeps draining.
func invoke(ctx context.Context, t *sched.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: task %d: %v", ErrTaskFault, t.ID, r)
		}
	}()
	if t.Func == nil {
		return nil
	}
	return t.Func(ctx, t.Data)
}
