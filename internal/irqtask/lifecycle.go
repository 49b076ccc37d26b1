// internal/irqtask/lifecycle.go

package irqtask

import (
	"context"
	"fmt"

	"dspirq/internal/irq"
)

// AllocateAll allocates the calling core's queues. An error is fatal for
// the boot: there is no way to run without them.
func (b *Binder) AllocateAll(ctx context.Context) error {
	return b.reg.allocate(ctx)
}

// AssignAll registers the drain handler on each level's line of the calling
// core and enables it. Lines auto-unmask since the handler clears them.
func (b *Binder) AssignAll(ctx context.Context) error {
	slots, c, err := b.reg.slots(ctx)
	if err != nil {
		return err
	}
	ctrl := c.Controller()
	for i := 0; i < b.levels; i++ {
		q := slots[i]
		if q == nil {
			return fmt.Errorf("assign %s on core %d: %w", Level(i), c.ID(), ErrNotAllocated)
		}
		if err := ctrl.Register(q.irq, irq.AutoUnmask, b.drain, q); err != nil {
			return fmt.Errorf("register irq %d on core %d: %w", q.irq, c.ID(), err)
		}
		ctrl.Enable(q.irq)
	}
	b.log.Info().Int("core", c.ID()).Msg("task interrupts assigned")
	return nil
}

// Boot allocates and assigns the calling core's queues.
func (b *Binder) Boot(ctx context.Context) error {
	if err := b.AllocateAll(ctx); err != nil {
		return err
	}
	return b.AssignAll(ctx)
}

// FreeAll disables and unregisters the calling core's task interrupts and
// detaches its queues. Queue memory is reclaimed with the whole pool.
func (b *Binder) FreeAll(ctx context.Context) error {
	_, err := b.reg.free(ctx)
	return err
}

// Reclaim returns every queue slot to the pool at once. It is only valid
// after FreeAll ran on every core.
func (b *Binder) Reclaim() {
	b.reg.pool.Reset()
}
