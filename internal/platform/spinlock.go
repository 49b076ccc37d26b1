// internal/platform/spinlock.go

package platform

import (
	"sync"

	"dspirq/internal/irq"
)

// SpinLock is a core-local lock. LockIRQ masks the core's interrupts before
// taking the lock so a handler on the same core can never spin on it.
type SpinLock struct {
	mu sync.Mutex
}

// LockIRQ masks local interrupts on c and acquires the lock.
func (l *SpinLock) LockIRQ(c *Core) irq.Mask {
	flags := c.chip.LocalDisable()
	l.mu.Lock()
	return flags
}

// UnlockIRQ releases the lock and restores the saved interrupt state, which
// may immediately deliver pending interrupts.
func (l *SpinLock) UnlockIRQ(c *Core, flags irq.Mask) {
	l.mu.Unlock()
	c.chip.LocalRestore(flags)
}
