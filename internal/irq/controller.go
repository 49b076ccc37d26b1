// internal/irq/controller.go

package irq

import (
	"context"
	"errors"
)

// ID identifies one interrupt line on a core's controller.
type ID uint32

// Flags modify how a registered line behaves around its handler.
type Flags uint32

const (
	// AutoUnmask re-enables the line after the handler returns. The handler
	// itself is expected to clear the underlying condition.
	AutoUnmask Flags = 1 << iota
)

// Handler runs in interrupt context on the core that owns the line.
// ctx carries that core.
type Handler func(ctx context.Context, arg any)

var (
	ErrNoLine = errors.New("irq: no such line")
	ErrBusy   = errors.New("irq: line already registered")
)

// Controller is the per-core interrupt controller contract.
type Controller interface {
	Register(id ID, flags Flags, h Handler, arg any) error
	Unregister(id ID)
	Enable(id ID)
	Disable(id ID)
	// Set asserts the line from software.
	Set(id ID)
	// Clear acknowledges the line. Clearing an already clear line is a no-op.
	Clear(id ID)
}

// Mask is the saved local interrupt state returned by LocalDisable.
type Mask bool

// Masker masks and restores all interrupts on the executing core.
type Masker interface {
	LocalDisable() Mask
	LocalRestore(m Mask)
}

// Chip is a controller together with the core's local mask.
type Chip interface {
	Controller
	Masker
}
