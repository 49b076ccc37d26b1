// internal/platform/core.go

package platform

import (
	"context"
	"errors"
	"runtime"

	"github.com/rs/zerolog"

	"dspirq/internal/irq"
)

// ErrCoreStopped is returned by Do when the core's run loop is not accepting work.
var ErrCoreStopped = errors.New("platform: core stopped")

type coreKey struct{}

// WithCore returns a context that identifies c as the executing core.
func WithCore(ctx context.Context, c *Core) context.Context {
	return context.WithValue(ctx, coreKey{}, c)
}

// CoreFromContext returns the executing core, or nil when ctx carries none.
func CoreFromContext(ctx context.Context) *Core {
	c, _ := ctx.Value(coreKey{}).(*Core)
	return c
}

// Core is one DSP core: an id, its interrupt controller, and a run loop that
// serialises everything executing on it.
type Core struct {
	id   int
	ctx  context.Context
	chip *irq.Simulator
	work chan func(context.Context)
	done chan struct{}
	pin  bool
	log  zerolog.Logger
}

func newCore(id int, pin bool, log zerolog.Logger) *Core {
	c := &Core{
		id:   id,
		work: make(chan func(context.Context)),
		done: make(chan struct{}),
		pin:  pin,
		log:  log.With().Int("core", id).Logger(),
	}
	c.ctx = WithCore(context.Background(), c)
	c.chip = irq.NewSimulator(c.ctx, c.log)
	return c
}

// ID returns the core index.
func (c *Core) ID() int { return c.id }

// Context returns a context carrying this core. Code using it must be running
// as this core, i.e. on the run loop or in a test that owns the core.
func (c *Core) Context() context.Context { return c.ctx }

// Controller returns the core-local interrupt controller.
func (c *Core) Controller() irq.Chip { return c.chip }

// Interrupts exposes the simulated controller for inspection.
func (c *Core) Interrupts() *irq.Simulator { return c.chip }

// Run executes posted work on a single locked OS thread until ctx is done.
func (c *Core) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(c.done)

	if c.pin {
		if err := pinCurrentThread(c.id); err != nil {
			c.log.Warn().Err(err).Msg("cpu pinning unavailable")
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-c.work:
			fn(c.ctx)
		}
	}
}

// Do runs fn on the core's run loop and waits for it to return.
func (c *Core) Do(ctx context.Context, fn func(ctx context.Context)) error {
	finished := make(chan struct{})
	wrapped := func(cctx context.Context) {
		defer close(finished)
		fn(cctx)
	}
	select {
	case c.work <- wrapped:
	case <-c.done:
		return ErrCoreStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-finished
	return nil
}
