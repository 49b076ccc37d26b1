// internal/irqtask/binder.go

package irqtask

import (
	"context"

	"github.com/rs/zerolog"

	"dspirq/internal/platform"
	"dspirq/internal/sched"
)

// Completer receives exactly one completion per task the drain reaches,
// whether it was invoked or skipped. It is called without any queue lock
// held and may submit new tasks.
type Completer interface {
	NotifyComplete(ctx context.Context, t *sched.Task)
}

// Option configures a Binder.
type Option func(*Binder)

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(b *Binder) { b.log = log }
}

// WithDebug turns on checks the hot path normally skips, such as rejecting
// a task that is already linked into a queue.
func WithDebug(on bool) Option {
	return func(b *Binder) { b.debug = on }
}

// Binder turns submitted tasks into software interrupts on the submitting
// core and drains them from the interrupt handlers.
type Binder struct {
	reg       *Registry
	completer Completer
	levels    int
	lines     Lines
	debug     bool
	log       zerolog.Logger
}

// New creates a Binder for the platform. completer is notified of every
// drained task.
func New(p *platform.Platform, completer Completer, opts ...Option) *Binder {
	cfg := p.Config()
	b := &Binder{
		completer: completer,
		lines:     LinesFromConfig(cfg.IRQ),
		debug:     cfg.Debug,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.With().Str("component", "irqtask").Logger()
	b.reg = NewRegistry(len(p.Cores()), cfg.TaskLevels, b.lines, platform.NewPool[CoreQueue](cfg.PoolSize()), b.log)
	b.levels = b.reg.Levels()
	return b
}

// Registry returns the per-core queue registry.
func (b *Binder) Registry() *Registry { return b.reg }

// Lines returns the interrupt line bound to each level.
func (b *Binder) Lines() Lines { return b.lines }
