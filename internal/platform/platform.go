// internal/platform/platform.go

package platform

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"dspirq/internal/irq"
)

// Platform is the set of cores and their interrupt lines.
type Platform struct {
	cfg   Config
	cores []*Core
	log   zerolog.Logger
}

// New builds the cores and declares the task lines on every controller.
func New(cfg Config, log zerolog.Logger) *Platform {
	cfg.clamp()
	p := &Platform{cfg: cfg, log: log}
	for i := 0; i < cfg.Cores; i++ {
		c := newCore(i, cfg.PinCores, log)
		lines := []Line{cfg.IRQ.Low, cfg.IRQ.High}
		if cfg.TaskLevels > 2 {
			lines = append(lines, cfg.IRQ.Med)
		}
		for _, l := range lines {
			c.chip.Declare(irq.ID(l.ID), l.Priority)
		}
		p.cores = append(p.cores, c)
	}
	return p
}

// Config returns the (clamped) configuration the platform was built with.
func (p *Platform) Config() Config { return p.cfg }

// Cores returns every core, indexed by id.
func (p *Platform) Cores() []*Core { return p.cores }

// Core returns core i or nil.
func (p *Platform) Core(i int) *Core {
	if i < 0 || i >= len(p.cores) {
		return nil
	}
	return p.cores[i]
}

// Run starts every core's run loop and blocks until ctx is done.
func (p *Platform) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, c := range p.cores {
		c := c
		g.Go(func() error { return c.Run(ctx) })
	}
	return g.Wait()
}

// Boot runs fn on every core concurrently and returns the first error.
func (p *Platform) Boot(ctx context.Context, fn func(ctx context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range p.cores {
		c := c
		g.Go(func() error {
			var err error
			if derr := c.Do(gctx, func(cctx context.Context) { err = fn(cctx) }); derr != nil {
				return derr
			}
			return err
		})
	}
	return g.Wait()
}
