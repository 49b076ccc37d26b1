// internal/sched/tickclock.go

package sched

import (
	"context"
	"sync/atomic"
	"time"
)

// TickClock drives periodic work (one audio period per tick) and counts the
// ticks atomically.
type TickClock struct {
	interval time.Duration
	count    atomic.Int64
}

// NewTickClock creates a clock that ticks every interval.
func NewTickClock(interval time.Duration) *TickClock {
	if interval <= 0 {
		interval = time.Millisecond
	}
	return &TickClock{interval: interval}
}

// Run calls onTick once per tick until ctx is done.
func (c *TickClock) Run(ctx context.Context, onTick func(ctx context.Context, tick int64)) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			onTick(ctx, c.count.Add(1))
		}
	}
}

// Count returns the current tick count atomically.
func (c *TickClock) Count() int64 {
	return c.count.Load()
}
