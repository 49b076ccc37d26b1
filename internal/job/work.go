package job

import (
	"context"
	"time"
)

// SpinWork returns a runnable that busy-waits for the given duration.
// Interrupt context has no way to sleep, so simulated processing spins instead,
// and it gives up early once ctx is done.
func SpinWork(us int64) func(context.Context) error {
	budget := time.Duration(us) * time.Microsecond
	return func(ctx context.Context) error {
		deadline := time.Now().Add(budget)
		for time.Now().Before(deadline) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
		return nil
	}
}
