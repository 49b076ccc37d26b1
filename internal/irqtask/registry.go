// internal/irqtask/registry.go

package irqtask

import (
	"context"
	"fmt"

	"github.com/emirpasic/gods/queues/linkedlistqueue"
	"github.com/rs/zerolog"

	"dspirq/internal/platform"
)

// coreQueues are the per-level queue pointers of one core. On a two level
// platform the MED slot aliases the LOW queue.
type coreQueues [NumLevels]*CoreQueue

// Registry holds every core's queues, indexed by core id. A core only ever
// reads or writes its own entry, which it finds through the core carried by
// the context, never by an id chosen by the caller.
type Registry struct {
	levels int
	lines  Lines
	pool   *platform.Pool[CoreQueue]
	cores  []coreQueues
	log    zerolog.Logger
}

// NewRegistry creates an empty registry for the given number of cores.
func NewRegistry(cores, levels int, lines Lines, pool *platform.Pool[CoreQueue], log zerolog.Logger) *Registry {
	if levels != 2 {
		levels = NumLevels
	}
	return &Registry{
		levels: levels,
		lines:  lines,
		pool:   pool,
		cores:  make([]coreQueues, cores),
		log:    log,
	}
}

// Levels returns the number of distinct task levels on the platform.
func (r *Registry) Levels() int { return r.levels }

// QueueFor returns the calling core's queue for level.
func (r *Registry) QueueFor(ctx context.Context, level Level) (*CoreQueue, error) {
	slots, _, err := r.slots(ctx)
	if err != nil {
		return nil, err
	}
	if level < 0 || level >= NumLevels {
		level = LevelLow
	}
	q := slots[level]
	if q == nil {
		return nil, ErrNotAllocated
	}
	return q, nil
}

func (r *Registry) slots(ctx context.Context) (*coreQueues, *platform.Core, error) {
	c := platform.CoreFromContext(ctx)
	if c == nil {
		return nil, nil, ErrNoCore
	}
	if c.ID() < 0 || c.ID() >= len(r.cores) {
		return nil, nil, fmt.Errorf("core %d outside registry of %d: %w", c.ID(), len(r.cores), ErrNoCore)
	}
	return &r.cores[c.ID()], c, nil
}

// allocate creates the calling core's queues from the pool.
func (r *Registry) allocate(ctx context.Context) error {
	slots, c, err := r.slots(ctx)
	if err != nil {
		return err
	}
	if slots[LevelLow] != nil {
		return fmt.Errorf("core %d: %w", c.ID(), ErrAllocated)
	}

	for i := 0; i < r.levels; i++ {
		lvl := Level(i)
		q, err := r.pool.Alloc()
		if err != nil {
			return fmt.Errorf("allocate %s queue on core %d: %w", lvl, c.ID(), err)
		}
		q.tasks = linkedlistqueue.New()
		q.irq = r.lines[lvl]
		q.level = lvl
		q.core = c
		slots[lvl] = q
	}
	if r.levels < NumLevels {
		slots[LevelMed] = slots[LevelLow]
	}

	r.log.Info().Int("core", c.ID()).Int("levels", r.levels).Msg("task queues allocated")
	return nil
}

// free unbinds the calling core's interrupts and detaches its queues. The
// queue memory itself stays in the pool until the whole pool is reset.
// It returns how many queued tasks were abandoned.
func (r *Registry) free(ctx context.Context) (int, error) {
	slots, c, err := r.slots(ctx)
	if err != nil {
		return 0, err
	}

	abandoned := 0
	ctrl := c.Controller()
	for i := 0; i < r.levels; i++ {
		lvl := Level(i)
		q := slots[lvl]
		if q == nil {
			continue
		}
		flags := q.lock.LockIRQ(c)
		ctrl.Disable(q.irq)
		ctrl.Unregister(q.irq)
		abandoned += q.tasks.Size()
		slots[lvl] = nil
		q.lock.UnlockIRQ(c, flags)
	}
	slots[LevelMed] = nil

	if abandoned > 0 {
		r.log.Warn().Int("core", c.ID()).Int("tasks", abandoned).Msg("queued tasks abandoned at teardown")
	}
	return abandoned, nil
}
