// internal/irqtask/queue.go

package irqtask

import (
	"github.com/emirpasic/gods/queues/linkedlistqueue"

	"dspirq/internal/irq"
	"dspirq/internal/platform"
	"dspirq/internal/sched"
)

// CoreQueue is the FIFO of deferred tasks for one (core, level) pair.
// The task sequence and the binding are only touched under lock.
type CoreQueue struct {
	lock  platform.SpinLock
	tasks *linkedlistqueue.Queue // of *sched.Task
	irq   irq.ID
	level Level
	core  *platform.Core
}

// IRQ returns the bound interrupt line.
func (q *CoreQueue) IRQ() irq.ID { return q.irq }

// Level returns the urgency level served by the queue.
func (q *CoreQueue) Level() Level { return q.level }

// Len returns the number of queued tasks. It must be called on the owning core.
func (q *CoreQueue) Len() int {
	flags := q.lock.LockIRQ(q.core)
	n := q.tasks.Size()
	q.lock.UnlockIRQ(q.core, flags)
	return n
}

// push appends t at the tail. Caller holds the lock.
func (q *CoreQueue) push(t *sched.Task) {
	t.Link.Attach(q)
	q.tasks.Enqueue(t)
}

// pop detaches the head task. Caller holds the lock.
func (q *CoreQueue) pop() *sched.Task {
	v, ok := q.tasks.Dequeue()
	if !ok {
		return nil
	}
	t := v.(*sched.Task)
	t.Link.Detach()
	return t
}
