// internal/sched/scheduler.go

package sched

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/rs/zerolog"

	"dspirq/internal/platform"
)

// Submitter hands a running task to the layer that executes it.
type Submitter interface {
	Submit(ctx context.Context, t *Task) error
}

// Stats are cumulative task counters.
type Stats struct {
	Scheduled uint64
	Finished  uint64
	Skipped   uint64
	Dropped   uint64 // status events lost because nobody was reading
}

// Scheduler owns task bookkeeping: it decides what gets submitted, tracks
// tasks in flight, and receives exactly one completion per submitted task.
type Scheduler struct {
	mu        sync.Mutex       // protects tasks
	tasks     *treemap.Map     // in-flight tasks by ID
	submitter Submitter        // executes running tasks
	statusCh  chan StatusEvent // channel for status events
	nextID    atomic.Uint64

	scheduled, finished, skipped, dropped atomic.Uint64

	log zerolog.Logger
}

// New creates a Scheduler. Bind must be called before Schedule.
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		tasks:    treemap.NewWith(cmp),
		statusCh: make(chan StatusEvent, 256), // buffered channel for status events
		log:      log.With().Str("component", "sched").Logger(),
	}
}

// Bind sets the layer tasks are submitted to.
func (s *Scheduler) Bind(sub Submitter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitter = sub
}

// NextID returns a fresh task id.
func (s *Scheduler) NextID() TaskID { return TaskID(s.nextID.Add(1)) }

// StatusChannel exposes read‑only stream (optional consumers).
func (s *Scheduler) StatusChannel() <-chan StatusEvent { return s.statusCh }

// Schedule marks t running and submits it on the core carried by ctx.
func (s *Scheduler) Schedule(ctx context.Context, t *Task) error {
	if t.Func == nil {
		return fmt.Errorf("task %d has no callback", t.ID)
	}
	if !t.Transition(StateInit, StateQueued) && !t.Transition(StateCompleted, StateQueued) {
		return fmt.Errorf("task %d cannot be scheduled in state %s", t.ID, t.State())
	}

	s.mu.Lock()
	sub := s.submitter
	if _, dup := s.tasks.Get(t.ID); dup {
		s.mu.Unlock()
		t.SetState(StateInit)
		return fmt.Errorf("task %d already exists", t.ID)
	}
	if sub == nil {
		s.mu.Unlock()
		t.SetState(StateInit)
		return fmt.Errorf("task %d: no submitter bound", t.ID)
	}
	s.tasks.Put(t.ID, t)
	s.mu.Unlock()

	t.SetState(StateRunning)
	s.scheduled.Add(1)
	s.emit(ctx, StatusEnqueue, t)

	// The task may complete before Submit returns, since the interrupt can
	// fire as soon as it is asserted.
	if err := sub.Submit(ctx, t); err != nil {
		s.mu.Lock()
		s.tasks.Remove(t.ID)
		s.mu.Unlock()
		t.SetState(StateInit)
		return fmt.Errorf("submit task %d: %w", t.ID, err)
	}
	return nil
}

// Cancel invalidates a running task. The task is still reported complete
// once the layer reaches it, but its callback will not run.
func (s *Scheduler) Cancel(id TaskID) error {
	s.mu.Lock()
	v, ok := s.tasks.Get(id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("no such task %d", id)
	}
	t := v.(*Task)
	if !t.Transition(StateRunning, StateCancelled) {
		return fmt.Errorf("task %d cannot be cancelled in state %s", id, t.State())
	}
	s.emit(context.Background(), StatusCancel, t)
	return nil
}

// NotifyComplete is called once for every submitted task that was either
// invoked or skipped. It may run in interrupt context.
func (s *Scheduler) NotifyComplete(ctx context.Context, t *Task) {
	s.mu.Lock()
	_, ok := s.tasks.Get(t.ID)
	if ok {
		s.tasks.Remove(t.ID)
	}
	s.mu.Unlock()
	if !ok {
		s.log.Error().Uint64("task", uint64(t.ID)).Msg("completion for a task not in flight")
		return
	}

	if t.Transition(StateRunning, StateCompleted) {
		s.finished.Add(1)
		s.emit(ctx, StatusFinish, t)
		return
	}
	s.skipped.Add(1)
	s.emit(ctx, StatusSkip, t)
}

// InFlight returns the ids of submitted tasks not yet completed, in id order.
func (s *Scheduler) InFlight() []TaskID {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]TaskID, 0, s.tasks.Size())
	for _, k := range s.tasks.Keys() {
		ids = append(ids, k.(TaskID))
	}
	return ids
}

// Stats returns the cumulative counters.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Scheduled: s.scheduled.Load(),
		Finished:  s.finished.Load(),
		Skipped:   s.skipped.Load(),
		Dropped:   s.dropped.Load(),
	}
}

// Tick emits a tick event.
func (s *Scheduler) Tick(ctx context.Context) {
	s.emit(ctx, StatusTick, nil)
}

// Run consumes status events and logs them until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-s.statusCh:
			s.handleEvent(ev)
		}
	}
}

// emit never blocks: it may be called from interrupt context.
func (s *Scheduler) emit(ctx context.Context, kind StatusKind, t *Task) {
	ev := StatusEvent{
		Time: time.Now(),
		Kind: kind,
		Core: coreOf(ctx),
	}
	if t != nil {
		ev.TaskID = t.ID
		ev.Priority = t.Priority
	}
	select {
	case s.statusCh <- ev:
	default:
		s.dropped.Add(1)
	}
}

func (s *Scheduler) handleEvent(ev StatusEvent) {
	// ticks are periodic, skip them for the brevity of output
	if ev.Kind == StatusTick {
		return
	}
	s.log.Debug().
		Time("at", ev.Time).
		Str("event", ev.Kind.String()).
		Uint64("task", uint64(ev.TaskID)).
		Int("priority", ev.Priority).
		Int("core", ev.Core).
		Msg("task status")
}

func coreOf(ctx context.Context) int {
	if c := platform.CoreFromContext(ctx); c != nil {
		return c.ID()
	}
	return -1
}

// cmp orders the in-flight table by task id.
func cmp(a, b any) int {
	ka, kb := a.(TaskID), b.(TaskID)
	switch {
	case ka < kb:
		return -1
	case ka > kb:
		return 1
	default:
		return 0
	}
}
