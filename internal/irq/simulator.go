// internal/irq/simulator.go

package irq

import (
	"context"
	"sync"

	"github.com/emirpasic/gods/trees/redblacktree"
	"github.com/rs/zerolog"
)

// LineStats counts what happened on one line since it was declared.
type LineStats struct {
	Asserts    uint64 // Set calls
	Deliveries uint64 // handler invocations
	Clears     uint64 // Clear calls that actually dropped a pending condition
}

// LineState is a snapshot of a line's control bits.
type LineState struct {
	Registered bool
	Enabled    bool
	Pending    bool
	Priority   int
}

type line struct {
	id       ID
	priority int // controller priority, higher preempts lower
	handler  Handler
	arg      any
	flags    Flags

	registered bool
	enabled    bool
	pending    bool

	stats LineStats
}

// Simulator models one core's interrupt controller.
//
// A pending, registered and enabled line is delivered synchronously on the
// calling goroutine as soon as local interrupts are unmasked and its priority
// is above the priority currently in service. All methods must be called
// from the owning core's execution context.
type Simulator struct {
	mu      sync.Mutex
	ctx     context.Context
	lines   map[ID]*line
	pending *redblacktree.Tree // pendingKey -> *line, highest priority first
	masked  bool
	current int // in-service priority, 0 at thread level
	log     zerolog.Logger
}

// NewSimulator creates a controller whose handlers receive ctx.
func NewSimulator(ctx context.Context, log zerolog.Logger) *Simulator {
	return &Simulator{
		ctx:     ctx,
		lines:   make(map[ID]*line),
		pending: redblacktree.NewWith(cmp),
		log:     log.With().Str("component", "irq").Logger(),
	}
}

// Declare makes a line exist with the given controller priority (> 0).
func (s *Simulator) Declare(id ID, priority int) {
	if priority < 1 {
		priority = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.lines[id]; ok {
		if l.pending {
			s.pending.Remove(pendingKey{l.priority, id})
			s.pending.Put(pendingKey{priority, id}, l)
		}
		l.priority = priority
		return
	}
	s.lines[id] = &line{id: id, priority: priority}
}

func (s *Simulator) Register(id ID, flags Flags, h Handler, arg any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lines[id]
	if !ok {
		return ErrNoLine
	}
	if l.registered {
		return ErrBusy
	}
	l.handler, l.arg, l.flags = h, arg, flags
	l.registered = true
	return nil
}

func (s *Simulator) Unregister(id ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.lines[id]; ok {
		l.handler, l.arg, l.flags = nil, nil, 0
		l.registered = false
		l.enabled = false
	}
}

func (s *Simulator) Enable(id ID) {
	s.mu.Lock()
	l, ok := s.lines[id]
	if ok {
		l.enabled = true
	}
	s.mu.Unlock()
	if ok {
		s.service()
	}
}

func (s *Simulator) Disable(id ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.lines[id]; ok {
		l.enabled = false
	}
}

func (s *Simulator) Set(id ID) {
	s.mu.Lock()
	l, ok := s.lines[id]
	if !ok {
		s.mu.Unlock()
		s.log.Warn().Uint32("irq", uint32(id)).Msg("assert on undeclared line")
		return
	}
	l.stats.Asserts++
	if !l.pending {
		l.pending = true
		s.pending.Put(pendingKey{l.priority, id}, l)
	}
	s.mu.Unlock()
	s.service()
}

func (s *Simulator) Clear(id ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lines[id]
	if !ok || !l.pending {
		return
	}
	l.pending = false
	l.stats.Clears++
	s.pending.Remove(pendingKey{l.priority, id})
}

// LocalDisable masks every line on this core and returns the previous state.
func (s *Simulator) LocalDisable() Mask {
	s.mu.Lock()
	prev := s.masked
	s.masked = true
	s.mu.Unlock()
	return Mask(prev)
}

// LocalRestore restores a state saved by LocalDisable. Unmasking delivers
// whatever became pending in between.
func (s *Simulator) LocalRestore(m Mask) {
	s.mu.Lock()
	s.masked = bool(m)
	s.mu.Unlock()
	if !m {
		s.service()
	}
}

// Stats returns the counters for a line.
func (s *Simulator) Stats(id ID) LineStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.lines[id]; ok {
		return l.stats
	}
	return LineStats{}
}

// State returns the control bits for a line.
func (s *Simulator) State(id ID) (LineState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lines[id]
	if !ok {
		return LineState{}, false
	}
	return LineState{
		Registered: l.registered,
		Enabled:    l.enabled,
		Pending:    l.pending,
		Priority:   l.priority,
	}, true
}

// service delivers deliverable lines until none is left. Nested calls made
// from inside a handler only deliver lines of strictly higher priority.
func (s *Simulator) service() {
	for {
		s.mu.Lock()
		l := s.next()
		if l == nil {
			s.mu.Unlock()
			return
		}
		prev := s.current
		s.current = l.priority
		// the line stays masked while in service
		l.enabled = false
		l.stats.Deliveries++
		h, arg := l.handler, l.arg
		s.mu.Unlock()

		h(s.ctx, arg)

		s.mu.Lock()
		s.current = prev
		if l.registered && l.flags&AutoUnmask != 0 {
			l.enabled = true
		}
		s.mu.Unlock()
	}
}

// next picks the highest priority deliverable line. Caller holds s.mu.
func (s *Simulator) next() *line {
	if s.masked {
		return nil
	}
	it := s.pending.Iterator()
	for it.Next() {
		l := it.Value().(*line)
		if l.priority <= s.current {
			// ordered by priority, nothing further can preempt
			return nil
		}
		if l.registered && l.enabled && l.handler != nil {
			return l
		}
	}
	return nil
}

// pendingKey orders the pending set by descending priority, then by id.
type pendingKey struct {
	priority int
	id       ID
}

func cmp(a, b any) int {
	ka, kb := a.(pendingKey), b.(pendingKey)
	switch {
	case ka.priority > kb.priority:
		return -1
	case ka.priority < kb.priority:
		return 1
	case ka.id < kb.id:
		return -1
	case ka.id > kb.id:
		return 1
	default:
		return 0
	}
}
