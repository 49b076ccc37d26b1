// internal/ipc/handler.go

package ipc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/rs/zerolog"

	"dspirq/internal/sched"
)

var (
	ErrUnsupported = errors.New("ipc: unsupported message type")
	ErrInvalid     = errors.New("ipc: invalid message")
)

// Scheduler is the part of the task scheduler the handler drives.
type Scheduler interface {
	NextID() sched.TaskID
	Schedule(ctx context.Context, t *sched.Task) error
}

// Pipeline is a host created audio pipeline. While running it gets one copy
// task per period at its own priority.
type Pipeline struct {
	Instance uint8
	Priority int
	MemSize  uint16
	LowPower bool

	state   atomic.Uint32
	periods atomic.Uint64
	copy    *sched.Task
}

// State returns the last state set by the host.
func (p *Pipeline) State() PipelineState { return PipelineState(p.state.Load()) }

// Periods returns how many copy tasks ran.
func (p *Pipeline) Periods() uint64 { return p.periods.Load() }

type configKey struct {
	module   uint16
	instance uint8
	param    uint8
}

type transfer struct {
	total uint32
	data  []byte
}

// Handler decodes host messages and turns pipeline work into tasks.
// Process and Tick must run on the core that owns the pipelines.
type Handler struct {
	sched Scheduler

	mu        sync.Mutex
	pipelines *treemap.Map // instance -> *Pipeline, ordered by instance
	transfers map[configKey]*transfer
	applied   map[configKey][]byte

	work func(context.Context) error // per period processing, may be nil

	log zerolog.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithPeriodWork sets the processing every copy task performs.
func WithPeriodWork(fn func(context.Context) error) HandlerOption {
	return func(h *Handler) { h.work = fn }
}

// NewHandler creates a handler scheduling onto s.
func NewHandler(s Scheduler, log zerolog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		sched:     s,
		pipelines: treemap.NewWith(instanceCmp),
		transfers: make(map[configKey]*transfer),
		applied:   make(map[configKey][]byte),
		log:       log.With().Str("component", "ipc").Logger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Process handles one message.
func (h *Handler) Process(ctx context.Context, m Message) error {
	if m.Target() == TargetModule {
		return h.processModule(ctx, m)
	}
	return h.processGlobal(ctx, m)
}

func (h *Handler) processGlobal(ctx context.Context, m Message) error {
	typ := GlobalType(m.Type())
	switch typ {
	case GlbCreatePipeline:
		return h.createPipeline(m.CreatePipeline())
	case GlbDeletePipeline:
		return h.deletePipeline(m.DeletePipeline())
	case GlbSetPipelineState:
		return h.setPipelineState(ctx, m.SetPipelineState())

	case GlbBootConfig, GlbROMControl, GlbIPCGatewayCmd,
		GlbStartRTOSEDFTask, GlbStopRTOSEDFTask,
		GlbPerfMeasurementsCmd, GlbChainDMA,
		GlbLoadMultipleModules, GlbUnloadMultipleModules,
		GlbGetPipelineState, GlbGetPipelineContextSize,
		GlbSavePipeline, GlbRestorePipeline,
		GlbLoadLibrary, GlbInternalMessage, GlbNotification:
		h.log.Error().Uint8("type", uint8(typ)).Msg("unsupported ipc message type")
		return fmt.Errorf("global type %d: %w", typ, ErrUnsupported)

	default:
		h.log.Error().Uint8("type", uint8(typ)).Msg("unknown ipc message type")
		return fmt.Errorf("global type %d: %w", typ, ErrInvalid)
	}
}

func (h *Handler) processModule(ctx context.Context, m Message) error {
	typ := ModuleType(m.Type())
	switch typ {
	case ModLargeConfigSet:
		return h.largeConfigSet(ctx, m.LargeConfig())
	case ModInitInstance, ModConfigGet, ModConfigSet, ModLargeConfigGet,
		ModBind, ModUnbind, ModSetDx, ModSetD0ix,
		ModEnterModuleRestore, ModExitModuleRestore, ModDeleteInstance:
		h.log.Debug().Uint8("type", uint8(typ)).Msg("module message accepted")
		return nil
	default:
		return fmt.Errorf("module type %d: %w", typ, ErrInvalid)
	}
}

func (h *Handler) createPipeline(c CreatePipeline) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.pipelines.Get(c.Instance); ok {
		return fmt.Errorf("pipeline %d already exists: %w", c.Instance, ErrInvalid)
	}
	p := &Pipeline{
		Instance: c.Instance,
		Priority: int(c.Priority),
		MemSize:  c.MemSize,
		LowPower: c.LowPower,
	}
	p.state.Store(uint32(PipeReset))
	h.pipelines.Put(c.Instance, p)
	h.log.Info().
		Uint8("pipeline", c.Instance).
		Uint8("priority", c.Priority).
		Uint16("mem_size", c.MemSize).
		Bool("lp", c.LowPower).
		Msg("pipeline created")
	return nil
}

func (h *Handler) deletePipeline(d DeletePipeline) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.pipelines.Get(d.Instance); !ok {
		return fmt.Errorf("no pipeline %d: %w", d.Instance, ErrInvalid)
	}
	h.pipelines.Remove(d.Instance)
	h.log.Info().Uint8("pipeline", d.Instance).Msg("pipeline deleted")
	return nil
}

func (h *Handler) setPipelineState(ctx context.Context, s SetPipelineState) error {
	p, ok := h.Pipeline(s.Instance)
	if !ok {
		return fmt.Errorf("no pipeline %d: %w", s.Instance, ErrInvalid)
	}
	switch s.State {
	case PipeReset, PipePaused, PipeRunning, PipeEOS:
	default:
		return fmt.Errorf("pipeline %d state %d: %w", s.Instance, s.State, ErrInvalid)
	}
	p.state.Store(uint32(s.State))
	h.log.Info().Uint8("pipeline", s.Instance).Str("state", s.State.String()).Msg("pipeline state")
	if s.State == PipeRunning {
		// start the first period right away
		return h.schedulePeriod(ctx, p)
	}
	return nil
}

// largeConfigSet accumulates a multi block transfer and schedules a task
// applying it once the last block arrived.
func (h *Handler) largeConfigSet(ctx context.Context, l LargeConfig) error {
	key := configKey{module: l.ModuleID, instance: l.Instance, param: l.ParamID}

	h.mu.Lock()
	tr := h.transfers[key]
	if l.First {
		tr = &transfer{total: l.Size, data: make([]byte, 0, l.Size)}
		h.transfers[key] = tr
	} else if tr == nil || l.Size != uint32(len(tr.data)) {
		h.mu.Unlock()
		return fmt.Errorf("module %d.%d param %d: block out of sequence: %w", l.ModuleID, l.Instance, l.ParamID, ErrInvalid)
	}
	tr.data = append(tr.data, l.Data...)
	if uint32(len(tr.data)) > tr.total || (l.Last && uint32(len(tr.data)) != tr.total) {
		delete(h.transfers, key)
		h.mu.Unlock()
		return fmt.Errorf("module %d.%d param %d: size mismatch: %w", l.ModuleID, l.Instance, l.ParamID, ErrInvalid)
	}
	if !l.Last {
		h.mu.Unlock()
		return nil
	}
	delete(h.transfers, key)
	h.mu.Unlock()

	data := tr.data
	t := sched.NewTask(h.sched.NextID(), sched.PriorityMed, func(context.Context, any) error {
		h.mu.Lock()
		h.applied[key] = data
		h.mu.Unlock()
		return nil
	}, key)
	return h.sched.Schedule(ctx, t)
}

// Config returns a fully transferred and applied configuration blob.
func (h *Handler) Config(module uint16, instance, param uint8) ([]byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.applied[configKey{module: module, instance: instance, param: param}]
	return b, ok
}

// Pipeline returns a pipeline by instance id.
func (h *Handler) Pipeline(instance uint8) (*Pipeline, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.pipelines.Get(instance)
	if !ok {
		return nil, false
	}
	return v.(*Pipeline), true
}

// Tick schedules one period on every running pipeline whose previous copy
// task has completed.
func (h *Handler) Tick(ctx context.Context) error {
	h.mu.Lock()
	running := make([]*Pipeline, 0, h.pipelines.Size())
	for _, v := range h.pipelines.Values() {
		if p := v.(*Pipeline); p.State() == PipeRunning {
			running = append(running, p)
		}
	}
	h.mu.Unlock()

	var errs []error
	for _, p := range running {
		if err := h.schedulePeriod(ctx, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *Handler) schedulePeriod(ctx context.Context, p *Pipeline) error {
	if p.copy != nil {
		switch p.copy.State() {
		case sched.StateQueued, sched.StateRunning:
			// previous period still pending, an xrun in real firmware
			h.log.Warn().Uint8("pipeline", p.Instance).Msg("period overrun")
			return nil
		}
	}
	p.copy = sched.NewTask(h.sched.NextID(), p.Priority, func(ctx context.Context, _ any) error {
		p.periods.Add(1)
		if h.work != nil {
			return h.work(ctx)
		}
		return nil
	}, p)
	if err := h.sched.Schedule(ctx, p.copy); err != nil {
		return fmt.Errorf("pipeline %d period: %w", p.Instance, err)
	}
	return nil
}

func instanceCmp(a, b any) int {
	ka, kb := a.(uint8), b.(uint8)
	switch {
	case ka < kb:
		return -1
	case ka > kb:
		return 1
	default:
		return 0
	}
}
