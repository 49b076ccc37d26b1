package platform

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dspirq/internal/irq"
)

func TestPoolExhaustion(t *testing.T) {
	p := NewPool[int](2)
	a, err := p.Alloc()
	require.NoError(t, err)
	*a = 7
	_, err = p.Alloc()
	require.NoError(t, err)
	_, err = p.Alloc()
	require.ErrorIs(t, err, ErrNoMemory)
	assert.Equal(t, 2, p.Used())

	p.Reset()
	assert.Zero(t, p.Used())
	b, err := p.Alloc()
	require.NoError(t, err)
	assert.Zero(t, *b)
}

func TestCoreContext(t *testing.T) {
	p := New(DefaultConfig(), zerolog.Nop())
	require.Len(t, p.Cores(), 4)
	for i, c := range p.Cores() {
		assert.Same(t, c, CoreFromContext(c.Context()))
		assert.Equal(t, i, c.ID())
	}
	assert.Nil(t, CoreFromContext(context.Background()))
	assert.Nil(t, p.Core(4))
}

func TestSpinLockMasksInterrupts(t *testing.T) {
	p := New(DefaultConfig(), zerolog.Nop())
	c := p.Core(0)
	id := irq.ID(p.Config().IRQ.High.ID)

	var l SpinLock
	delivered := 0
	require.NoError(t, c.Controller().Register(id, irq.AutoUnmask, func(context.Context, any) {
		delivered++
		c.Controller().Clear(id)
	}, nil))
	c.Controller().Enable(id)

	flags := l.LockIRQ(c)
	c.Controller().Set(id)
	assert.Zero(t, delivered)
	l.UnlockIRQ(c, flags)
	assert.Equal(t, 1, delivered)
}

func TestRunAndDo(t *testing.T) {
	p := New(DefaultConfig(), zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(ctx) }()

	var (
		mu     sync.Mutex
		booted []int
	)
	require.NoError(t, p.Boot(context.Background(), func(cctx context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		booted = append(booted, CoreFromContext(cctx).ID())
		return nil
	}))
	assert.ElementsMatch(t, []int{0, 1, 2, 3}, booted)

	var seen []int
	require.NoError(t, p.Core(2).Do(context.Background(), func(cctx context.Context) {
		seen = append(seen, CoreFromContext(cctx).ID())
	}))
	assert.Equal(t, []int{2}, seen)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("cores did not stop")
	}
	require.ErrorIs(t, p.Core(0).Do(context.Background(), func(context.Context) {}), ErrCoreStopped)
}

func TestLoadConfig(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	cfg, err = Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
cores: 0
task_levels: 2
irq:
  low:
    id: 20
    priority: 0
  high:
    id: 22
    priority: 5
queue_pool: 16
tick_ms: -1
`), 0o644))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Cores)
	assert.Equal(t, 2, cfg.TaskLevels)
	assert.Equal(t, Line{ID: 20, Priority: 1}, cfg.IRQ.Low)
	assert.Equal(t, Line{ID: 22, Priority: 5}, cfg.IRQ.High)
	assert.Equal(t, uint32(9), cfg.IRQ.Med.ID, "unset fields keep defaults")
	assert.Equal(t, 16, cfg.PoolSize())
	assert.Equal(t, 1, cfg.TickMS)

	require.NoError(t, os.WriteFile(path, []byte("cores: [nope"), 0o644))
	_, err = Load(path)
	require.Error(t, err)
}

func TestNewDeclaresTaskLines(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TaskLevels = 2
	p := New(cfg, zerolog.Nop())
	sim := p.Core(0).Interrupts()

	_, ok := sim.State(irq.ID(cfg.IRQ.Low.ID))
	assert.True(t, ok)
	_, ok = sim.State(irq.ID(cfg.IRQ.Med.ID))
	assert.False(t, ok)
	st, ok := sim.State(irq.ID(cfg.IRQ.High.ID))
	assert.True(t, ok)
	assert.Equal(t, cfg.IRQ.High.Priority, st.Priority)
}

func TestBootReportsFirstError(t *testing.T) {
	p := New(DefaultConfig(), zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = p.Run(ctx) }()

	err := p.Boot(context.Background(), func(cctx context.Context) error {
		if CoreFromContext(cctx).ID() == 1 {
			return ErrNoMemory
		}
		return nil
	})
	require.ErrorIs(t, err, ErrNoMemory)
}
