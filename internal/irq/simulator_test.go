package irq

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSim(t *testing.T) *Simulator {
	t.Helper()
	s := NewSimulator(context.Background(), zerolog.Nop())
	s.Declare(1, 1)
	s.Declare(2, 2)
	s.Declare(3, 3)
	return s
}

func TestRegisterTwiceIsBusy(t *testing.T) {
	s := newSim(t)
	h := func(context.Context, any) {}
	require.NoError(t, s.Register(1, AutoUnmask, h, nil))
	require.ErrorIs(t, s.Register(1, AutoUnmask, h, nil), ErrBusy)
	require.ErrorIs(t, s.Register(9, 0, h, nil), ErrNoLine)

	s.Unregister(1)
	require.NoError(t, s.Register(1, 0, h, nil))
}

func TestSetDeliversWhenEnabled(t *testing.T) {
	s := newSim(t)
	var got []any
	require.NoError(t, s.Register(1, AutoUnmask, func(_ context.Context, arg any) {
		got = append(got, arg)
		s.Clear(1)
	}, "a"))

	// registered but not enabled: stays pending
	s.Set(1)
	assert.Empty(t, got)
	st, _ := s.State(1)
	assert.True(t, st.Pending)

	s.Enable(1)
	assert.Equal(t, []any{"a"}, got)
	st, _ = s.State(1)
	assert.False(t, st.Pending)
	assert.True(t, st.Enabled, "auto-unmask re-enables the line")
}

func TestLineStaysMaskedWithoutAutoUnmask(t *testing.T) {
	s := newSim(t)
	n := 0
	require.NoError(t, s.Register(1, 0, func(context.Context, any) {
		n++
		s.Clear(1)
	}, nil))
	s.Enable(1)
	s.Set(1)
	s.Set(1)
	assert.Equal(t, 1, n)
	st, _ := s.State(1)
	assert.False(t, st.Enabled)
	assert.True(t, st.Pending)
}

func TestLocalMaskDefersDelivery(t *testing.T) {
	s := newSim(t)
	n := 0
	require.NoError(t, s.Register(2, AutoUnmask, func(context.Context, any) {
		n++
		s.Clear(2)
	}, nil))
	s.Enable(2)

	outer := s.LocalDisable()
	inner := s.LocalDisable()
	s.Set(2)
	s.LocalRestore(inner)
	assert.Zero(t, n, "still masked by the outer section")
	s.LocalRestore(outer)
	assert.Equal(t, 1, n)
}

func TestClearIsIdempotent(t *testing.T) {
	s := newSim(t)
	s.Set(3)
	s.Clear(3)
	s.Clear(3)
	s.Clear(3)
	st := s.Stats(3)
	assert.Equal(t, uint64(1), st.Asserts)
	assert.Equal(t, uint64(1), st.Clears)
	state, _ := s.State(3)
	assert.False(t, state.Pending)
}

func TestHigherPriorityPreemptsHandler(t *testing.T) {
	s := newSim(t)
	var trace []string
	passes := 0
	require.NoError(t, s.Register(1, AutoUnmask, func(context.Context, any) {
		s.Clear(1)
		passes++
		trace = append(trace, "low:start")
		if passes == 1 {
			s.Set(3)
			// equal priority waits for this handler to return
			s.Set(1)
		}
		trace = append(trace, "low:end")
	}, nil))
	require.NoError(t, s.Register(3, AutoUnmask, func(context.Context, any) {
		s.Clear(3)
		trace = append(trace, "high")
	}, nil))
	s.Enable(3)
	s.Enable(1)

	s.Set(1)
	assert.Equal(t, []string{"low:start", "high", "low:end", "low:start", "low:end"}, trace)
	assert.Equal(t, uint64(2), s.Stats(1).Deliveries)
	assert.Equal(t, uint64(1), s.Stats(3).Deliveries)
}

func TestUnregisteredLineIsNotDelivered(t *testing.T) {
	s := newSim(t)
	n := 0
	require.NoError(t, s.Register(2, AutoUnmask, func(context.Context, any) { n++; s.Clear(2) }, nil))
	s.Enable(2)
	s.Unregister(2)
	s.Set(2)
	assert.Zero(t, n)
	assert.Equal(t, uint64(0), s.Stats(2).Deliveries)
}
