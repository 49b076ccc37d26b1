package sched

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// holdSubmitter keeps submitted tasks until flushed.
type holdSubmitter struct {
	s    *Scheduler
	held []*Task
	err  error
}

func (h *holdSubmitter) Submit(_ context.Context, t *Task) error {
	if h.err != nil {
		return h.err
	}
	h.held = append(h.held, t)
	return nil
}

func (h *holdSubmitter) flush() {
	for _, t := range h.held {
		if t.State() == StateRunning {
			_ = t.Func(context.Background(), t.Data)
		}
		h.s.NotifyComplete(context.Background(), t)
	}
	h.held = nil
}

func newTestScheduler() (*Scheduler, *holdSubmitter) {
	s := New(zerolog.Nop())
	h := &holdSubmitter{s: s}
	s.Bind(h)
	return s, h
}

func noop(context.Context, any) error { return nil }

func TestScheduleTracksInFlight(t *testing.T) {
	s, h := newTestScheduler()
	a := NewTask(s.NextID(), PriorityHigh, noop, nil)
	b := NewTask(s.NextID(), PriorityLow, noop, nil)
	require.NoError(t, s.Schedule(context.Background(), b))
	require.NoError(t, s.Schedule(context.Background(), a))

	assert.Equal(t, []TaskID{a.ID, b.ID}, s.InFlight())
	assert.Equal(t, StateRunning, a.State())

	h.flush()
	assert.Empty(t, s.InFlight())
	assert.Equal(t, StateCompleted, a.State())
	assert.Equal(t, uint64(2), s.Stats().Finished)
}

func TestScheduleRejectsBadTasks(t *testing.T) {
	s, _ := newTestScheduler()
	require.Error(t, s.Schedule(context.Background(), NewTask(1, PriorityMed, nil, nil)))

	task := NewTask(2, PriorityMed, noop, nil)
	require.NoError(t, s.Schedule(context.Background(), task))
	require.Error(t, s.Schedule(context.Background(), task), "already running")

	dup := NewTask(2, PriorityMed, noop, nil)
	require.Error(t, s.Schedule(context.Background(), dup), "duplicate id")
	assert.Equal(t, StateInit, dup.State())
}

func TestScheduleSubmitError(t *testing.T) {
	s, h := newTestScheduler()
	h.err = errors.New("no queue")
	task := NewTask(s.NextID(), PriorityMed, noop, nil)
	err := s.Schedule(context.Background(), task)
	require.ErrorIs(t, err, h.err)
	assert.Equal(t, StateInit, task.State())
	assert.Empty(t, s.InFlight())
}

func TestCancelSkipsCallback(t *testing.T) {
	s, h := newTestScheduler()
	ran := false
	task := NewTask(s.NextID(), PriorityLow, func(context.Context, any) error {
		ran = true
		return nil
	}, nil)
	require.NoError(t, s.Schedule(context.Background(), task))
	require.NoError(t, s.Cancel(task.ID))
	require.Error(t, s.Cancel(task.ID), "already cancelled")

	h.flush()
	assert.False(t, ran)
	assert.Equal(t, StateCancelled, task.State())
	st := s.Stats()
	assert.Equal(t, uint64(1), st.Skipped)
	assert.Zero(t, st.Finished)
}

func TestDoubleCompletionIsIgnored(t *testing.T) {
	s, h := newTestScheduler()
	task := NewTask(s.NextID(), PriorityHigh, noop, nil)
	require.NoError(t, s.Schedule(context.Background(), task))
	h.flush()
	s.NotifyComplete(context.Background(), task)
	assert.Equal(t, uint64(1), s.Stats().Finished)
}

func TestStatusEvents(t *testing.T) {
	s, h := newTestScheduler()
	task := NewTask(s.NextID(), PriorityMed, noop, nil)
	require.NoError(t, s.Schedule(context.Background(), task))
	h.flush()

	ev := <-s.StatusChannel()
	assert.Equal(t, StatusEnqueue, ev.Kind)
	assert.Equal(t, task.ID, ev.TaskID)
	assert.Equal(t, -1, ev.Core)
	ev = <-s.StatusChannel()
	assert.Equal(t, StatusFinish, ev.Kind)
	assert.Equal(t, "Finish", ev.Kind.String())
}

func TestTaskLink(t *testing.T) {
	var l Link
	assert.False(t, l.Linked())
	l.Attach("q")
	assert.True(t, l.Linked())
	assert.Equal(t, "q", l.Owner())
	l.Detach()
	assert.False(t, l.Linked())
}
