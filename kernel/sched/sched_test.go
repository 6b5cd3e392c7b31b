package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jos-in-go/kernel/mem"
	"jos-in-go/kernel/task"
	"jos-in-go/kernel/timer"
)

const quantum = int32(4)

func newTestSched(t *testing.T, ntasks int) (*Scheduler, *task.Manager, *timer.Timer) {
	t.Helper()
	mm, err := mem.NewManager(256)
	require.NoError(t, err)
	tbl := task.NewTable(ntasks)
	lm := task.NewManager(mm, tbl, 2, quantum)
	tm := timer.New()
	return New(tbl, mm, tm, quantum), lm, tm
}

func TestAdopt(t *testing.T) {
	s, lm, _ := newTestSched(t, 4)
	t0, err := lm.Create(nil)
	require.NoError(t, err)

	s.Adopt(t0)
	assert.Same(t, t0, s.Cur())
	assert.Equal(t, task.Running, t0.State)
}

func TestYieldRoundRobin(t *testing.T) {
	s, lm, _ := newTestSched(t, 4)
	var tasks []*task.Task
	for i := 0; i < 3; i++ {
		tk, err := lm.Create(nil)
		require.NoError(t, err)
		tasks = append(tasks, tk)
	}
	s.Adopt(tasks[0])

	for _, want := range []int{1, 2, 0, 1} {
		got := s.Yield()
		require.NotNil(t, got)
		assert.Equal(t, want, got.ID)
		assert.Equal(t, task.Running, got.State)
		assert.Equal(t, 1, s.table.CountState(task.Running), "exactly one task runs at a time")
	}
}

func TestYieldWithNothingRunnable(t *testing.T) {
	s, lm, _ := newTestSched(t, 4)
	t0, err := lm.Create(nil)
	require.NoError(t, err)
	s.Adopt(t0)

	lm.Sleep(t0, 10)
	assert.Nil(t, s.Yield(), "cpu goes idle when every task sleeps")
	assert.Nil(t, s.Cur())
}

func TestTickWakesSleeper(t *testing.T) {
	s, lm, tm := newTestSched(t, 4)
	t0, err := lm.Create(nil)
	require.NoError(t, err)
	s.Adopt(t0)

	lm.Sleep(t0, 3)
	s.Yield()

	for i := 0; i < 2; i++ {
		s.Tick()
		assert.Equal(t, task.Sleeping, t0.State)
	}
	s.Tick()
	assert.Equal(t, task.Runnable, t0.State)
	assert.Equal(t, int32(3), tm.Ticks())

	got := s.Yield()
	assert.Same(t, t0, got)
}

func TestTickQuantumExhaustionReschedules(t *testing.T) {
	s, lm, _ := newTestSched(t, 4)
	t0, err := lm.Create(nil)
	require.NoError(t, err)
	t1, err := lm.Create(nil)
	require.NoError(t, err)
	s.Adopt(t0)

	for i := int32(0); i < quantum; i++ {
		s.Tick()
	}
	assert.Same(t, t1, s.Cur(), "exhausted quantum hands the cpu over")
	assert.Equal(t, task.Runnable, t0.State)
}
