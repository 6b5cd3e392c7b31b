package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableAcquireLowestFirst(t *testing.T) {
	tbl := NewTable(4)
	assert.Equal(t, 4, tbl.Cap())

	for want := 0; want < 4; want++ {
		slot, ok := tbl.Acquire()
		require.True(t, ok)
		assert.Equal(t, want, slot.ID)
	}
	_, ok := tbl.Acquire()
	assert.False(t, ok)
}

func TestTableReleaseMakesSlotReusable(t *testing.T) {
	tbl := NewTable(3)
	for i := 0; i < 3; i++ {
		slot, ok := tbl.Acquire()
		require.True(t, ok)
		slot.State = Runnable
	}

	// free the middle and last slots; the middle one must come back first
	tbl.Get(2).State = Stopped
	tbl.Release(2)
	tbl.Get(1).State = Stopped
	tbl.Release(1)

	slot, ok := tbl.Acquire()
	require.True(t, ok)
	assert.Equal(t, 1, slot.ID)

	slot, ok = tbl.Acquire()
	require.True(t, ok)
	assert.Equal(t, 2, slot.ID)
}

func TestTableReleaseLiveSlotPanics(t *testing.T) {
	tbl := NewTable(2)
	slot, ok := tbl.Acquire()
	require.True(t, ok)
	slot.State = Running
	assert.Panics(t, func() { tbl.Release(slot.ID) })
}

func TestTableGetOutOfRange(t *testing.T) {
	tbl := NewTable(2)
	assert.Nil(t, tbl.Get(-1))
	assert.Nil(t, tbl.Get(2))
	assert.NotNil(t, tbl.Get(0))
}

func TestStatePredicates(t *testing.T) {
	assert.True(t, Free.Scavengable())
	assert.True(t, Stopped.Scavengable())
	assert.False(t, Runnable.Scavengable())

	assert.True(t, Running.Live())
	assert.True(t, Sleeping.Live())
	assert.False(t, Free.Live())
	assert.False(t, Stopped.Live())

	assert.Equal(t, "RUNNABLE", Runnable.String())
	assert.Equal(t, "STOP", Stopped.String())
}
