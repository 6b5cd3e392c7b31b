package kernel

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jos-in-go/kernel/mem"
	"jos-in-go/kernel/syscall"
	"jos-in-go/kernel/task"
	"jos-in-go/kernel/trap"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.NTasks = 4
	cfg.MemoryPages = 256
	cfg.StackPages = 4
	cfg.TimeQuantum = 10
	cfg.Image = ImageConfig{TextPages: 1, DataPages: 1, BssPages: 1, RodataPages: 1}
	return cfg
}

func boot(t *testing.T) *Kernel {
	t.Helper()
	k, err := Boot(testConfig())
	require.NoError(t, err)
	return k
}

func (k *Kernel) stackBase() uint32 {
	return mem.USTACKTOP - uint32(k.cfg.StackPages)*mem.PGSIZE
}

func TestBootBringsUpBootstrapTask(t *testing.T) {
	k := boot(t)

	t0 := k.Sched().Cur()
	require.NotNil(t, t0)
	assert.Equal(t, 0, t0.ID)
	assert.Equal(t, task.NoParent, t0.ParentID)
	assert.Equal(t, task.Running, t0.State)
	assert.Equal(t, 1, k.Table().CountState(task.Running))

	assert.Equal(t, mem.UTEXT, t0.TF.Eip)
	assert.True(t, t0.TF.UserMode())
	assert.Equal(t, t0.Pgdir.PhysAddr(), k.Mem().ActiveCR3())

	_, ok := t0.Pgdir.Lookup(mem.UTEXT)
	assert.True(t, ok, "bootstrap task must see the program image")
}

func TestBootRejectsBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.NTasks = 0
	_, err := Boot(cfg)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestForkEndToEnd(t *testing.T) {
	k := boot(t)
	t0 := k.Sched().Cur()

	ret := k.Syscall(syscall.SysFork)
	assert.Equal(t, int32(1), ret, "parent observes the child id")

	child := k.Table().Get(1)
	assert.Equal(t, task.Runnable, child.State)
	assert.Equal(t, 0, child.ParentID)
	assert.Equal(t, int32(0), child.TF.Retval(),
		"child observes 0 on first resumption")
	assert.Equal(t, task.Running, t0.State, "parent keeps running")
}

func TestForkExhaustsTable(t *testing.T) {
	k := boot(t)

	for want := int32(1); want < int32(k.Config().NTasks); want++ {
		assert.Equal(t, want, k.Syscall(syscall.SysFork))
	}
	live := k.Table().CountState(task.Runnable)

	assert.Equal(t, syscall.Sentinel, k.Syscall(syscall.SysFork),
		"a full table fails with the sentinel")
	assert.Equal(t, live, k.Table().CountState(task.Runnable), "no new task may exist")
}

func TestPutsWritesExactBytesInOrder(t *testing.T) {
	k := boot(t)
	var echo bytes.Buffer
	k.Console().Echo(&echo)

	msg := []byte("Hello fork!")
	base := k.stackBase()
	require.NoError(t, k.Sched().Cur().Pgdir.WriteVirt(base, msg))

	assert.Equal(t, int32(0), k.Syscall(syscall.SysPuts, base, uint32(len(msg))))
	assert.Equal(t, "Hello fork!", echo.String())
	assert.Equal(t, "Hello fork!", k.Screen().Line(0))
}

func TestPutsUnmappedPointer(t *testing.T) {
	k := boot(t)
	assert.Equal(t, syscall.Sentinel, k.Syscall(syscall.SysPuts, 0xDEAD0000, 4))
}

func TestGetcConsumesConsoleInput(t *testing.T) {
	k := boot(t)
	k.Console().Feed([]byte("z"))
	assert.Equal(t, int32('z'), k.Syscall(syscall.SysGetc))
	assert.Equal(t, syscall.Sentinel, k.Syscall(syscall.SysGetc))
}

func TestGetPID(t *testing.T) {
	k := boot(t)
	assert.Equal(t, int32(0), k.Syscall(syscall.SysGetPID))

	// put the only task to sleep; with no current task getpid fails
	assert.Equal(t, int32(0), k.Syscall(syscall.SysSleep, 3))
	require.Nil(t, k.Sched().Cur())
	assert.Equal(t, syscall.Sentinel, k.Syscall(syscall.SysGetPID))
}

func TestSleepAndTimerWakeup(t *testing.T) {
	k := boot(t)
	t0 := k.Sched().Cur()

	assert.Equal(t, int32(0), k.Syscall(syscall.SysSleep, 3))
	assert.Equal(t, task.Sleeping, t0.State)
	assert.Equal(t, int32(3), t0.RemindTicks)

	for i := 0; i < 3; i++ {
		k.Tick()
	}
	assert.Equal(t, task.Runnable, t0.State)
	assert.Equal(t, int32(3), k.Syscall(syscall.SysGetTicks))

	k.Yield()
	assert.Same(t, t0, k.Sched().Cur())
}

func TestKillEndToEnd(t *testing.T) {
	k := boot(t)
	child := k.Syscall(syscall.SysFork)
	require.Equal(t, int32(1), child)
	pgdir := k.Table().Get(1).Pgdir

	assert.Equal(t, int32(0), k.Syscall(syscall.SysKill, uint32(child)))
	assert.Equal(t, task.Stopped, k.Table().Get(1).State)
	assert.Zero(t, pgdir.MappedPages())

	// killing again is still success, still a no-op
	assert.Equal(t, int32(0), k.Syscall(syscall.SysKill, uint32(child)))
}

func TestKillSelfYieldsToAnotherTask(t *testing.T) {
	k := boot(t)
	require.Equal(t, int32(1), k.Syscall(syscall.SysFork))
	t0 := k.Table().Get(0)

	k.Yield()
	require.Equal(t, 1, k.Sched().Cur().ID)

	assert.Equal(t, int32(0), k.Syscall(syscall.SysKill, 1))
	assert.Equal(t, task.Stopped, k.Table().Get(1).State)
	assert.Same(t, t0, k.Sched().Cur(), "the killer relinquishes the cpu")
}

func TestKillBootstrapIsNoop(t *testing.T) {
	k := boot(t)
	assert.Equal(t, int32(0), k.Syscall(syscall.SysKill, 0))
	assert.Equal(t, task.Running, k.Table().Get(0).State)
}

func TestPageCountSyscalls(t *testing.T) {
	k := boot(t)
	free := k.Syscall(syscall.SysGetNumFreePage)
	used := k.Syscall(syscall.SysGetNumUsedPage)
	assert.Equal(t, int32(k.Config().MemoryPages), free+used)
	assert.Positive(t, used)

	// a fork consumes frames, a kill gives them back
	child := k.Syscall(syscall.SysFork)
	assert.Less(t, k.Syscall(syscall.SysGetNumFreePage), free)
	k.Syscall(syscall.SysKill, uint32(child))
	assert.Equal(t, free, k.Syscall(syscall.SysGetNumFreePage))
}

func TestScreenSyscalls(t *testing.T) {
	k := boot(t)
	assert.Equal(t, int32(0), k.Syscall(syscall.SysSetTextColor, 0x0A, 0x01))
	assert.Equal(t, byte(0x1A), k.Screen().Attr())

	msg := []byte("x")
	base := k.stackBase()
	require.NoError(t, k.Sched().Cur().Pgdir.WriteVirt(base, msg))
	k.Syscall(syscall.SysPuts, base, 1)
	assert.Equal(t, int32(0), k.Syscall(syscall.SysCls))
	assert.Equal(t, "", k.Screen().String())
}

func TestDiagnosticSyscall(t *testing.T) {
	k := boot(t)
	assert.Equal(t, syscall.TestValue, k.Syscall(syscall.SysTest))
}

func TestUnknownSyscallHasNoSideEffect(t *testing.T) {
	k := boot(t)
	var echo bytes.Buffer
	k.Console().Echo(&echo)

	screenBefore := k.Screen().String()
	freeBefore := k.Mem().Phys().NumFreePages()
	runnableBefore := k.Table().CountState(task.Runnable)

	assert.Equal(t, syscall.Sentinel, k.Syscall(0x999))

	assert.Zero(t, echo.Len(), "no console output")
	assert.Equal(t, screenBefore, k.Screen().String())
	assert.Equal(t, freeBefore, k.Mem().Phys().NumFreePages())
	assert.Equal(t, runnableBefore, k.Table().CountState(task.Runnable))
	assert.Equal(t, task.Running, k.Table().Get(0).State)
}

func TestTrapPrivilegeBoundary(t *testing.T) {
	k := boot(t)
	tf := trap.NewUserFrame(mem.UTEXT, mem.USTACKTOP-mem.PGSIZE)

	tf.SetSyscall(syscall.SysTest, [5]uint32{})
	require.NoError(t, k.Trap(trap.TSyscall, &tf))
	assert.Equal(t, syscall.TestValue, tf.Retval())

	// the timer gate is kernel-only; a user frame may not raise it
	assert.ErrorIs(t, k.Trap(trap.TIRQTimer, &tf), trap.ErrPrivilege)
	assert.ErrorIs(t, k.Trap(0x55, &tf), trap.ErrBadVector)
}
