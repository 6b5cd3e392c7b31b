// Package kernel assembles the machine: physical memory, the task
// table, the scheduler, the devices and the trap table, with the boot
// sequence that brings up the bootstrap task.
package kernel

import (
	"fmt"

	"jos-in-go/kernel/console"
	"jos-in-go/kernel/ktrace"
	"jos-in-go/kernel/mem"
	"jos-in-go/kernel/sched"
	"jos-in-go/kernel/screen"
	"jos-in-go/kernel/syscall"
	"jos-in-go/kernel/task"
	"jos-in-go/kernel/timer"
	"jos-in-go/kernel/trap"
)

// Kernel is the machine context. It owns every shared structure the
// reference kernel kept in globals.
type Kernel struct {
	cfg   Config
	mm    *mem.Manager
	table *task.Table
	lm    *task.Manager
	sc    *sched.Scheduler
	tm    *timer.Timer
	scr   *screen.Screen
	con   *console.Console
	traps *trap.Table
	sys   *syscall.Service
}

// Boot builds and initializes a machine: memory, program image,
// syscall vector, then the bootstrap task with id 0, no parent, the
// shared image mapped, running.
func Boot(cfg Config) (*Kernel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Tracing.Enabled {
		if err := ktrace.Init(cfg.Tracing.Service, nil); err != nil {
			return nil, fmt.Errorf("kernel: tracing: %w", err)
		}
	}

	mm, err := mem.NewManager(cfg.MemoryPages)
	if err != nil {
		return nil, err
	}
	if err := mm.LoadImage([]mem.ImageSpec{
		{VA: mem.UTEXT, Perm: mem.PTE_U, Pages: cfg.Image.TextPages},
		{VA: mem.UDATA, Perm: mem.PTE_U | mem.PTE_W, Pages: cfg.Image.DataPages},
		{VA: mem.UBSS, Perm: mem.PTE_U | mem.PTE_W, Pages: cfg.Image.BssPages},
		{VA: mem.URODATA, Perm: mem.PTE_U, Pages: cfg.Image.RodataPages},
	}); err != nil {
		return nil, err
	}

	k := &Kernel{
		cfg:   cfg,
		mm:    mm,
		table: task.NewTable(cfg.NTasks),
		tm:    timer.New(),
		scr:   screen.New(),
		traps: trap.NewTable(),
	}
	k.con = console.New(k.scr)
	k.lm = task.NewManager(mm, k.table, cfg.StackPages, cfg.TimeQuantum)
	k.sc = sched.New(k.table, mm, k.tm, cfg.TimeQuantum)

	k.sys = syscall.New(k)
	k.sys.Init(k.traps)
	k.traps.Register(trap.TIRQTimer, func(*trap.Frame) { k.sc.Tick() }, trap.RPLKern)

	// bootstrap task: no creator, resumes at the image entry point
	t0, err := k.lm.Create(nil)
	if err != nil {
		return nil, fmt.Errorf("kernel: bootstrap task: %w", err)
	}
	if err := mm.MapImage(t0.Pgdir); err != nil {
		return nil, fmt.Errorf("kernel: bootstrap image: %w", err)
	}
	t0.TF = trap.NewUserFrame(mem.UTEXT, mem.USTACKTOP-mem.PGSIZE)
	k.sc.Adopt(t0)

	return k, nil
}

// Trap is the machine's trap entry: route vector to its gate with the
// privilege level the frame trapped from.
func (k *Kernel) Trap(vector int, tf *trap.Frame) error {
	cpl := trap.RPLKern
	if tf.UserMode() {
		cpl = trap.RPLUser
	}
	return k.traps.Dispatch(vector, cpl, tf)
}

// Syscall raises the syscall vector on behalf of the current task, the
// way the user-mode int instruction would, and returns the result the
// task reads from its frame.
func (k *Kernel) Syscall(no uint32, args ...uint32) int32 {
	var a [5]uint32
	copy(a[:], args)

	tf := &trap.Frame{}
	if cur := k.sc.Cur(); cur != nil {
		tf = &cur.TF
	}
	tf.SetSyscall(no, a)
	if err := k.traps.Dispatch(trap.TSyscall, trap.RPLUser, tf); err != nil {
		tf.SetRetval(syscall.Sentinel)
	}
	return tf.Retval()
}

// Tick delivers one timer interrupt.
func (k *Kernel) Tick() {
	var tf trap.Frame
	_ = k.traps.Dispatch(trap.TIRQTimer, trap.RPLKern, &tf)
}

func (k *Kernel) Config() Config            { return k.cfg }
func (k *Kernel) Mem() *mem.Manager         { return k.mm }
func (k *Kernel) Table() *task.Table        { return k.table }
func (k *Kernel) Tasks() *task.Manager      { return k.lm }
func (k *Kernel) Sched() *sched.Scheduler   { return k.sc }
func (k *Kernel) Screen() *screen.Screen    { return k.scr }
func (k *Kernel) Console() *console.Console { return k.con }
func (k *Kernel) Traps() *trap.Table        { return k.traps }

// The syscall.System surface.

// Fork duplicates the current task.
func (k *Kernel) Fork() (int, error) { return k.lm.Fork(k.sc.Cur()) }

// CurrentPID reports the running task's id.
func (k *Kernel) CurrentPID() (int, bool) {
	cur := k.sc.Cur()
	if cur == nil {
		return 0, false
	}
	return cur.ID, true
}

// Sleep puts the current task to sleep.
func (k *Kernel) Sleep(ticks int32) task.Decision {
	return k.lm.Sleep(k.sc.Cur(), ticks)
}

// Kill terminates pid.
func (k *Kernel) Kill(pid int) task.Decision { return k.lm.Kill(pid) }

// Yield hands the cpu to the scheduler.
func (k *Kernel) Yield() { k.sc.Yield() }

// Getc pops one byte of console input.
func (k *Kernel) Getc() int32 { return k.con.Getc() }

// Puts writes n bytes at the current task's virtual address ptr to the
// console, in order.
func (k *Kernel) Puts(ptr, n uint32) error {
	cur := k.sc.Cur()
	if cur == nil {
		return task.ErrNoCurrent
	}
	buf := make([]byte, n)
	if err := cur.Pgdir.ReadVirt(ptr, buf); err != nil {
		return err
	}
	for _, c := range buf {
		k.con.Putc(c)
	}
	return nil
}

// NumFreePages reports free physical frames.
func (k *Kernel) NumFreePages() int { return k.mm.Phys().NumFreePages() }

// NumUsedPages reports allocated physical frames.
func (k *Kernel) NumUsedPages() int { return k.mm.Phys().NumUsedPages() }

// Ticks reports timer ticks since boot.
func (k *Kernel) Ticks() int32 { return k.tm.Ticks() }

// SetTextColor sets the screen attribute.
func (k *Kernel) SetTextColor(fg, bg byte) { k.scr.SetTextColor(fg, bg) }

// ClearScreen blanks the screen.
func (k *Kernel) ClearScreen() { k.scr.Clear() }
