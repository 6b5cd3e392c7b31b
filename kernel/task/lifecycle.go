package task

import (
	"fmt"

	"jos-in-go/kernel/mem"
	"jos-in-go/kernel/trap"
)

// Decision tells the caller what the scheduler should do after a
// lifecycle operation. Lifecycle code changes state and releases
// resources; who runs next is the dispatcher's job.
type Decision int

const (
	// Stay keeps the current task on the cpu.
	Stay Decision = iota
	// Yield relinquishes the cpu to the scheduler.
	Yield
)

// Manager performs the lifecycle operations against one table and one
// memory manager. The current task is threaded through explicitly
// rather than read from a global.
type Manager struct {
	mm         *mem.Manager
	table      *Table
	stackPages int
	quantum    int32
}

// NewManager wires a lifecycle manager. stackPages is the user stack
// size in pages, quantum the default scheduling allowance in ticks.
func NewManager(mm *mem.Manager, table *Table, stackPages int, quantum int32) *Manager {
	return &Manager{mm: mm, table: table, stackPages: stackPages, quantum: quantum}
}

// Table returns the managed task table.
func (m *Manager) Table() *Table { return m.table }

func (m *Manager) stackBase() uint32 {
	return mem.USTACKTOP - uint32(m.stackPages)*mem.PGSIZE
}

// Create claims the lowest scavengable slot and builds a fresh task in
// it: new address space, user stack mapped writable below USTACKTOP,
// user-mode context, parent set to cur (or none when bootstrapping),
// default quantum, state RUNNABLE. On any partial failure everything
// already built is released before the error is reported; the table is
// unchanged as far as any later observer can tell.
func (m *Manager) Create(cur *Task) (*Task, error) {
	t, ok := m.table.Acquire()
	if !ok {
		return nil, ErrNoFreeSlot
	}

	as, err := m.mm.NewAddressSpace()
	if err != nil {
		m.table.Release(t.ID)
		return nil, fmt.Errorf("create task %d: %w", t.ID, err)
	}

	for va := m.stackBase(); va < mem.USTACKTOP; va += mem.PGSIZE {
		if _, err := as.Insert(va, mem.PTE_U|mem.PTE_W); err != nil {
			// unwind the pages mapped so far and the directory
			for ua := m.stackBase(); ua < va; ua += mem.PGSIZE {
				as.Remove(ua)
			}
			as.RemoveTables()
			as.RemoveDir()
			m.table.Release(t.ID)
			return nil, fmt.Errorf("create task %d: user stack: %w", t.ID, err)
		}
	}

	t.ParentID = NoParent
	if cur != nil {
		t.ParentID = cur.ID
	}
	t.Pgdir = as
	t.TF = trap.NewUserFrame(0, mem.USTACKTOP-mem.PGSIZE)
	t.RemindTicks = m.quantum
	t.State = Runnable
	return t, nil
}

// Fork duplicates the current task: a fresh slot from Create, the
// parent's saved context byte for byte, a physical copy of every user
// stack page, and the shared program image mapped at the same
// addresses. The child's saved return value is forced to zero so the
// child observes fork() == 0 on first resumption while the parent gets
// the child's id. A failed fork leaves no observable trace.
func (m *Manager) Fork(cur *Task) (int, error) {
	if cur == nil {
		return 0, ErrNoCurrent
	}

	child, err := m.Create(cur)
	if err != nil {
		return 0, err
	}

	child.TF = cur.TF

	for va := m.stackBase(); va < mem.USTACKTOP; va += mem.PGSIZE {
		cf, ok := child.Pgdir.Lookup(va)
		pf, pok := cur.Pgdir.Lookup(va)
		if !ok || !pok {
			m.destroy(child)
			return 0, fmt.Errorf("fork from %d: %w", cur.ID, ErrStackCopy)
		}
		copy(m.mm.Phys().FrameBytes(cf), m.mm.Phys().FrameBytes(pf))
	}

	if err := m.mm.MapImage(child.Pgdir); err != nil {
		m.destroy(child)
		return 0, fmt.Errorf("fork from %d: program image: %w", cur.ID, err)
	}

	child.TF.SetRetval(0)
	return child.ID, nil
}

// Kill terminates a task and releases everything it owns. Reserved and
// out-of-range ids are ignored, as are slots already FREE or STOP, so
// killing twice is safe. A real cleanup ends with a yield: the caller
// may have just terminated itself and must not run on.
func (m *Manager) Kill(pid int) Decision {
	if pid <= 0 || pid >= m.table.Cap() {
		return Stay
	}
	t := m.table.Get(pid)
	if t.State.Scavengable() {
		return Stay
	}
	m.destroy(t)
	return Yield
}

// Sleep puts the current task to sleep for ticks. A missing or
// non-running current task is a kernel invariant violation and halts.
func (m *Manager) Sleep(cur *Task, ticks int32) Decision {
	if cur == nil || cur.State != Running {
		panic("task: sleep without a running task")
	}
	cur.State = Sleeping
	cur.RemindTicks = ticks
	return Yield
}

// destroy moves t to STOP and tears its memory down. The active
// translation root is switched to the kernel's first so the directory
// being destroyed is never the one in use.
func (m *Manager) destroy(t *Task) {
	t.State = Stopped
	m.mm.Activate(m.mm.Kernel())
	for va := m.stackBase(); va < mem.USTACKTOP; va += mem.PGSIZE {
		t.Pgdir.Remove(va)
	}
	t.Pgdir.RemoveTables()
	t.Pgdir.RemoveDir()
	t.Pgdir = nil
	m.table.Release(t.ID)
}
