// Package sched is the cooperative round-robin scheduler: it owns the
// current-task reference and the tick-driven sleep countdown.
package sched

import (
	"jos-in-go/kernel/mem"
	"jos-in-go/kernel/task"
	"jos-in-go/kernel/timer"
)

// Scheduler selects which task runs. Exactly one task is RUNNING at
// any instant; everything else is cooperative hand-off through Yield.
type Scheduler struct {
	table   *task.Table
	mm      *mem.Manager
	tm      *timer.Timer
	quantum int32
	cur     *task.Task
}

// New wires a scheduler over the table. quantum refills a task's
// allowance when it is promoted with none left. No task is current
// until the first Yield or an explicit Adopt.
func New(table *task.Table, mm *mem.Manager, tm *timer.Timer, quantum int32) *Scheduler {
	return &Scheduler{table: table, mm: mm, tm: tm, quantum: quantum}
}

// Cur returns the current task, nil when the cpu is idle.
func (s *Scheduler) Cur() *task.Task { return s.cur }

// Adopt installs a task as current without a scheduling pass, used
// once at boot for the bootstrap task.
func (s *Scheduler) Adopt(t *task.Task) {
	t.State = task.Running
	s.cur = t
	s.mm.Activate(t.Pgdir)
}

// Yield relinquishes the cpu: the current task (if still RUNNING)
// drops back to RUNNABLE, then the next RUNNABLE slot after it is
// promoted. When nothing is runnable the cpu goes idle.
func (s *Scheduler) Yield() *task.Task {
	start := 0
	if s.cur != nil {
		if s.cur.State == task.Running {
			s.cur.State = task.Runnable
		}
		start = s.cur.ID + 1
	}

	n := s.table.Cap()
	for i := 0; i < n; i++ {
		t := s.table.Get((start + i) % n)
		if t.State == task.Runnable {
			t.State = task.Running
			if t.RemindTicks <= 0 {
				t.RemindTicks = s.quantum
			}
			s.cur = t
			s.mm.Activate(t.Pgdir)
			return t
		}
	}

	s.cur = nil
	s.mm.Activate(s.mm.Kernel())
	return nil
}

// Tick advances the timer by one tick: the running task burns quantum,
// sleepers count down and wake to RUNNABLE when the countdown hits
// zero. A running task that exhausts its quantum yields.
func (s *Scheduler) Tick() {
	s.tm.Tick()

	for i := 0; i < s.table.Cap(); i++ {
		t := s.table.Get(i)
		if t.State == task.Sleeping {
			t.RemindTicks--
			if t.RemindTicks <= 0 {
				t.State = task.Runnable
			}
		}
	}

	if s.cur != nil && s.cur.State == task.Running {
		s.cur.RemindTicks--
		if s.cur.RemindTicks <= 0 {
			s.cur.RemindTicks = 0
			s.Yield()
		}
	}
}
