package task

import (
	"container/heap"

	"jos-in-go/kernel/mem"
	"jos-in-go/kernel/trap"
)

// NoParent marks the bootstrap task, which has no creator.
const NoParent = -1

// Task is one schedulable execution context. Its ID equals its slot
// index in the table and never changes while the slot is claimed.
type Task struct {
	ID          int
	ParentID    int
	State       State
	Pgdir       *mem.AddressSpace
	TF          trap.Frame
	RemindTicks int32 // quantum while runnable/running, countdown while asleep
}

// slotHeap orders reusable slot indices lowest first, so acquisition
// matches the reference kernel's linear scan observably.
type slotHeap []int

func (h slotHeap) Len() int            { return len(h) }
func (h slotHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h slotHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *slotHeap) Push(x interface{}) { *h = append(*h, x.(int)) }
func (h *slotHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Table is the fixed-capacity task table. Slots are claimed through
// Acquire and returned through Release; only the lifecycle manager and
// the scheduler mutate task state.
type Table struct {
	tasks []Task
	free  slotHeap
}

// NewTable builds a table of n FREE slots, all acquirable.
func NewTable(n int) *Table {
	t := &Table{tasks: make([]Task, n)}
	for i := 0; i < n; i++ {
		t.tasks[i].ID = i
		t.tasks[i].ParentID = NoParent
		t.free = append(t.free, i)
	}
	heap.Init(&t.free)
	return t
}

// Cap reports the table capacity.
func (t *Table) Cap() int { return len(t.tasks) }

// Get returns the slot for id, or nil when id is out of range.
func (t *Table) Get(id int) *Task {
	if id < 0 || id >= len(t.tasks) {
		return nil
	}
	return &t.tasks[id]
}

// Acquire claims the lowest-indexed scavengable slot.
func (t *Table) Acquire() (*Task, bool) {
	if t.free.Len() == 0 {
		return nil, false
	}
	idx := heap.Pop(&t.free).(int)
	return &t.tasks[idx], true
}

// Release makes a slot acquirable again. The caller must already have
// moved it to a scavengable state.
func (t *Table) Release(id int) {
	if !t.tasks[id].State.Scavengable() {
		panic("task: releasing a live slot")
	}
	heap.Push(&t.free, id)
}

// CountState reports how many slots are in state s.
func (t *Table) CountState(s State) int {
	n := 0
	for i := range t.tasks {
		if t.tasks[i].State == s {
			n++
		}
	}
	return n
}
