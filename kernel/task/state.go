// Package task implements the fixed-capacity task table and the
// lifecycle operations over it: create, fork, kill and sleep.
package task

// State is a task slot's lifecycle state.
type State int

const (
	Free     State = iota // slot unclaimed
	Runnable              // ready, waiting for the scheduler
	Running               // the one task on the cpu
	Sleeping              // counting down RemindTicks
	Stopped               // cleaned up, slot scavengable
)

func (s State) String() string {
	switch s {
	case Free:
		return "FREE"
	case Runnable:
		return "RUNNABLE"
	case Running:
		return "RUNNING"
	case Sleeping:
		return "SLEEP"
	case Stopped:
		return "STOP"
	default:
		return "UNKNOWN"
	}
}

// Scavengable reports whether a later create may claim the slot.
func (s State) Scavengable() bool { return s == Free || s == Stopped }

// Live reports whether the slot owns an address space.
func (s State) Live() bool {
	return s == Runnable || s == Running || s == Sleeping
}
