// Package timer is the machine's tick counter.
package timer

// Timer counts ticks since boot. The scheduler advances it; everyone
// else only reads.
type Timer struct {
	ticks int32
}

// New returns a timer at tick zero.
func New() *Timer { return &Timer{} }

// Tick advances the counter by one.
func (t *Timer) Tick() { t.ticks++ }

// Ticks reports ticks since boot.
func (t *Timer) Ticks() int32 { return t.ticks }
