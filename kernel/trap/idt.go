package trap

import "errors"

// Trap vectors. Hardware faults live below 0x20, external interrupts
// use 0x20..0x2F, and the syscall gate sits above them all, reachable
// from unprivileged code.
const (
	TDivide   = 0x00
	TDebug    = 0x01
	TGPFault  = 0x0D
	TPGFault  = 0x0E
	TIRQTimer = 0x20
	TSyscall  = 0x30

	NVectors = 256
)

var (
	// ErrBadVector is returned for a vector with no registered handler.
	ErrBadVector = errors.New("trap: unhandled vector")
	// ErrPrivilege is returned when the trapping privilege level may
	// not use the gate.
	ErrPrivilege = errors.New("trap: privilege too low for gate")
)

// Handler services one trap with the saved context of the trapping
// task.
type Handler func(tf *Frame)

type gate struct {
	handler Handler
	dpl     uint16
	present bool
}

// Table is the interrupt descriptor table: per-vector handler and
// descriptor privilege level.
type Table struct {
	gates [NVectors]gate
}

// NewTable returns an empty table; every vector faults until a handler
// is registered.
func NewTable() *Table { return &Table{} }

// Register binds a handler to a vector. dpl is the lowest-numbered
// privilege allowed to raise the vector from software: 0 restricts the
// gate to the kernel, 3 opens it to user code.
func (t *Table) Register(vector int, h Handler, dpl uint16) {
	if vector < 0 || vector >= NVectors {
		panic("trap: vector out of range")
	}
	t.gates[vector] = gate{handler: h, dpl: dpl, present: true}
}

// Dispatch routes a trap raised at privilege cpl to its handler. The
// handler runs to completion before Dispatch returns; the frame holds
// any result it wrote back.
func (t *Table) Dispatch(vector int, cpl uint16, tf *Frame) error {
	if vector < 0 || vector >= NVectors || !t.gates[vector].present {
		return ErrBadVector
	}
	g := t.gates[vector]
	if cpl > g.dpl {
		return ErrPrivilege
	}
	g.handler(tf)
	return nil
}
