// Package trap holds the saved execution context and the vector table
// that routes software interrupts to kernel handlers.
package trap

import "fmt"

// Segment selectors, matching the global descriptor table layout:
// null, kernel text, kernel data, user text, user data.
const (
	GD_KT = uint16(0x08)
	GD_KD = uint16(0x10)
	GD_UT = uint16(0x18)
	GD_UD = uint16(0x20)
)

// Requested privilege levels.
const (
	RPLKern = uint16(0)
	RPLUser = uint16(3)
)

// PushRegs is the general register block in pushal order.
type PushRegs struct {
	Edi  uint32
	Esi  uint32
	Ebp  uint32
	OEsp uint32
	Ebx  uint32
	Edx  uint32
	Ecx  uint32
	Eax  uint32
}

// Frame is the register, segment and privilege state captured on
// entering the kernel and restored on resumption. Fields follow the
// hardware trap layout; code outside this package treats it as an
// opaque execution context and goes through the accessors.
type Frame struct {
	Regs   PushRegs
	Es     uint16
	Ds     uint16
	Trapno uint32
	Err    uint32
	Eip    uint32
	Cs     uint16
	Eflags uint32
	Esp    uint32
	Ss     uint16
}

// NewUserFrame builds the initial context for a task entering user
// mode: user code/data selectors at RPL 3 and the given stack pointer.
// The privilege invariants cannot be violated through this
// constructor.
func NewUserFrame(entry, esp uint32) Frame {
	return Frame{
		Es:  GD_UD | RPLUser,
		Ds:  GD_UD | RPLUser,
		Eip: entry,
		Cs:  GD_UT | RPLUser,
		Esp: esp,
		Ss:  GD_UD | RPLUser,
	}
}

// UserMode reports whether the saved context resumes at privilege
// level 3.
func (f *Frame) UserMode() bool { return f.Cs&3 == RPLUser }

// SetSyscall loads the call number and arguments into the registers
// the syscall ABI assigns them: eax, then edx, ecx, ebx, edi, esi.
func (f *Frame) SetSyscall(no uint32, args [5]uint32) {
	f.Regs.Eax = no
	f.Regs.Edx = args[0]
	f.Regs.Ecx = args[1]
	f.Regs.Ebx = args[2]
	f.Regs.Edi = args[3]
	f.Regs.Esi = args[4]
}

// SyscallArgs reads the call number and arguments back out.
func (f *Frame) SyscallArgs() (no uint32, args [5]uint32) {
	return f.Regs.Eax,
		[5]uint32{f.Regs.Edx, f.Regs.Ecx, f.Regs.Ebx, f.Regs.Edi, f.Regs.Esi}
}

// SetRetval stores a syscall result where the resumed task reads it.
func (f *Frame) SetRetval(v int32) { f.Regs.Eax = uint32(v) }

// Retval reads the stored syscall result.
func (f *Frame) Retval() int32 { return int32(f.Regs.Eax) }

func (f *Frame) String() string {
	return fmt.Sprintf("eip=%#x esp=%#x cs=%#x eax=%#x", f.Eip, f.Esp, f.Cs, f.Regs.Eax)
}
