// Package syscall decodes register-based kernel calls out of a trap
// frame, routes them to the kernel, and writes the result back where
// the resumed task will read it.
package syscall

import (
	"context"

	"jos-in-go/kernel/ktrace"
	"jos-in-go/kernel/task"
	"jos-in-go/kernel/trap"
)

// Call numbers of the syscall ABI, in dispatch-table order.
const (
	SysFork = uint32(iota)
	SysGetc
	SysPuts
	SysGetPID
	SysSleep
	SysKill
	SysGetNumFreePage
	SysGetNumUsedPage
	SysGetTicks
	SysSetTextColor
	SysCls
	SysTest
)

// Sentinel is the single failure value of the ABI. Every internal
// error collapses to it here and nowhere else.
const Sentinel = int32(-1)

// TestValue is the fixed result of the diagnostic call.
const TestValue = int32(12345678)

// System is the narrow surface the dispatcher needs from the kernel.
// Lifecycle calls hand back a scheduling decision; acting on it is the
// dispatcher's job, via Yield.
type System interface {
	Fork() (int, error)
	CurrentPID() (int, bool)
	Sleep(ticks int32) task.Decision
	Kill(pid int) task.Decision
	Yield()

	Getc() int32
	Puts(ptr uint32, n uint32) error
	NumFreePages() int
	NumUsedPages() int
	Ticks() int32
	SetTextColor(fg, bg byte)
	ClearScreen()
}

// Service is the syscall dispatcher bound to one kernel.
type Service struct {
	sys System
}

// New builds a dispatcher over sys.
func New(sys System) *Service { return &Service{sys: sys} }

// Init binds the dispatcher to the syscall vector, reachable from
// user-mode code and distinct from every fault vector.
func (s *Service) Init(t *trap.Table) {
	t.Register(trap.TSyscall, s.Handler, trap.RPLUser)
}

// Handler is the trap entry point: decode the call out of the frame,
// run it, store the result in the frame's return-value register.
func (s *Service) Handler(tf *trap.Frame) {
	no, args := tf.SyscallArgs()
	tf.SetRetval(s.Do(no, args[0], args[1], args[2], args[3], args[4]))
}

// Do executes one call. Unrecognized numbers return the sentinel with
// no side effect.
func (s *Service) Do(no, a1, a2, a3, a4, a5 uint32) int32 {
	_, span := ktrace.StartSpan(context.Background(), "syscall."+Name(no))
	defer span.End()
	span.WithInt("syscall.no", int64(no))

	ret := Sentinel
	switch no {
	case SysFork:
		pid, err := s.sys.Fork()
		if err == nil {
			ret = int32(pid)
		}
		span.SetStatus(err)

	case SysGetc:
		ret = s.sys.Getc()

	case SysPuts:
		if err := s.sys.Puts(a1, a2); err != nil {
			span.SetStatus(err)
			break
		}
		ret = 0

	case SysGetPID:
		if pid, ok := s.sys.CurrentPID(); ok {
			ret = int32(pid)
		}

	case SysSleep:
		if s.sys.Sleep(int32(a1)) == task.Yield {
			s.sys.Yield()
		}
		ret = 0

	case SysKill:
		if s.sys.Kill(int(int32(a1))) == task.Yield {
			s.sys.Yield()
		}
		ret = 0

	case SysGetNumFreePage:
		ret = int32(s.sys.NumFreePages())

	case SysGetNumUsedPage:
		ret = int32(s.sys.NumUsedPages())

	case SysGetTicks:
		ret = s.sys.Ticks()

	case SysSetTextColor:
		s.sys.SetTextColor(byte(a1), byte(a2))
		ret = 0

	case SysCls:
		s.sys.ClearScreen()
		ret = 0

	case SysTest:
		ret = TestValue
	}

	span.WithInt("syscall.ret", int64(ret))
	return ret
}

// Name maps a call number to its ABI name, for tracing and logs.
func Name(no uint32) string {
	switch no {
	case SysFork:
		return "fork"
	case SysGetc:
		return "getc"
	case SysPuts:
		return "puts"
	case SysGetPID:
		return "getpid"
	case SysSleep:
		return "sleep"
	case SysKill:
		return "kill"
	case SysGetNumFreePage:
		return "get_num_free_page"
	case SysGetNumUsedPage:
		return "get_num_used_page"
	case SysGetTicks:
		return "get_ticks"
	case SysSetTextColor:
		return "settextcolor"
	case SysCls:
		return "cls"
	case SysTest:
		return "test"
	default:
		return "unknown"
	}
}
