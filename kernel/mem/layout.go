package mem

// Virtual memory layout, a go version of inc/memlayout.h.
//
// 32-bit address space, two-level paging:
//
// USTACKTOP    -- top of the user stack, grows down
// UTEXT        -- user program text
// UDATA        -- user program data
// UBSS         -- user program bss
// URODATA      -- user program read-only data
//
// The user stack occupies UsrStackSize bytes ending at USTACKTOP. All
// tasks share one static program image mapped at the U* addresses.

const PGSIZE = 4096

const (
	USTACKTOP = uint32(0xB0000000)

	UTEXT   = uint32(0x00800000)
	UDATA   = uint32(0x01000000)
	UBSS    = uint32(0x01800000)
	URODATA = uint32(0x02000000)
)

// Page table / directory entry bits.
const (
	PTE_P = uint32(1 << 0) // Present
	PTE_W = uint32(1 << 1) // Writable
	PTE_U = uint32(1 << 2) // User
)

const (
	ptesPerPage = PGSIZE / 4
	pdxShift    = 22
	ptxShift    = 12
)

// PDX/PTX/PGOFF decompose a linear address the way mmu.h does.
func PDX(va uint32) uint32   { return (va >> pdxShift) & 0x3FF }
func PTX(va uint32) uint32   { return (va >> ptxShift) & 0x3FF }
func PGOFF(va uint32) uint32 { return va & 0xFFF }

func PGROUNDDOWN(a uint32) uint32 { return a &^ (PGSIZE - 1) }
func PGROUNDUP(a uint32) uint32   { return (a + PGSIZE - 1) &^ (PGSIZE - 1) }

func pteAddr(pte uint32) uint32 { return pte &^ 0xFFF }
