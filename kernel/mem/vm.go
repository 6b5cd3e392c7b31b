package mem

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrFault is returned when a virtual address has no mapping.
var ErrFault = errors.New("page fault")

// AddressSpace is one task's page directory: a two-level translation
// tree whose directory and tables live inside physical frames, entries
// encoded as 32-bit words the way the hardware would read them.
type AddressSpace struct {
	pm  *PhysMem
	dir Frame
}

// Region is one span of the shared static program image.
type Region struct {
	VA     uint32
	Perm   uint32
	Frames []Frame
}

// Manager owns physical memory, the kernel's own address space, the
// active translation root and the shared program image.
type Manager struct {
	pm    *PhysMem
	kern  *AddressSpace
	cr3   uint32
	image []Region
}

// NewManager carves npages frames of physical memory and sets up the
// kernel address space as the active translation root.
func NewManager(npages int) (*Manager, error) {
	m := &Manager{pm: NewPhysMem(npages)}
	kern, err := m.NewAddressSpace()
	if err != nil {
		return nil, fmt.Errorf("kernel page directory: %w", err)
	}
	m.kern = kern
	m.Activate(kern)
	return m, nil
}

// Phys exposes the raw physical memory.
func (m *Manager) Phys() *PhysMem { return m.pm }

// Kernel returns the kernel's own address space.
func (m *Manager) Kernel() *AddressSpace { return m.kern }

// Activate switches the active translation root, the lcr3 analog.
func (m *Manager) Activate(as *AddressSpace) { m.cr3 = as.dir.Addr() }

// ActiveCR3 reports the physical address of the active directory.
func (m *Manager) ActiveCR3() uint32 { return m.cr3 }

// NewAddressSpace allocates a zeroed page directory, the setupkvm
// analog.
func (m *Manager) NewAddressSpace() (*AddressSpace, error) {
	dir, err := m.pm.AllocPage(true)
	if err != nil {
		return nil, err
	}
	return &AddressSpace{pm: m.pm, dir: dir}, nil
}

// ImageSpec describes one program image region to load at boot.
type ImageSpec struct {
	VA    uint32
	Perm  uint32
	Pages int
}

// LoadImage allocates frames for the static program image once at
// boot. The extra reference pins each frame for the machine's
// lifetime, so image frames survive every task teardown.
func (m *Manager) LoadImage(regions []ImageSpec) error {
	for _, r := range regions {
		reg := Region{VA: r.VA, Perm: r.Perm}
		for i := 0; i < r.Pages; i++ {
			f, err := m.pm.AllocPage(true)
			if err != nil {
				return fmt.Errorf("program image at %#x: %w", r.VA, err)
			}
			m.pm.IncRef(f)
			reg.Frames = append(reg.Frames, f)
		}
		m.image = append(m.image, reg)
	}
	return nil
}

// Image returns the shared program image regions.
func (m *Manager) Image() []Region { return m.image }

// MapImage establishes the shared code/data/bss/rodata mappings in as,
// the setupvm analog: same frames, same addresses, for every task.
func (m *Manager) MapImage(as *AddressSpace) error {
	for _, reg := range m.image {
		for i, f := range reg.Frames {
			va := reg.VA + uint32(i)*PGSIZE
			if err := as.InsertFrame(f, va, reg.Perm); err != nil {
				return err
			}
		}
	}
	return nil
}

func (as *AddressSpace) entry(table Frame, idx uint32) uint32 {
	b := as.pm.FrameBytes(table)
	return binary.LittleEndian.Uint32(b[idx*4:])
}

func (as *AddressSpace) setEntry(table Frame, idx uint32, v uint32) {
	b := as.pm.FrameBytes(table)
	binary.LittleEndian.PutUint32(b[idx*4:], v)
}

// walk returns the page table holding va's entry, allocating the table
// when create is set. The nil return without error mirrors the
// teacher's walk: no table and no permission to build one.
func (as *AddressSpace) walk(va uint32, create bool) (Frame, bool, error) {
	pde := as.entry(as.dir, PDX(va))
	if pde&PTE_P != 0 {
		return Frame(pteAddr(pde) / PGSIZE), true, nil
	}
	if !create {
		return noFrame, false, nil
	}
	pt, err := as.pm.AllocPage(true)
	if err != nil {
		return noFrame, false, err
	}
	as.setEntry(as.dir, PDX(va), pt.Addr()|PTE_P|PTE_W|PTE_U)
	return pt, true, nil
}

// Insert allocates a fresh zeroed frame and maps it at va, the
// page_alloc + page_insert pair from task creation.
func (as *AddressSpace) Insert(va uint32, perm uint32) (Frame, error) {
	f, err := as.pm.AllocPage(true)
	if err != nil {
		return noFrame, err
	}
	if err := as.InsertFrame(f, va, perm); err != nil {
		as.pm.FreePage(f)
		return noFrame, err
	}
	return f, nil
}

// InsertFrame maps an existing frame at va, replacing any previous
// mapping there. The reference count is raised before any removal so
// remapping the same frame at the same address is safe.
func (as *AddressSpace) InsertFrame(f Frame, va uint32, perm uint32) error {
	pt, ok, err := as.walk(va, true)
	if err != nil {
		return err
	}
	if !ok {
		return ErrFault
	}
	as.pm.IncRef(f)
	if old := as.entry(pt, PTX(va)); old&PTE_P != 0 {
		as.pm.DecRef(Frame(pteAddr(old) / PGSIZE))
	}
	as.setEntry(pt, PTX(va), f.Addr()|(perm&0xFFF)|PTE_P)
	return nil
}

// Lookup reports the frame mapped at va, the page_lookup analog.
func (as *AddressSpace) Lookup(va uint32) (Frame, bool) {
	pt, ok, _ := as.walk(va, false)
	if !ok {
		return noFrame, false
	}
	pte := as.entry(pt, PTX(va))
	if pte&PTE_P == 0 {
		return noFrame, false
	}
	return Frame(pteAddr(pte) / PGSIZE), true
}

// Remove unmaps va and drops the frame reference, freeing the frame
// when it was the last mapping. Unmapped addresses are a no-op.
func (as *AddressSpace) Remove(va uint32) {
	pt, ok, _ := as.walk(va, false)
	if !ok {
		return
	}
	pte := as.entry(pt, PTX(va))
	if pte&PTE_P == 0 {
		return
	}
	as.setEntry(pt, PTX(va), 0)
	as.pm.DecRef(Frame(pteAddr(pte) / PGSIZE))
}

// RemoveTables tears down every page table, dropping any mapping still
// present, the ptable_remove analog. The directory itself survives.
func (as *AddressSpace) RemoveTables() {
	for pdx := uint32(0); pdx < ptesPerPage; pdx++ {
		pde := as.entry(as.dir, pdx)
		if pde&PTE_P == 0 {
			continue
		}
		pt := Frame(pteAddr(pde) / PGSIZE)
		for ptx := uint32(0); ptx < ptesPerPage; ptx++ {
			pte := as.entry(pt, ptx)
			if pte&PTE_P == 0 {
				continue
			}
			as.setEntry(pt, ptx, 0)
			as.pm.DecRef(Frame(pteAddr(pte) / PGSIZE))
		}
		as.setEntry(as.dir, pdx, 0)
		as.pm.FreePage(pt)
	}
}

// RemoveDir frees the page directory frame, the pgdir_remove analog.
// The address space is unusable afterwards.
func (as *AddressSpace) RemoveDir() {
	as.pm.FreePage(as.dir)
	as.dir = noFrame
}

// PhysAddr reports the directory's physical address, what lcr3 loads.
func (as *AddressSpace) PhysAddr() uint32 { return as.dir.Addr() }

// MappedPages counts present leaf mappings, used to verify teardown.
// A torn-down address space has none.
func (as *AddressSpace) MappedPages() int {
	if as.dir == noFrame {
		return 0
	}
	n := 0
	for pdx := uint32(0); pdx < ptesPerPage; pdx++ {
		pde := as.entry(as.dir, pdx)
		if pde&PTE_P == 0 {
			continue
		}
		pt := Frame(pteAddr(pde) / PGSIZE)
		for ptx := uint32(0); ptx < ptesPerPage; ptx++ {
			if as.entry(pt, ptx)&PTE_P != 0 {
				n++
			}
		}
	}
	return n
}

// ReadVirt copies len(dst) bytes from the task's virtual memory.
func (as *AddressSpace) ReadVirt(va uint32, dst []byte) error {
	for n := 0; n < len(dst); {
		f, ok := as.Lookup(va)
		if !ok {
			return fmt.Errorf("%w at %#x", ErrFault, va)
		}
		off := PGOFF(va)
		c := copy(dst[n:], as.pm.FrameBytes(f)[off:])
		n += c
		va += uint32(c)
	}
	return nil
}

// WriteVirt copies src into the task's virtual memory.
func (as *AddressSpace) WriteVirt(va uint32, src []byte) error {
	for n := 0; n < len(src); {
		f, ok := as.Lookup(va)
		if !ok {
			return fmt.Errorf("%w at %#x", ErrFault, va)
		}
		off := PGOFF(va)
		c := copy(as.pm.FrameBytes(f)[off:], src[n:])
		n += c
		va += uint32(c)
	}
	return nil
}
