package mem

import (
	"errors"
	"fmt"
)

// ErrNoMem is returned when no physical frame can be allocated.
var ErrNoMem = errors.New("out of physical memory")

// Frame identifies one physical page frame by index.
type Frame uint32

const noFrame = Frame(0xFFFFFFFF)

// Addr returns the physical address of the frame's first byte.
func (f Frame) Addr() uint32 { return uint32(f) * PGSIZE }

type pageInfo struct {
	ref  uint16
	next Frame // freelist link, valid only while ref == 0 and free
	free bool
}

// PhysMem simulates the machine's physical memory: npages frames of
// PGSIZE bytes backed by one byte slice, with a frame freelist and
// per-frame reference counts.
type PhysMem struct {
	data     []byte
	pages    []pageInfo
	freelist Frame
	nfree    int
}

// NewPhysMem builds a memory of npages frames with every frame free.
func NewPhysMem(npages int) *PhysMem {
	pm := &PhysMem{
		data:     make([]byte, npages*PGSIZE),
		pages:    make([]pageInfo, npages),
		freelist: noFrame,
	}
	pm.freerange(0, npages)
	return pm
}

func (pm *PhysMem) freerange(start, end int) {
	// walk backwards so the freelist hands out low frames first
	for i := end - 1; i >= start; i-- {
		pm.pages[i].free = true
		pm.pages[i].next = pm.freelist
		pm.freelist = Frame(i)
		pm.nfree++
	}
}

// AllocPage takes one frame off the freelist with ref count zero.
// The frame contents are zeroed when zero is true.
func (pm *PhysMem) AllocPage(zero bool) (Frame, error) {
	f := pm.freelist
	if f == noFrame {
		return noFrame, ErrNoMem
	}
	pm.freelist = pm.pages[f].next
	pm.pages[f].free = false
	pm.pages[f].ref = 0
	pm.nfree--
	if zero {
		b := pm.FrameBytes(f)
		for i := range b {
			b[i] = 0
		}
	}
	return f, nil
}

// FreePage returns a frame to the freelist. Freeing a frame that is
// still referenced or already free is a kernel bug.
func (pm *PhysMem) FreePage(f Frame) {
	p := &pm.pages[f]
	if p.free {
		panic(fmt.Sprintf("FreePage: frame %d already free", f))
	}
	if p.ref != 0 {
		panic(fmt.Sprintf("FreePage: frame %d still referenced", f))
	}
	p.free = true
	p.next = pm.freelist
	pm.freelist = f
	pm.nfree++
}

// IncRef marks one more mapping of the frame.
func (pm *PhysMem) IncRef(f Frame) { pm.pages[f].ref++ }

// DecRef drops one mapping and frees the frame when none remain.
func (pm *PhysMem) DecRef(f Frame) {
	p := &pm.pages[f]
	if p.ref == 0 {
		panic(fmt.Sprintf("DecRef: frame %d not referenced", f))
	}
	p.ref--
	if p.ref == 0 {
		pm.FreePage(f)
	}
}

// Ref reports the frame's current mapping count.
func (pm *PhysMem) Ref(f Frame) int { return int(pm.pages[f].ref) }

// FrameBytes exposes the frame's PGSIZE bytes, the page2kva analog.
func (pm *PhysMem) FrameBytes(f Frame) []byte {
	off := int(f) * PGSIZE
	return pm.data[off : off+PGSIZE : off+PGSIZE]
}

// NumFreePages reports how many frames are on the freelist.
func (pm *PhysMem) NumFreePages() int { return pm.nfree }

// NumUsedPages reports how many frames are allocated.
func (pm *PhysMem) NumUsedPages() int { return len(pm.pages) - pm.nfree }

// NumPages reports total physical frames.
func (pm *PhysMem) NumPages() int { return len(pm.pages) }
