// Package mem owns physical memory: a page-granular arena standing in
// for the frame pool between the kernel image and MEMORY_END, the
// stack-shaped frame allocator over it, and the direct map used to
// reach any frame's bytes from kernel code.
package mem

import "fmt"
import "sync"

import "rvos/defs"

/// Pa_t is a physical address.
type Pa_t int

/// Ppn_t is a physical page number.
type Ppn_t int

/// Bytepg_t is one page of bytes.
type Bytepg_t [defs.PGSIZE]uint8

/// Addr returns the physical address of the page.
func (p Ppn_t) Addr() Pa_t {
	return Pa_t(int(p) << defs.PGSHIFT)
}

/// Ppn returns the page number containing the address.
func (pa Pa_t) Ppn() Ppn_t {
	return Ppn_t(int(pa) >> defs.PGSHIFT)
}

/// Off returns the page offset of the address.
func (pa Pa_t) Off() int {
	return int(pa) & defs.PGMASK
}

/// Physmem_t is the frame allocator: a watermark plus a LIFO recycle
/// list over the arena.
type Physmem_t struct {
	sync.Mutex
	pages    []Bytepg_t
	current  Ppn_t
	recycled []Ppn_t
}

/// Physmem is the global frame allocator; Phys_init must run first.
var Physmem = &Physmem_t{}

/// Phys_init sizes the arena. npages of zero picks the default pool.
func Phys_init(npages int) *Physmem_t {
	if npages == 0 {
		npages = defs.PHYS_PAGES
	}
	phys := Physmem
	phys.Lock()
	phys.pages = make([]Bytepg_t, npages)
	phys.current = 0
	phys.recycled = nil
	phys.Unlock()
	fmt.Printf("[kernel] frame pool %v pages (%vKB)\n", npages, npages<<2)
	return phys
}

/// Frame_t owns exactly one physical frame. Free returns the frame to
/// the pool; a Frame_t must be freed at most once.
type Frame_t struct {
	Ppn  Ppn_t
	phys *Physmem_t
	dead bool
}

/// Frame_alloc hands out one zeroed frame. ok is false when the pool
/// is exhausted.
func (phys *Physmem_t) Frame_alloc() (*Frame_t, bool) {
	phys.Lock()
	var ppn Ppn_t
	if n := len(phys.recycled); n > 0 {
		ppn = phys.recycled[n-1]
		phys.recycled = phys.recycled[:n-1]
	} else if int(phys.current) < len(phys.pages) {
		ppn = phys.current
		phys.current++
	} else {
		phys.Unlock()
		return nil, false
	}
	phys.pages[ppn] = Bytepg_t{}
	phys.Unlock()
	return &Frame_t{Ppn: ppn, phys: phys}, true
}

/// Free returns the frame to the pool.
func (f *Frame_t) Free() {
	if f.dead {
		panic("frame double free")
	}
	f.dead = true
	f.phys.frame_dealloc(f.Ppn)
}

func (phys *Physmem_t) frame_dealloc(ppn Ppn_t) {
	phys.Lock()
	defer phys.Unlock()
	if ppn >= phys.current {
		panic("dealloc of never-allocated frame")
	}
	for _, r := range phys.recycled {
		if r == ppn {
			panic("frame already recycled")
		}
	}
	phys.recycled = append(phys.recycled, ppn)
}

/// Nfree reports how many frames remain allocatable.
func (phys *Physmem_t) Nfree() int {
	phys.Lock()
	defer phys.Unlock()
	return len(phys.pages) - int(phys.current) + len(phys.recycled)
}

/// Dmappg resolves a page number to its backing page through the
/// direct map.
func (phys *Physmem_t) Dmappg(ppn Ppn_t) *Bytepg_t {
	if int(ppn) >= len(phys.pages) {
		panic("direct map not large enough")
	}
	return &phys.pages[ppn]
}

/// Dmap returns the bytes from pa to the end of its page.
func (phys *Physmem_t) Dmap(pa Pa_t) []uint8 {
	pg := phys.Dmappg(pa.Ppn())
	return pg[pa.Off():]
}
