// Package vm builds SV39 address spaces: the three-level page table
// over the frame allocator, the mapped-area bookkeeping, and the
// helpers syscalls use to reach user memory.
package vm

import "unsafe"

import "rvos/defs"
import "rvos/mem"

/// Va_t is a virtual address; Vpn_t its page number.
type Va_t int

/// Vpn_t is a virtual page number.
type Vpn_t int

/// Floor returns the page containing the address.
func (va Va_t) Floor() Vpn_t {
	return Vpn_t(int(va) >> defs.PGSHIFT)
}

/// Ceil returns the first page at or above the address.
func (va Va_t) Ceil() Vpn_t {
	return Vpn_t((int(va) + defs.PGSIZE - 1) >> defs.PGSHIFT)
}

/// Off returns the page offset of the address.
func (va Va_t) Off() int {
	return int(va) & defs.PGMASK
}

/// Indexes decomposes the page number into the three 9-bit page-table
/// indexes, highest level first.
func (vpn Vpn_t) Indexes() [3]int {
	v := int(vpn)
	var idx [3]int
	for i := 2; i >= 0; i-- {
		idx[i] = v & 0x1ff
		v >>= 9
	}
	return idx
}

/// Pte_t is a page table entry: PPN at [53:10], flags at [7:0].
type Pte_t uint64

/// PTE flag bits.
const (
	PTE_V Pte_t = 1 << 0 /// valid
	PTE_R Pte_t = 1 << 1 /// readable
	PTE_W Pte_t = 1 << 2 /// writable
	PTE_X Pte_t = 1 << 3 /// executable
	PTE_U Pte_t = 1 << 4 /// user accessible
	PTE_G Pte_t = 1 << 5 /// global
	PTE_A Pte_t = 1 << 6 /// accessed
	PTE_D Pte_t = 1 << 7 /// dirty
)

/// Mkpte builds an entry pointing at ppn with the given flags.
func Mkpte(ppn mem.Ppn_t, flags Pte_t) Pte_t {
	return Pte_t(uint64(ppn)<<10) | flags
}

/// Ppn extracts the physical page number.
func (pte Pte_t) Ppn() mem.Ppn_t {
	return mem.Ppn_t((uint64(pte) >> 10) & ((1 << 44) - 1))
}

/// Valid reports the V bit.
func (pte Pte_t) Valid() bool {
	return pte&PTE_V != 0
}

/// Leaf reports whether the entry maps a page rather than pointing at
/// the next table level.
func (pte Pte_t) Leaf() bool {
	return pte&(PTE_R|PTE_W|PTE_X) != 0
}

/// Readable reports the R bit.
func (pte Pte_t) Readable() bool { return pte&PTE_R != 0 }

/// Writable reports the W bit.
func (pte Pte_t) Writable() bool { return pte&PTE_W != 0 }

/// Pmap_t views a frame as one level of a page table.
type Pmap_t [defs.PGSIZE / 8]Pte_t

func pg2pmap(pg *mem.Bytepg_t) *Pmap_t {
	return (*Pmap_t)(unsafe.Pointer(pg))
}

/// Pagetable_t is a three-level SV39 table. frames owns the root and
/// every intermediate level; a table borrowed From_token owns nothing
/// and must only translate.
type Pagetable_t struct {
	root   mem.Ppn_t
	frames []*mem.Frame_t
	phys   *mem.Physmem_t
}

/// Mkpagetable allocates a table with an empty root level.
func Mkpagetable(phys *mem.Physmem_t) *Pagetable_t {
	f, ok := phys.Frame_alloc()
	if !ok {
		panic("no frames for page table root")
	}
	return &Pagetable_t{root: f.Ppn, frames: []*mem.Frame_t{f}, phys: phys}
}

/// From_token borrows the table rooted at a SATP token for
/// translation only.
func From_token(token int, phys *mem.Physmem_t) *Pagetable_t {
	return &Pagetable_t{root: mem.Ppn_t(token & ((1 << 44) - 1)), phys: phys}
}

/// Token returns the SATP value selecting this table: SV39 mode in
/// the top bits, root PPN below.
func (pt *Pagetable_t) Token() int {
	return int(uint64(8)<<60 | uint64(pt.root))
}

func (pt *Pagetable_t) pmap(ppn mem.Ppn_t) *Pmap_t {
	return pg2pmap(pt.phys.Dmappg(ppn))
}

// find_create walks to the leaf entry for vpn, allocating the
// intermediate levels it crosses.
func (pt *Pagetable_t) find_create(vpn Vpn_t) *Pte_t {
	idx := vpn.Indexes()
	ppn := pt.root
	for i := 0; i < 2; i++ {
		pte := &pt.pmap(ppn)[idx[i]]
		if !pte.Valid() {
			f, ok := pt.phys.Frame_alloc()
			if !ok {
				panic("no frames for page table level")
			}
			pt.frames = append(pt.frames, f)
			*pte = Mkpte(f.Ppn, PTE_V)
		}
		ppn = pte.Ppn()
	}
	return &pt.pmap(ppn)[idx[2]]
}

func (pt *Pagetable_t) find(vpn Vpn_t) (*Pte_t, bool) {
	idx := vpn.Indexes()
	ppn := pt.root
	for i := 0; i < 2; i++ {
		pte := pt.pmap(ppn)[idx[i]]
		if !pte.Valid() {
			return nil, false
		}
		ppn = pte.Ppn()
	}
	return &pt.pmap(ppn)[idx[2]], true
}

/// Map installs a leaf mapping. Mapping an already-valid page is a
/// kernel bug.
func (pt *Pagetable_t) Map(vpn Vpn_t, ppn mem.Ppn_t, flags Pte_t) {
	pte := pt.find_create(vpn)
	if pte.Valid() {
		panic("vpn mapped twice")
	}
	*pte = Mkpte(ppn, flags|PTE_V)
}

/// Unmap removes a leaf mapping that must exist.
func (pt *Pagetable_t) Unmap(vpn Vpn_t) {
	pte, ok := pt.find(vpn)
	if !ok || !pte.Valid() {
		panic("unmap of absent page")
	}
	*pte = 0
}

/// Translate returns the leaf entry for vpn.
func (pt *Pagetable_t) Translate(vpn Vpn_t) (Pte_t, bool) {
	pte, ok := pt.find(vpn)
	if !ok || !pte.Valid() {
		return 0, false
	}
	return *pte, true
}

/// Translate_va resolves a virtual address to a physical one.
func (pt *Pagetable_t) Translate_va(va Va_t) (mem.Pa_t, bool) {
	pte, ok := pt.Translate(va.Floor())
	if !ok {
		return 0, false
	}
	return pte.Ppn().Addr() + mem.Pa_t(va.Off()), true
}

/// Free returns every frame the table owns.
func (pt *Pagetable_t) Free() {
	for _, f := range pt.frames {
		f.Free()
	}
	pt.frames = nil
}
