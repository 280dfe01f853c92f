package vm

import "fmt"
import "sync"

import "rvos/defs"
import "rvos/mem"
import "rvos/sbi"

/// Maptype_t selects how an area's pages find their frames.
type Maptype_t int

const (
	/// MapIdentical maps vpn to the equal ppn; kernel pool only.
	MapIdentical Maptype_t = iota
	/// MapFramed backs every page with an owned frame.
	MapFramed
)

/// Maparea_t is a half-open vpn range mapped with one permission set.
/// Framed areas own their frames.
type Maparea_t struct {
	start, end Vpn_t
	mtype      Maptype_t
	perm       Pte_t
	frames     map[Vpn_t]*mem.Frame_t
}

/// Mkarea builds an unmapped area covering [start, end).
func Mkarea(start, end Va_t, mtype Maptype_t, perm Pte_t) *Maparea_t {
	return &Maparea_t{
		start:  start.Floor(),
		end:    end.Ceil(),
		mtype:  mtype,
		perm:   perm,
		frames: make(map[Vpn_t]*mem.Frame_t),
	}
}

// from_another clones the range and permissions but none of the
// frames; used by the fork copy.
func (ma *Maparea_t) from_another() *Maparea_t {
	return &Maparea_t{
		start:  ma.start,
		end:    ma.end,
		mtype:  ma.mtype,
		perm:   ma.perm,
		frames: make(map[Vpn_t]*mem.Frame_t),
	}
}

func (ma *Maparea_t) map_one(pt *Pagetable_t, vpn Vpn_t) {
	var ppn mem.Ppn_t
	if ma.mtype == MapIdentical {
		ppn = mem.Ppn_t(vpn)
	} else {
		f, ok := pt.phys.Frame_alloc()
		if !ok {
			panic("no frames for user mapping")
		}
		ma.frames[vpn] = f
		ppn = f.Ppn
	}
	pt.Map(vpn, ppn, ma.perm)
}

func (ma *Maparea_t) unmap_one(pt *Pagetable_t, vpn Vpn_t) {
	if ma.mtype == MapFramed {
		ma.frames[vpn].Free()
		delete(ma.frames, vpn)
	}
	pt.Unmap(vpn)
}

func (ma *Maparea_t) mapall(pt *Pagetable_t) {
	for vpn := ma.start; vpn < ma.end; vpn++ {
		ma.map_one(pt, vpn)
	}
}

func (ma *Maparea_t) unmapall(pt *Pagetable_t) {
	for vpn := ma.start; vpn < ma.end; vpn++ {
		ma.unmap_one(pt, vpn)
	}
}

// copy_data writes data into the area's frames starting at the area's
// first page.
func (ma *Maparea_t) copy_data(pt *Pagetable_t, data []uint8) {
	if ma.mtype != MapFramed {
		panic("copy into identical area")
	}
	vpn := ma.start
	for off := 0; off < len(data); off += defs.PGSIZE {
		end := off + defs.PGSIZE
		if end > len(data) {
			end = len(data)
		}
		dst := pt.phys.Dmappg(ma.frames[vpn].Ppn)
		copy(dst[:], data[off:end])
		vpn++
	}
}

/// Aspace_t is an address space: a page table plus the areas mapped
/// through it. Dropping the space with Free returns every frame.
type Aspace_t struct {
	Pt    *Pagetable_t
	areas []*Maparea_t
}

/// Mkaspace returns an empty address space.
func Mkaspace(phys *mem.Physmem_t) *Aspace_t {
	return &Aspace_t{Pt: Mkpagetable(phys)}
}

func (as *Aspace_t) push(ma *Maparea_t, data []uint8) {
	ma.mapall(as.Pt)
	if data != nil {
		ma.copy_data(as.Pt, data)
	}
	as.areas = append(as.areas, ma)
}

/// Insert_framed maps [start, end) with owned frames.
func (as *Aspace_t) Insert_framed(start, end Va_t, perm Pte_t) {
	as.push(Mkarea(start, end, MapFramed, perm), nil)
}

/// Remove_area unmaps and drops the area starting at the given page.
func (as *Aspace_t) Remove_area(start Vpn_t) {
	for i, ma := range as.areas {
		if ma.start == start {
			ma.unmapall(as.Pt)
			as.areas = append(as.areas[:i], as.areas[i+1:]...)
			return
		}
	}
	panic("no area with that start")
}

/// Token returns the space's SATP token.
func (as *Aspace_t) Token() int {
	return as.Pt.Token()
}

/// Activate makes this space current on the hart.
func (as *Aspace_t) Activate() {
	sbi.SetSatp(as.Token())
	sbi.Fencevma()
}

/// Recycle_data_pages unmaps every area but keeps the table root, the
/// shape the exit path wants before the process is reaped.
func (as *Aspace_t) Recycle_data_pages() {
	for _, ma := range as.areas {
		ma.unmapall(as.Pt)
	}
	as.areas = nil
}

/// Free returns every frame: areas first, then the table itself.
func (as *Aspace_t) Free() {
	as.Recycle_data_pages()
	as.Pt.Free()
	as.Pt = nil
}

/// Translate proxies to the page table.
func (as *Aspace_t) Translate(vpn Vpn_t) (Pte_t, bool) {
	return as.Pt.Translate(vpn)
}

/// Vpns reports the set of pages covered by areas, for the
/// area/page-table agreement check.
func (as *Aspace_t) Vpns() map[Vpn_t]bool {
	ret := make(map[Vpn_t]bool)
	for _, ma := range as.areas {
		for vpn := ma.start; vpn < ma.end; vpn++ {
			ret[vpn] = true
		}
	}
	return ret
}

// The trampoline frame is shared by every address space.
var trampoline struct {
	sync.Once
	frame *mem.Frame_t
}

func tramp_frame(phys *mem.Physmem_t) mem.Ppn_t {
	trampoline.Do(func() {
		f, ok := phys.Frame_alloc()
		if !ok {
			panic("no frame for trampoline")
		}
		trampoline.frame = f
	})
	return trampoline.frame.Ppn
}

/// Map_trampoline maps the shared transition page at the top of the
/// space. The trampoline is not covered by any Maparea.
func (as *Aspace_t) Map_trampoline() {
	as.Pt.Map(Va_t(defs.TRAMPOLINE).Floor(), tramp_frame(as.Pt.phys), PTE_R|PTE_X)
}

/// Kernel is the kernel address space singleton.
var Kernel *Aspace_t

var kernellk sync.Mutex

/// Kvm_init builds the kernel space: the trampoline on top, kernel
/// stacks inserted later per thread, and the identity-mapped frame
/// pool below.
func Kvm_init(phys *mem.Physmem_t, npages int) *Aspace_t {
	as := Mkaspace(phys)
	as.Map_trampoline()
	as.push(Mkarea(0, Va_t(npages*defs.PGSIZE), MapIdentical, PTE_R|PTE_W), nil)
	Kernel = as
	fmt.Printf("[kernel] kernel space token %#x\n", as.Token())
	return as
}

/// Kernel_token returns the kernel space's SATP token.
func Kernel_token() int {
	return Kernel.Token()
}

/// Kstack_insert maps a kernel stack region into the kernel space.
func Kstack_insert(bottom, top Va_t) {
	kernellk.Lock()
	Kernel.Insert_framed(bottom, top, PTE_R|PTE_W)
	kernellk.Unlock()
}

/// Kstack_remove unmaps a kernel stack region.
func Kstack_remove(bottom Va_t) {
	kernellk.Lock()
	Kernel.Remove_area(bottom.Floor())
	kernellk.Unlock()
}
