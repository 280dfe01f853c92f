package task

import "fmt"
import "sync"

import "rvos/defs"
import "rvos/mem"
import "rvos/vm"

/// Recycleallocator_t hands out small integers: a monotonic watermark
/// plus a LIFO recycle list. Used for pids, tids, and kernel-stack
/// slots.
type Recycleallocator_t struct {
	current  int
	recycled []int
}

/// Alloc returns the most recently recycled id, or a fresh one.
func (ra *Recycleallocator_t) Alloc() int {
	if n := len(ra.recycled); n > 0 {
		id := ra.recycled[n-1]
		ra.recycled = ra.recycled[:n-1]
		return id
	}
	ra.current++
	return ra.current - 1
}

/// Dealloc returns an id. Double free is a kernel bug.
func (ra *Recycleallocator_t) Dealloc(id int) {
	if id >= ra.current {
		panic("dealloc of unallocated id")
	}
	for _, r := range ra.recycled {
		if r == id {
			panic(fmt.Sprintf("id %v deallocated twice", id))
		}
	}
	ra.recycled = append(ra.recycled, id)
}

var pidlk sync.Mutex
var pidalloc Recycleallocator_t

/// Pidhandle_t owns a pid until Free.
type Pidhandle_t struct {
	Pid int
}

/// Pid_alloc takes a pid from the global allocator.
func Pid_alloc() *Pidhandle_t {
	pidlk.Lock()
	defer pidlk.Unlock()
	return &Pidhandle_t{Pid: pidalloc.Alloc()}
}

/// Free returns the pid.
func (ph *Pidhandle_t) Free() {
	pidlk.Lock()
	pidalloc.Dealloc(ph.Pid)
	pidlk.Unlock()
}

var kstacklk sync.Mutex
var kstackalloc Recycleallocator_t

/// Kernelstack_t owns a kernel-stack region in the kernel space at a
/// slot-derived address below the trampoline.
type Kernelstack_t struct {
	kid int
}

/// Mkkstack allocates a slot and maps the stack.
func Mkkstack() *Kernelstack_t {
	kstacklk.Lock()
	kid := kstackalloc.Alloc()
	kstacklk.Unlock()
	bottom, top := defs.Kstack_range(kid)
	vm.Kstack_insert(vm.Va_t(bottom), vm.Va_t(top))
	return &Kernelstack_t{kid: kid}
}

/// Top returns the stack's highest address.
func (ks *Kernelstack_t) Top() int {
	_, top := defs.Kstack_range(ks.kid)
	return top
}

/// Free unmaps the stack and recycles the slot.
func (ks *Kernelstack_t) Free() {
	bottom, _ := defs.Kstack_range(ks.kid)
	vm.Kstack_remove(vm.Va_t(bottom))
	kstacklk.Lock()
	kstackalloc.Dealloc(ks.kid)
	kstacklk.Unlock()
}

/// Userres_t is a thread's per-process user resources: the tid, the
/// tid-indexed user stack, and the trap-context page.
type Userres_t struct {
	Tid         int
	Ustack_base int
	proc        *Proc_t
}

// mkuserres allocates a tid and, when domap is set, maps the user
// stack and trap-context page. Fork passes domap=false because the
// copied address space already carries both mappings.
func mkuserres(p *Proc_t, ustack_base int, domap bool) *Userres_t {
	res := &Userres_t{Tid: p.alloc_tid(), Ustack_base: ustack_base, proc: p}
	if domap {
		res.Alloc_user_res()
	}
	return res
}

/// Alloc_user_res maps the user stack and the trap-context page into
/// the owning process's space. Exec calls this again after swapping
/// address spaces.
func (res *Userres_t) Alloc_user_res() {
	bottom, top := defs.Ustack_range(res.Ustack_base, res.Tid)
	res.proc.Aspace.Insert_framed(vm.Va_t(bottom), vm.Va_t(top),
		vm.PTE_R|vm.PTE_W|vm.PTE_U)
	cxva := defs.Trapctx_va(res.Tid)
	res.proc.Aspace.Insert_framed(vm.Va_t(cxva), vm.Va_t(cxva+defs.PGSIZE),
		vm.PTE_R|vm.PTE_W)
}

func (res *Userres_t) dealloc_user_res() {
	bottom, _ := defs.Ustack_range(res.Ustack_base, res.Tid)
	res.proc.Aspace.Remove_area(vm.Va_t(bottom).Floor())
	cxva := defs.Trapctx_va(res.Tid)
	res.proc.Aspace.Remove_area(vm.Va_t(cxva).Floor())
}

/// Ustack_top returns the top of this thread's user stack.
func (res *Userres_t) Ustack_top() int {
	_, top := defs.Ustack_range(res.Ustack_base, res.Tid)
	return top
}

/// Trapctx_ppn resolves the physical page holding the trap context.
func (res *Userres_t) Trapctx_ppn() mem.Ppn_t {
	va := vm.Va_t(defs.Trapctx_va(res.Tid))
	pte, ok := res.proc.Aspace.Translate(va.Floor())
	if !ok {
		panic("trap context unmapped")
	}
	return pte.Ppn()
}

/// Free unmaps the stack and context page and recycles the tid.
func (res *Userres_t) Free() {
	res.dealloc_user_res()
	res.proc.dealloc_tid(res.Tid)
}
