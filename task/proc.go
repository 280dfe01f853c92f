package task

import "sync"

import "rvos/defs"
import "rvos/fdops"
import "rvos/mem"
import "rvos/trap"
import "rvos/vm"

/// Sigaction_t is one slot of the per-process signal action table.
type Sigaction_t struct {
	Handler int
	Mask    defs.Sigset_t
}

func mksigacts() [defs.MAX_SIG + 1]Sigaction_t {
	var acts [defs.MAX_SIG + 1]Sigaction_t
	for i := range acts {
		var m defs.Sigset_t
		m.Set(defs.SIGQUIT)
		m.Set(defs.SIGTRAP)
		acts[i].Mask = m
	}
	return acts
}

/// Mkstdio builds the initial fd table (stdin, stdout, stderr). The
/// fd package installs it at boot; the task package cannot depend on
/// file implementations directly.
var Mkstdio = func() []fdops.Fdops_i { return nil }

/// Proc_t is a process control block. The mutex guards every mutable
/// field; the same release-before-switch rule as Task_t applies.
type Proc_t struct {
	Pid *Pidhandle_t

	sync.Mutex
	Zombie    bool
	Aspace    *vm.Aspace_t
	parent    *Proc_t
	children  []*Proc_t
	exitcode  int
	Fds       []fdops.Fdops_i
	Mutexes   []Mutex_i
	ubase     int
	sigpend   defs.Sigset_t
	Sigmask   defs.Sigset_t
	Sigacts   [defs.MAX_SIG + 1]Sigaction_t
	handling  int
	cx_backup *trap.Trapctx_t
	frozen    bool
	killed    bool
	Tasks     []*Task_t
	tidalloc  Recycleallocator_t
}

/// Initproc is the first process; set at boot. Its exit stops the
/// machine and orphans re-parent to it.
var Initproc *Proc_t

func (p *Proc_t) alloc_tid() int {
	return p.tidalloc.Alloc()
}

func (p *Proc_t) dealloc_tid(tid int) {
	p.tidalloc.Dealloc(tid)
}

/// Alloc_fd returns the lowest closed slot, growing the table.
func (p *Proc_t) Alloc_fd() int {
	for fd, f := range p.Fds {
		if f == nil {
			return fd
		}
	}
	p.Fds = append(p.Fds, nil)
	return len(p.Fds) - 1
}

/// Thread_count counts live threads.
func (p *Proc_t) Thread_count() int {
	n := 0
	for _, t := range p.Tasks {
		if t != nil {
			n++
		}
	}
	return n
}

/// Get_task returns the thread with the given tid.
func (p *Proc_t) Get_task(tid int) *Task_t {
	t := p.Tasks[tid]
	if t == nil {
		panic("no such thread")
	}
	return t
}

func (p *Proc_t) settask(tid int, t *Task_t) {
	for len(p.Tasks) < tid+1 {
		p.Tasks = append(p.Tasks, nil)
	}
	p.Tasks[tid] = t
}

/// Token returns the process address-space token.
func (p *Proc_t) Token() int {
	return p.Aspace.Token()
}

/// Exitcode returns the recorded exit code of a zombie.
func (p *Proc_t) Exitcode() int {
	return p.exitcode
}

/// Mkproc loads a process from an ELF image, builds its main thread,
/// registers the pid, and enqueues the thread.
func Mkproc(elf []uint8) (*Proc_t, defs.Err_t) {
	as, ubase, entry, err := vm.From_elf(mem.Physmem, elf)
	if err != 0 {
		return nil, err
	}
	p := &Proc_t{
		Pid:      Pid_alloc(),
		Aspace:   as,
		Fds:      Mkstdio(),
		Sigacts:  mksigacts(),
		handling: -1,
		ubase:    ubase,
	}
	t := Mktask(p, ubase, true)
	tc := t.Trapctx()
	*tc = trap.App_init_ctx(entry, t.Res.Ustack_top(), vm.Kernel_token(),
		t.Kstack.Top(), Traphandler_va)
	p.settask(0, t)
	Insert_pid(p.Pid.Pid, p)
	Add_task(t)
	return p, 0
}

/// Fork clones a single-threaded process: deep address-space copy,
/// shared reopened fds, inherited signal mask and actions. The child
/// main thread reuses the copied user-resource mappings but gets a
/// fresh kernel stack.
func (p *Proc_t) Fork() *Proc_t {
	p.Lock()
	if p.Thread_count() != 1 {
		panic("fork of multithreaded process")
	}
	as := vm.From_existed(p.Aspace)
	fds := make([]fdops.Fdops_i, len(p.Fds))
	for i, f := range p.Fds {
		if f != nil {
			if f.Reopen() != 0 {
				panic("reopen must succeed")
			}
			fds[i] = f
		}
	}
	child := &Proc_t{
		Pid:      Pid_alloc(),
		Aspace:   as,
		parent:   p,
		Fds:      fds,
		ubase:    p.ubase,
		Sigmask:  p.Sigmask,
		Sigacts:  p.Sigacts,
		handling: -1,
	}
	p.children = append(p.children, child)
	ubase := p.Get_task(0).Res.Ustack_base
	p.Unlock()

	t := Mktask(child, ubase, false)
	child.settask(0, t)
	t.Trapctx().Kernel_sp = uint64(t.Kstack.Top())
	Insert_pid(child.Pid.Pid, child)
	Add_task(t)
	return child
}

/// Exec replaces a single-threaded process's image. argv strings are
/// copied onto the new user stack: a NUL-terminated pointer array at
/// argv_base, string bytes below, sp aligned down to a word. a0 gets
/// argc and a1 argv_base.
func (p *Proc_t) Exec(elf []uint8, args []string) defs.Err_t {
	p.Lock()
	defer p.Unlock()
	if p.Thread_count() != 1 {
		panic("exec of multithreaded process")
	}
	as, ubase, entry, err := vm.From_elf(mem.Physmem, elf)
	if err != 0 {
		return err
	}
	token := as.Token()
	old := p.Aspace
	p.Aspace = as
	p.ubase = ubase
	old.Free()

	t := p.Get_task(0)
	t.Res.Ustack_base = ubase
	t.Res.Alloc_user_res()
	t.Trapcx_ppn = t.Res.Trapctx_ppn()

	usersp := t.Res.Ustack_top()
	usersp -= (len(args) + 1) * 8
	argvbase := usersp
	vm.Userwriten(mem.Physmem, token, argvbase+len(args)*8, 8, 0)
	for i, a := range args {
		usersp -= len(a) + 1
		vm.Userwriten(mem.Physmem, token, argvbase+i*8, 8, usersp)
		for j := 0; j < len(a); j++ {
			vm.Userwriten(mem.Physmem, token, usersp+j, 1, int(a[j]))
		}
		vm.Userwriten(mem.Physmem, token, usersp+len(a), 1, 0)
	}
	usersp -= usersp % 8

	tc := t.Trapctx()
	*tc = trap.App_init_ctx(entry, usersp, vm.Kernel_token(),
		t.Kstack.Top(), Traphandler_va)
	tc.X[10] = uint64(len(args))
	tc.X[11] = uint64(argvbase)
	return 0
}
