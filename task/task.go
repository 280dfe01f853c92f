package task

import "sync"

import "rvos/mem"
import "rvos/trap"

/// Status_t is a thread's scheduler state.
type Status_t int

const (
	Ready Status_t = iota
	Running
	Blocked
)

/// Task_t is a thread control block. The mutex guards the mutable
/// fields; every borrow must be released before the thread switches
/// away.
type Task_t struct {
	Proc   *Proc_t
	Kstack *Kernelstack_t

	sync.Mutex
	Res        *Userres_t
	Trapcx_ppn mem.Ppn_t
	Status     Status_t
	Ctx        Taskctx_t
	/// Exit_code is non-nil once the thread has exited.
	Exit_code *int
}

/// Mktask builds a thread of p. allocres selects whether to map fresh
/// user resources; fork's child reuses the mappings copied with the
/// parent's address space but always gets its own kernel stack.
func Mktask(p *Proc_t, ustack_base int, allocres bool) *Task_t {
	res := mkuserres(p, ustack_base, allocres)
	ks := Mkkstack()
	return &Task_t{
		Proc:       p,
		Kstack:     ks,
		Res:        res,
		Trapcx_ppn: res.Trapctx_ppn(),
		Status:     Ready,
		Ctx:        Goto_trapret(ks.Top()),
	}
}

/// Trapctx returns the thread's trap context through the direct map.
func (t *Task_t) Trapctx() *trap.Trapctx_t {
	return trap.Ctxpg(mem.Physmem.Dmappg(t.Trapcx_ppn))
}

/// Tid returns the thread id, valid while Res is live.
func (t *Task_t) Tid() int {
	return t.Res.Tid
}
