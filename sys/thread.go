package sys

import "rvos/task"
import "rvos/trap"
import "rvos/vm"

func sys_thread_create(entry, arg int) int {
	t := task.Current_task()
	p := t.Proc
	nt := task.Mktask(p, t.Res.Ustack_base, true)
	tid := nt.Res.Tid
	p.Lock()
	for len(p.Tasks) < tid+1 {
		p.Tasks = append(p.Tasks, nil)
	}
	p.Tasks[tid] = nt
	p.Unlock()
	tc := nt.Trapctx()
	*tc = trap.App_init_ctx(entry, nt.Res.Ustack_top(), vm.Kernel_token(),
		nt.Kstack.Top(), task.Traphandler_va)
	tc.X[10] = uint64(arg)
	task.Add_task(nt)
	return tid
}

func sys_waittid(tid int) int {
	t := task.Current_task()
	return t.Proc.Waittid(t.Res.Tid, tid)
}
