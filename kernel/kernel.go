// Package kernel is the top of the stack: boot ordering, the trap
// handler the trampoline jumps to, and the return-to-user path.
package kernel

import "fmt"

import "rvos/defs"
import "rvos/fd"
import "rvos/fs"
import "rvos/kalloc"
import "rvos/mem"
import "rvos/sbi"
import "rvos/sys"
import "rvos/task"
import "rvos/trap"
import "rvos/vm"

/// Usertrap handles one trap from user mode: syscalls advance sepc
/// and dispatch; faults raise signals; the timer drains expired
/// sleepers and yields. Anything else is a kernel bug. Signal
/// delivery runs before returning, and a fatal signal ends the
/// thread.
func Usertrap(cause trap.Cause_t, stval int) {
	switch cause {
	case trap.CauseUserEnvCall:
		tc := task.Current_trapctx()
		tc.Sepc += 4
		id := tc.Syscallnum()
		ret := sys.Syscall(id, [3]int{tc.Arg(0), tc.Arg(1), tc.Arg(2)})
		// exec replaced the trap context; fetch it again.
		tc = task.Current_trapctx()
		tc.Setret(ret)
	case trap.CauseStoreFault, trap.CauseLoadFault, trap.CauseInstructionFault:
		task.Current_add_signal(defs.SIGSEGV)
	case trap.CauseIllegalInstruction:
		task.Current_add_signal(defs.SIGILL)
	case trap.CauseTimer:
		task.Set_next_trigger()
		task.Check_timer()
		task.Suspend_current_and_run_next()
	default:
		panic(fmt.Sprintf("unsupported trap %v, stval %#x", cause, stval))
	}
	task.Handle_signals()
	if code, msg, fatal := task.Check_sigerror(); fatal {
		fmt.Printf("[kernel] %s\n", msg)
		fs.Sync_all()
		task.Exit_current_and_run_next(code)
	}
	Trapret()
}

/// Trapret re-enters user mode through the trampoline: the user SATP
/// goes live and execution resumes at the saved sepc.
func Trapret() {
	token := task.Current_token()
	sbi.SetSatp(token)
	sbi.Fencevma()
}

/// Boot brings the kernel up in dependency order: heap, frames, the
/// kernel space, the filesystem, then initproc; it ends in the
/// scheduler idle loop and does not return.
func Boot(dev fs.Blockdev_i) {
	// dirty blocks reach the device before the machine stops
	shutdown := sbi.Shutdown
	sbi.Shutdown = func(failure bool) {
		fs.Sync_all()
		shutdown(failure)
	}
	kalloc.Heap_init()
	mem.Phys_init(defs.PHYS_PAGES)
	vm.Kvm_init(mem.Physmem, defs.PHYS_PAGES)
	vm.Kernel.Activate()
	efs := fs.Open(dev)
	fd.Fs_init(efs)
	f, err := fd.Open_file("initproc", defs.O_RDONLY)
	if err != 0 {
		panic("no initproc on disk")
	}
	p, perr := task.Mkproc(f.Inode().Read_all())
	if perr != 0 {
		panic("initproc does not load")
	}
	task.Initproc = p
	fmt.Printf("[kernel] initproc pid %v\n", p.Pid.Pid)
	task.Set_next_trigger()
	task.Run_tasks()
}
