// Package sys is the syscall surface: one dispatcher keyed by the
// stable numbers in defs, with handlers that validate descriptors,
// translate user pointers, and call into the task, fd, and fs layers.
package sys

import "fmt"

import "rvos/defs"
import "rvos/task"

/// Syscall dispatches one system call. Unknown ids kill nobody; they
/// just fail.
func Syscall(id int, args [3]int) int {
	switch id {
	case defs.SYS_DUP:
		return sys_dup(args[0])
	case defs.SYS_OPEN:
		return sys_open(args[0], args[1])
	case defs.SYS_CLOSE:
		return sys_close(args[0])
	case defs.SYS_PIPE:
		return sys_pipe(args[0])
	case defs.SYS_READ:
		return sys_read(args[0], args[1], args[2])
	case defs.SYS_WRITE:
		return sys_write(args[0], args[1], args[2])
	case defs.SYS_EXIT:
		task.Exit_current_and_run_next(args[0])
		panic("exit returned")
	case defs.SYS_SLEEP:
		task.Sleep_current(args[0])
		return 0
	case defs.SYS_YIELD:
		task.Suspend_current_and_run_next()
		return 0
	case defs.SYS_KILL:
		if task.Kill(args[0], args[1]) != 0 {
			return -1
		}
		return 0
	case defs.SYS_SIGACTION:
		return sys_sigaction(args[0], args[1], args[2])
	case defs.SYS_SIGPROCMASK:
		return int(task.Sigprocmask(defs.Sigset_t(args[0])))
	case defs.SYS_SIGRETURN:
		return task.Sigreturn()
	case defs.SYS_GETTIME:
		return task.Get_time_ms()
	case defs.SYS_GETPID:
		return task.Current_proc().Pid.Pid
	case defs.SYS_FORK:
		return sys_fork()
	case defs.SYS_EXEC:
		return sys_exec(args[0], args[1])
	case defs.SYS_WAITPID:
		return sys_waitpid(args[0], args[1])
	case defs.SYS_THREAD_CREATE:
		return sys_thread_create(args[0], args[1])
	case defs.SYS_GETTID:
		return task.Current_task().Tid()
	case defs.SYS_WAITTID:
		return sys_waittid(args[0])
	case defs.SYS_MUTEX_CREATE:
		return sys_mutex_create(args[0])
	case defs.SYS_MUTEX_LOCK:
		return sys_mutex_lock(args[0])
	case defs.SYS_MUTEX_UNLOCK:
		return sys_mutex_unlock(args[0])
	}
	fmt.Printf("[kernel] unsupported syscall %v\n", id)
	return -1
}
