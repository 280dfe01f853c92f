package sys

import "rvos/defs"
import "rvos/fd"
import "rvos/mem"
import "rvos/task"
import "rvos/vm"

func sys_fork() int {
	p := task.Current_proc()
	child := p.Fork()
	// the child resumes at the same sepc with a0 = 0.
	child.Get_task(0).Trapctx().Setret(0)
	return child.Pid.Pid
}

func sys_exec(pathp, argvp int) int {
	p := task.Current_proc()
	token := task.Current_token()
	path, err := vm.Translated_str(mem.Physmem, token, pathp)
	if err != 0 {
		return -1
	}
	var args []string
	for argvp != 0 {
		ap, err := vm.Userreadn(mem.Physmem, token, argvp, 8)
		if err != 0 {
			return -1
		}
		if ap == 0 {
			break
		}
		s, err := vm.Translated_str(mem.Physmem, token, ap)
		if err != 0 {
			return -1
		}
		args = append(args, s)
		argvp += 8
	}
	f, ferr := fd.Open_file(path, defs.O_RDONLY)
	if ferr != 0 {
		return -1
	}
	elf := f.Inode().Read_all()
	if p.Exec(elf, args) != 0 {
		return -1
	}
	return len(args)
}

func sys_waitpid(pid, codep int) int {
	p := task.Current_proc()
	ret, code := p.Waitpid(pid)
	if ret < 0 {
		return ret
	}
	if codep != 0 {
		token := task.Current_token()
		if vm.Userwriten(mem.Physmem, token, codep, 4, code) != 0 {
			return -1
		}
	}
	return ret
}

func sys_sigaction(sig, actp, oldp int) int {
	if actp == 0 || oldp == 0 {
		return -1
	}
	token := task.Current_token()
	h, err := vm.Userreadn(mem.Physmem, token, actp, 8)
	if err != 0 {
		return -1
	}
	m, err := vm.Userreadn(mem.Physmem, token, actp+8, 4)
	if err != 0 {
		return -1
	}
	old, aerr := task.Sigaction(sig, task.Sigaction_t{
		Handler: h,
		Mask:    defs.Sigset_t(m),
	})
	if aerr != 0 {
		return -1
	}
	if vm.Userwriten(mem.Physmem, token, oldp, 8, old.Handler) != 0 {
		return -1
	}
	if vm.Userwriten(mem.Physmem, token, oldp+8, 4, int(old.Mask)) != 0 {
		return -1
	}
	return 0
}
