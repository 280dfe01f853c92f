package sys

import "rvos/fd"
import "rvos/fdops"
import "rvos/mem"
import "rvos/task"
import "rvos/vm"

// fdget validates a descriptor against the current process's table.
func fdget(fdn int) (fdops.Fdops_i, bool) {
	p := task.Current_proc()
	p.Lock()
	defer p.Unlock()
	if fdn < 0 || fdn >= len(p.Fds) || p.Fds[fdn] == nil {
		return nil, false
	}
	return p.Fds[fdn], true
}

func sys_dup(fdn int) int {
	p := task.Current_proc()
	p.Lock()
	defer p.Unlock()
	if fdn < 0 || fdn >= len(p.Fds) || p.Fds[fdn] == nil {
		return -1
	}
	f := p.Fds[fdn]
	if f.Reopen() != 0 {
		return -1
	}
	nfd := p.Alloc_fd()
	p.Fds[nfd] = f
	return nfd
}

func sys_open(pathp, flags int) int {
	p := task.Current_proc()
	token := task.Current_token()
	path, err := vm.Translated_str(mem.Physmem, token, pathp)
	if err != 0 {
		return -1
	}
	f, ferr := fd.Open_file(path, flags)
	if ferr != 0 {
		return -1
	}
	p.Lock()
	defer p.Unlock()
	nfd := p.Alloc_fd()
	p.Fds[nfd] = f
	return nfd
}

func sys_close(fdn int) int {
	p := task.Current_proc()
	p.Lock()
	defer p.Unlock()
	if fdn < 0 || fdn >= len(p.Fds) || p.Fds[fdn] == nil {
		return -1
	}
	p.Fds[fdn].Close()
	p.Fds[fdn] = nil
	return 0
}

func sys_pipe(ptr int) int {
	p := task.Current_proc()
	token := task.Current_token()
	re, we, err := fd.Mkpipe()
	if err != 0 {
		return -1
	}
	p.Lock()
	rfd := p.Alloc_fd()
	p.Fds[rfd] = re
	wfd := p.Alloc_fd()
	p.Fds[wfd] = we
	p.Unlock()
	if vm.Userwriten(mem.Physmem, token, ptr, 8, rfd) != 0 {
		return -1
	}
	if vm.Userwriten(mem.Physmem, token, ptr+8, 8, wfd) != 0 {
		return -1
	}
	return 0
}

func sys_read(fdn, bufp, length int) int {
	token := task.Current_token()
	f, ok := fdget(fdn)
	if !ok || !f.Readable() {
		return -1
	}
	ub := vm.Mkuserbuf(mem.Physmem, token, bufp, length)
	n, err := f.Read(ub)
	if err != 0 && n == 0 {
		return -1
	}
	return n
}

func sys_write(fdn, bufp, length int) int {
	token := task.Current_token()
	f, ok := fdget(fdn)
	if !ok || !f.Writable() {
		return -1
	}
	ub := vm.Mkuserbuf(mem.Physmem, token, bufp, length)
	n, err := f.Write(ub)
	if err != 0 && n == 0 {
		return -1
	}
	return n
}
