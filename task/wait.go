package task

/// Waitpid implements the wait protocol: -1 when no child matches
/// pid (-1 matches any), -2 when a match exists but none has exited,
/// otherwise the reaped child's pid and exit code. Reaping removes
/// the zombie from the children list and the last owning reference
/// goes with it.
func (p *Proc_t) Waitpid(pid int) (int, int) {
	p.Lock()
	defer p.Unlock()
	matched := false
	for i, c := range p.children {
		if pid != -1 && c.Pid.Pid != pid {
			continue
		}
		matched = true
		c.Lock()
		zombie := c.Zombie
		code := c.exitcode
		c.Unlock()
		if !zombie {
			continue
		}
		p.children = append(p.children[:i], p.children[i+1:]...)
		c.reap()
		return c.Pid.Pid, code
	}
	if !matched {
		return -1, 0
	}
	return -2, 0
}

// reap releases what the zombie still holds: its threads' kernel
// stacks, the address space root, and the pid. Threads already gave
// back their user stacks and tids on exit.
func (p *Proc_t) reap() {
	p.Lock()
	for _, t := range p.Tasks {
		if t == nil {
			continue
		}
		if t.Kstack != nil {
			t.Kstack.Free()
			t.Kstack = nil
		}
	}
	p.Tasks = nil
	if p.Aspace != nil {
		p.Aspace.Free()
		p.Aspace = nil
	}
	p.Unlock()
	p.Pid.Free()
}

/// Waittid is the per-thread analog: -1 for self-wait or a missing
/// thread, -2 while the thread runs, else the exit code. The exited
/// thread's slot clears so the tid can recycle.
func (p *Proc_t) Waittid(callertid, tid int) int {
	p.Lock()
	defer p.Unlock()
	if callertid == tid || tid >= len(p.Tasks) {
		return -1
	}
	t := p.Tasks[tid]
	if t == nil {
		return -1
	}
	t.Lock()
	ec := t.Exit_code
	t.Unlock()
	if ec == nil {
		return -2
	}
	if t.Kstack != nil {
		t.Kstack.Free()
		t.Kstack = nil
	}
	p.Tasks[tid] = nil
	return *ec
}
