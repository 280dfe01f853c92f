package task

import "fmt"

import "rvos/defs"

/// Current_add_signal posts a signal to the running process.
func Current_add_signal(sig int) {
	p := Current_proc()
	p.Lock()
	p.sigpend.Set(sig)
	p.Unlock()
}

/// Kill posts a signal to the process with the given pid. Fails if
/// the target is gone or the signal is already pending.
func Kill(pid, sig int) defs.Err_t {
	p, ok := Pid2proc(pid)
	if !ok {
		return -defs.ESRCH
	}
	p.Lock()
	defer p.Unlock()
	if p.sigpend.Has(sig) {
		return -defs.EINVAL
	}
	p.sigpend.Set(sig)
	return 0
}

// kernel-managed signals: stop, continue, and the fatal set.
func kernel_signal_handler(p *Proc_t, sig int) {
	p.Lock()
	defer p.Unlock()
	switch sig {
	case defs.SIGSTOP:
		p.frozen = true
		p.sigpend.Clr(defs.SIGSTOP)
	case defs.SIGCONT:
		p.sigpend.Clr(defs.SIGCONT)
		p.frozen = false
	default:
		p.killed = true
	}
}

// user-managed signals divert the trap context into the registered
// handler; sigreturn undoes it.
func user_signal_handler(p *Proc_t, sig int) {
	p.Lock()
	handler := p.Sigacts[sig].Handler
	if handler == 0 {
		// default action: ignore
		fmt.Printf("[kernel] signal %v: no handler, ignored\n", sig)
		p.sigpend.Clr(sig)
		p.Unlock()
		return
	}
	p.handling = sig
	p.sigpend.Clr(sig)
	p.Unlock()

	tc := Current_trapctx()
	backup := *tc
	p.Lock()
	p.cx_backup = &backup
	p.Unlock()
	tc.Sepc = uint64(handler)
	tc.X[10] = uint64(sig)
}

/// Sigreturn restores the context saved before the handler ran and
/// returns the restored a0, or -1 with no handler active.
func Sigreturn() int {
	p := Current_proc()
	p.Lock()
	if p.handling < 0 || p.cx_backup == nil {
		p.Unlock()
		return -1
	}
	p.handling = -1
	backup := *p.cx_backup
	p.cx_backup = nil
	p.Unlock()
	tc := Current_trapctx()
	*tc = backup
	return int(backup.X[10])
}

func check_pending_signals() {
	for sig := 0; sig <= defs.MAX_SIG; sig++ {
		p := Current_proc()
		p.Lock()
		pending := p.sigpend.Has(sig) && !p.Sigmask.Has(sig)
		masked := false
		if pending && p.handling >= 0 {
			masked = p.Sigacts[p.handling].Mask.Has(sig)
		}
		p.Unlock()
		if !pending || masked {
			continue
		}
		switch sig {
		case defs.SIGKILL, defs.SIGSTOP, defs.SIGCONT, defs.SIGDEF:
			kernel_signal_handler(p, sig)
		default:
			if _, _, fatal := defs.Sig_errof(sig); fatal && p.Sigacts[sig].Handler == 0 {
				kernel_signal_handler(p, sig)
			} else {
				user_signal_handler(p, sig)
			}
		}
	}
}

/// Handle_signals drains pending signals after every trap. A frozen
/// process yields until SIGCONT or a kill.
func Handle_signals() {
	for {
		check_pending_signals()
		p := Current_proc()
		p.Lock()
		frozen, killed := p.frozen, p.killed
		p.Unlock()
		if !frozen || killed {
			return
		}
		Suspend_current_and_run_next()
	}
}

/// Check_sigerror reports the canonical exit tuple when a fatal
/// signal has marked the process killed.
func Check_sigerror() (int, string, bool) {
	p := Current_proc()
	p.Lock()
	defer p.Unlock()
	if !p.killed {
		return 0, "", false
	}
	for sig := 0; sig <= defs.MAX_SIG; sig++ {
		if p.sigpend.Has(sig) {
			if code, msg, ok := defs.Sig_errof(sig); ok {
				return code, msg, true
			}
		}
	}
	return -9, "Killed", true
}

/// Sigaction installs a handler for sig and reports the old slot.
/// SIGKILL and SIGSTOP cannot be caught.
func Sigaction(sig int, act Sigaction_t) (Sigaction_t, defs.Err_t) {
	if sig < 0 || sig > defs.MAX_SIG || sig == defs.SIGKILL || sig == defs.SIGSTOP {
		return Sigaction_t{}, -defs.EINVAL
	}
	p := Current_proc()
	p.Lock()
	defer p.Unlock()
	old := p.Sigacts[sig]
	p.Sigacts[sig] = act
	return old, 0
}

/// Sigprocmask replaces the process signal mask and returns the old
/// one.
func Sigprocmask(mask defs.Sigset_t) defs.Sigset_t {
	p := Current_proc()
	p.Lock()
	defer p.Unlock()
	old := p.Sigmask
	p.Sigmask = mask
	return old
}
