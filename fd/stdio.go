// Package fd holds the open-file implementations behind the fd
// table: console stdio, pipes, and filesystem-backed files, plus the
// path-level open entry point.
package fd

import "rvos/defs"
import "rvos/fdops"
import "rvos/sbi"
import "rvos/task"

func init() {
	task.Mkstdio = func() []fdops.Fdops_i {
		return []fdops.Fdops_i{&Stdin_t{}, &Stdout_t{}, &Stdout_t{}}
	}
}

/// Stdin_t reads single characters from the console, yielding the
/// hart until one arrives.
type Stdin_t struct{}

/// Read blocks for exactly one character.
func (s *Stdin_t) Read(ub fdops.Userio_i) (int, defs.Err_t) {
	if ub.Remain() < 1 {
		return 0, 0
	}
	var c uint8
	for {
		ch, ok := sbi.Cons.Getc()
		if ok {
			c = ch
			break
		}
		task.Suspend_current_and_run_next()
	}
	return ub.Uiowrite([]uint8{c})
}

func (s *Stdin_t) Write(ub fdops.Userio_i) (int, defs.Err_t) {
	return 0, -defs.EBADF
}

func (s *Stdin_t) Readable() bool { return true }

func (s *Stdin_t) Writable() bool { return false }

func (s *Stdin_t) Reopen() defs.Err_t { return 0 }

func (s *Stdin_t) Close() defs.Err_t { return 0 }

/// Stdout_t writes bytes to the console; stderr shares it.
type Stdout_t struct{}

func (s *Stdout_t) Read(ub fdops.Userio_i) (int, defs.Err_t) {
	return 0, -defs.EBADF
}

/// Write drains the buffer to the console.
func (s *Stdout_t) Write(ub fdops.Userio_i) (int, defs.Err_t) {
	ret := 0
	var buf [64]uint8
	for ub.Remain() > 0 {
		n, err := ub.Uioread(buf[:])
		if err != 0 {
			return ret, err
		}
		for _, c := range buf[:n] {
			sbi.Cons.Putc(c)
		}
		ret += n
	}
	return ret, 0
}

func (s *Stdout_t) Readable() bool { return false }

func (s *Stdout_t) Writable() bool { return true }

func (s *Stdout_t) Reopen() defs.Err_t { return 0 }

func (s *Stdout_t) Close() defs.Err_t { return 0 }
