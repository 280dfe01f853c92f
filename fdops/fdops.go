// Package fdops holds the interfaces between the fd layer and its
// consumers, so the task package can hold file references without
// depending on any file implementation.
package fdops

import "rvos/defs"

/// Userio_i moves bytes between a file implementation and some
/// buffer, user or kernel.
type Userio_i interface {
	Remain() int
	Totalsz() int
	Uioread(dst []uint8) (int, defs.Err_t)
	Uiowrite(src []uint8) (int, defs.Err_t)
}

/// Fdops_i is the operation set of an open file object. Reopen is
/// called when a descriptor is duplicated.
type Fdops_i interface {
	Read(ub Userio_i) (int, defs.Err_t)
	Write(ub Userio_i) (int, defs.Err_t)
	Readable() bool
	Writable() bool
	Reopen() defs.Err_t
	Close() defs.Err_t
}
