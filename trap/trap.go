// Package trap defines the saved user state and the trap cause
// vocabulary. Dispatch lives in the kernel package; this package has
// no dependencies above mem so both task and sys can use it.
package trap

import "rvos/mem"

/// Cause_t names the trap causes the kernel handles.
type Cause_t int

//go:generate go run golang.org/x/tools/cmd/stringer -type Cause_t -output cause_string.go

const (
	CauseUserEnvCall Cause_t = iota
	CauseStoreFault
	CauseLoadFault
	CauseInstructionFault
	CauseIllegalInstruction
	CauseTimer
	CauseUnknown
)

/// Trapctx_t is the register file saved at the trap-context page:
/// 32 general registers, sstatus, sepc, and the three kernel reentry
/// slots the trampoline reads on the way in.
type Trapctx_t struct {
	X       [32]uint64 /// general registers, x0..x31
	Sstatus uint64
	Sepc    uint64
	/// Kernel_satp selects the kernel space on trap entry.
	Kernel_satp uint64
	/// Kernel_sp is the top of this thread's kernel stack.
	Kernel_sp uint64
	/// Trap_handler is the handler's virtual address.
	Trap_handler uint64
}

/// sstatus.SPP clear means "return to user mode".
const sstatus_spie = 1 << 5

/// App_init_ctx builds the context a fresh thread starts from:
/// execution at entry with the user stack in sp.
func App_init_ctx(entry, usersp, ksatp, ksp, handler int) Trapctx_t {
	tc := Trapctx_t{
		Sstatus:      sstatus_spie,
		Sepc:         uint64(entry),
		Kernel_satp:  uint64(ksatp),
		Kernel_sp:    uint64(ksp),
		Trap_handler: uint64(handler),
	}
	tc.X[2] = uint64(usersp)
	return tc
}

/// Setsp sets the user stack pointer register.
func (tc *Trapctx_t) Setsp(sp int) {
	tc.X[2] = uint64(sp)
}

/// A0..A7 accessors; the syscall ABI reads id from a7 and arguments
/// from a0..a2, and writes the return into a0.
func (tc *Trapctx_t) Arg(n int) int {
	return int(tc.X[10+n])
}

/// Setret stores the syscall return value in a0.
func (tc *Trapctx_t) Setret(v int) {
	tc.X[10] = uint64(v)
}

/// Syscallnum returns the id in a7.
func (tc *Trapctx_t) Syscallnum() int {
	return int(tc.X[17])
}

/// Ctxpg reinterprets a trap-context page. The layout is fixed by the
/// trampoline assembly, so the page simply aliases the struct.
func Ctxpg(pg *mem.Bytepg_t) *Trapctx_t {
	return ctxpg(pg)
}
