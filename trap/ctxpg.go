package trap

import "unsafe"

import "rvos/mem"

func ctxpg(pg *mem.Bytepg_t) *Trapctx_t {
	return (*Trapctx_t)(unsafe.Pointer(pg))
}
