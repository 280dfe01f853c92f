package vm

import "rvos/defs"
import "rvos/mem"

// Syscall-side accessors for user memory. Each works through a
// borrowed page table reconstructed from the caller's SATP token.

/// Translated_bytebuf returns the physical slices spanning the user
/// range [ptr, ptr+length), split at page boundaries.
func Translated_bytebuf(phys *mem.Physmem_t, token, ptr, length int) ([][]uint8, defs.Err_t) {
	pt := From_token(token, phys)
	var ret [][]uint8
	start := ptr
	end := ptr + length
	for start < end {
		va := Va_t(start)
		pte, ok := pt.Translate(va.Floor())
		if !ok {
			return nil, -defs.EFAULT
		}
		pgend := (int(va.Floor()) + 1) << defs.PGSHIFT
		if pgend > end {
			pgend = end
		}
		pg := phys.Dmappg(pte.Ppn())
		ret = append(ret, pg[va.Off():va.Off()+(pgend-start)])
		start = pgend
	}
	return ret, 0
}

/// Translated_str reads a NUL-terminated string from user memory.
func Translated_str(phys *mem.Physmem_t, token, ptr int) (string, defs.Err_t) {
	pt := From_token(token, phys)
	var s []uint8
	for {
		pa, ok := pt.Translate_va(Va_t(ptr))
		if !ok {
			return "", -defs.EFAULT
		}
		c := phys.Dmap(pa)[0]
		if c == 0 {
			return string(s), 0
		}
		s = append(s, c)
		ptr++
	}
}

/// Userreadn reads an n-byte little-endian integer at the user
/// address.
func Userreadn(phys *mem.Physmem_t, token, va, n int) (int, defs.Err_t) {
	if n > 8 {
		panic("large n")
	}
	pt := From_token(token, phys)
	ret := 0
	for i := 0; i < n; i++ {
		pa, ok := pt.Translate_va(Va_t(va + i))
		if !ok {
			return 0, -defs.EFAULT
		}
		ret |= int(phys.Dmap(pa)[0]) << (8 * uint(i))
	}
	return ret, 0
}

/// Userwriten writes an n-byte little-endian integer at the user
/// address.
func Userwriten(phys *mem.Physmem_t, token, va, n, val int) defs.Err_t {
	if n > 8 {
		panic("large n")
	}
	pt := From_token(token, phys)
	for i := 0; i < n; i++ {
		pa, ok := pt.Translate_va(Va_t(va + i))
		if !ok {
			return -defs.EFAULT
		}
		phys.Dmap(pa)[0] = uint8(val >> (8 * uint(i)))
	}
	return 0
}

/// Userbuf_t reads and writes a user virtual range for the fd layer.
type Userbuf_t struct {
	phys  *mem.Physmem_t
	token int
	va    int
	len   int
	// 0 <= off <= len
	off int
}

/// Mkuserbuf wraps the user range [va, va+len).
func Mkuserbuf(phys *mem.Physmem_t, token, va, len int) *Userbuf_t {
	if len < 0 {
		panic("negative length")
	}
	return &Userbuf_t{phys: phys, token: token, va: va, len: len}
}

/// Remain returns the unread byte count.
func (ub *Userbuf_t) Remain() int {
	return ub.len - ub.off
}

/// Totalsz reports the total size of the buffer.
func (ub *Userbuf_t) Totalsz() int {
	return ub.len
}

func (ub *Userbuf_t) _tx(buf []uint8, write bool) (int, defs.Err_t) {
	pt := From_token(ub.token, ub.phys)
	ret := 0
	for len(buf) != 0 && ub.off != ub.len {
		va := Va_t(ub.va + ub.off)
		pte, ok := pt.Translate(va.Floor())
		if !ok {
			return ret, -defs.EFAULT
		}
		pg := ub.phys.Dmappg(pte.Ppn())
		ubuf := pg[va.Off():]
		if left := ub.len - ub.off; len(ubuf) > left {
			ubuf = ubuf[:left]
		}
		var c int
		if write {
			c = copy(ubuf, buf)
		} else {
			c = copy(buf, ubuf)
		}
		buf = buf[c:]
		ub.off += c
		ret += c
	}
	return ret, 0
}

/// Uioread copies user memory into dst.
func (ub *Userbuf_t) Uioread(dst []uint8) (int, defs.Err_t) {
	return ub._tx(dst, false)
}

/// Uiowrite copies src into user memory.
func (ub *Userbuf_t) Uiowrite(src []uint8) (int, defs.Err_t) {
	return ub._tx(src, true)
}

/// Fakeubuf_t gives kernel buffers the Userio shape so internal
/// callers can use fd operations.
type Fakeubuf_t struct {
	fbuf []uint8
	len  int
}

/// Fake_init points the buffer at buf.
func (fb *Fakeubuf_t) Fake_init(buf []uint8) {
	fb.fbuf = buf
	fb.len = len(buf)
}

/// Remain returns the bytes left in the buffer.
func (fb *Fakeubuf_t) Remain() int {
	return len(fb.fbuf)
}

/// Totalsz returns the original length.
func (fb *Fakeubuf_t) Totalsz() int {
	return fb.len
}

func (fb *Fakeubuf_t) _tx(buf []uint8, tofbuf bool) (int, defs.Err_t) {
	var c int
	if tofbuf {
		c = copy(fb.fbuf, buf)
	} else {
		c = copy(buf, fb.fbuf)
	}
	fb.fbuf = fb.fbuf[c:]
	return c, 0
}

/// Uioread copies from the fake buffer into dst.
func (fb *Fakeubuf_t) Uioread(dst []uint8) (int, defs.Err_t) {
	return fb._tx(dst, false)
}

/// Uiowrite copies src into the fake buffer.
func (fb *Fakeubuf_t) Uiowrite(src []uint8) (int, defs.Err_t) {
	return fb._tx(src, true)
}
